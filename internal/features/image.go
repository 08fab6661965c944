package features

import (
	"image"
	"image/draw"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/tphakala/sift-go/internal/errors"
)

var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// IsSupportedImage reports whether path has an extension the reader can decode
func IsSupportedImage(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// decodeGray reads the image at path and converts it to 8-bit grayscale
func decodeGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryImageRead).
			FileContext(path).
			Build()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryImageRead).
			FileContext(path).
			Build()
	}

	if gray, ok := img.(*image.Gray); ok && gray.Rect.Min == (image.Point{}) {
		return gray, nil
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray, nil
}

// downscale shrinks img so that its larger side is at most maxSize. The returned
// factors map x and y coordinates of the result back to the input.
func downscale(img *image.Gray, maxSize int) (out *image.Gray, scaleX, scaleY float64) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	longest := max(w, h)
	if maxSize <= 0 || longest <= maxSize {
		return img, 1, 1
	}
	scale := float64(maxSize) / float64(longest)
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return resizeGray(img, nw, nh), float64(w) / float64(nw), float64(h) / float64(nh)
}

func resizeGray(img *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
