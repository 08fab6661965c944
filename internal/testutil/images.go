package testutil

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/sift-go/internal/logger"
)

// BlobImage renders dark and bright Gaussian blobs on a mid-gray background.
// Different seeds give different blob layouts; the same seed always renders
// the same image.
func BlobImage(w, h int, seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	type blob struct {
		x, y, sigma, amp float64
	}

	var blobs []blob
	state := uint32(seed)*2654435761 + 1
	rnd := func() float64 {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		return float64(state) / float64(math.MaxUint32)
	}
	n := 6 + seed%4
	for i := range n {
		amp := 0.35
		if i%2 == 1 {
			amp = -0.35
		}
		blobs = append(blobs, blob{
			x:     8 + rnd()*float64(w-16),
			y:     8 + rnd()*float64(h-16),
			sigma: 2 + rnd()*3,
			amp:   amp,
		})
	}

	for y := range h {
		for x := range w {
			v := 0.5
			for _, b := range blobs {
				dx, dy := float64(x)-b.x, float64(y)-b.y
				v += b.amp * math.Exp(-(dx*dx+dy*dy)/(2*b.sigma*b.sigma))
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Round(255 * min(1, max(0, v))))})
		}
	}
	return img
}

// WritePNG encodes img as a PNG file at path, creating parent directories.
func WritePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// WriteBlobImages writes one blob PNG per name under root and returns their paths.
func WriteBlobImages(t *testing.T, root string, w, h int, names ...string) []string {
	t.Helper()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(root, filepath.FromSlash(name))
		WritePNG(t, paths[i], BlobImage(w, h, i))
	}
	return paths
}

// DiscardLogger returns a logger that drops every record
func DiscardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}
