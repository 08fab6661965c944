package features

import (
	"image"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/sift-go/internal/camera"
	"github.com/tphakala/sift-go/internal/conf"
	"github.com/tphakala/sift-go/internal/datastore"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/logger"
)

// ReadStatus is the outcome of reading one image
type ReadStatus int

const (
	// ReadSuccess means the image was decoded and needs features
	ReadSuccess ReadStatus = iota
	// ReadSkipped means the image already has features in the database
	ReadSkipped
	// ReadFailed means the image could not be read, it is skipped
	ReadFailed
)

func (s ReadStatus) String() string {
	switch s {
	case ReadSuccess:
		return "success"
	case ReadSkipped:
		return "skipped"
	case ReadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ImageData is one decoded image ready for detection
type ImageData struct {
	Index  int
	Path   string
	Record datastore.Image // registered by the reader on ReadSuccess

	Width  int // original size
	Height int

	Gray   *image.Gray // downscaled to max_image_size
	ScaleX float64     // maps Gray coordinates back to the original
	ScaleY float64
}

// ImageReader yields the images of a run in order and assigns cameras to them.
// It is not safe for concurrent use.
type ImageReader struct {
	opts    ReaderOptions
	store   *datastore.Store
	model   camera.Model
	paths   []string
	next    int
	log     logger.Logger
	cameras *cache.Cache // camera id by folder, or a single entry for single_camera
	seen    map[string]struct{}
}

const singleCameraKey = "\x00single"

// NewImageReader resolves the image sequence. An explicit list is used as is,
// otherwise every supported image under the image root is read in lexical order.
func NewImageReader(opts ReaderOptions, store *datastore.Store) (*ImageReader, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryValidation).
			Build()
	}
	model, _ := camera.Lookup(opts.CameraModel)
	if len(opts.CameraParams) > 0 && !camera.VerifyParams(model.ID, opts.CameraParams) {
		return nil, errors.Newf("camera params %q do not fit model %s", conf.FormatCSV(opts.CameraParams), model.Name).
			Component("features").
			Category(errors.CategoryValidation).
			Context("num_params", model.NumParams).
			Build()
	}

	paths := slices.Clone(opts.ImageList)
	if len(paths) == 0 {
		var err error
		if paths, err = listImages(opts.ImagePath); err != nil {
			return nil, err
		}
	}

	return &ImageReader{
		opts:    opts,
		store:   store,
		model:   model,
		paths:   paths,
		log:     GetLogger().With(logger.String("component", "reader")),
		cameras: cache.New(cache.NoExpiration, 0),
		seen:    make(map[string]struct{}, len(paths)),
	}, nil
}

func listImages(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsSupportedImage(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("features").
			Category(errors.CategoryFileIO).
			Context("image_path", root).
			Build()
	}
	slices.Sort(paths)
	return paths, nil
}

// NumImages returns the length of the image sequence
func (r *ImageReader) NumImages() int {
	return len(r.paths)
}

// Next reads the next image. It returns false once the sequence is exhausted.
// A non-nil error is fatal for the run; unreadable images are reported with
// ReadFailed and a nil error. A readable image is registered in the database
// before Next returns, so image ids follow the sequence order. A name already
// seen in this run is reported with ReadSkipped.
func (r *ImageReader) Next() (*ImageData, ReadStatus, bool, error) {
	if r.next >= len(r.paths) {
		return nil, ReadFailed, false, nil
	}
	index := r.next
	r.next++

	p := r.paths[index]
	data := &ImageData{
		Index:  index,
		Path:   p,
		Record: datastore.Image{Name: r.imageName(p)},
	}
	log := r.log.With(logger.String("image", data.Record.Name), logger.Int("index", index+1), logger.Int("total", len(r.paths)))

	if _, dup := r.seen[data.Record.Name]; dup {
		log.Warn("image listed more than once")
		return data, ReadSkipped, true, nil
	}
	r.seen[data.Record.Name] = struct{}{}

	existing, err := r.store.ImageByName(data.Record.Name)
	switch {
	case errors.Is(err, datastore.ErrImageNotFound):
	case err != nil:
		return nil, ReadFailed, true, err
	default:
		hasFeatures, err := r.store.HasFeatures(existing.ID)
		if err != nil {
			return nil, ReadFailed, true, err
		}
		if hasFeatures {
			log.Debug("features already extracted")
			return data, ReadSkipped, true, nil
		}
		data.Record = *existing
	}

	gray, err := decodeGray(p)
	if err != nil {
		log.Warn("failed to read image", logger.Error(err))
		return data, ReadFailed, true, nil
	}
	data.Width, data.Height = gray.Rect.Dx(), gray.Rect.Dy()

	if data.Record.CameraID == 0 {
		cameraID, err := r.assignCamera(data, log)
		if err != nil {
			if errors.IsCategory(err, errors.CategoryDatabase) {
				return nil, ReadFailed, true, err
			}
			log.Warn("failed to assign camera", logger.Error(err))
			return data, ReadFailed, true, nil
		}
		data.Record.CameraID = cameraID
	}
	if data.Record.ID == 0 {
		if _, err := r.store.AddImage(&data.Record); err != nil {
			return nil, ReadFailed, true, err
		}
	}

	data.Gray, data.ScaleX, data.ScaleY = downscale(gray, r.opts.MaxImageSize)
	return data, ReadSuccess, true, nil
}

// imageName is the path relative to the image root, with forward slashes
func (r *ImageReader) imageName(p string) string {
	rel, err := filepath.Rel(r.opts.ImagePath, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (r *ImageReader) cameraKey(name string) (string, bool) {
	switch {
	case r.opts.SingleCamera:
		return singleCameraKey, true
	case r.opts.SingleCameraPerFolder:
		return path.Dir(name), true
	default:
		return "", false
	}
}

func (r *ImageReader) assignCamera(data *ImageData, log logger.Logger) (uint, error) {
	key, shared := r.cameraKey(data.Record.Name)
	if shared {
		if cached, found := r.cameras.Get(key); found {
			cam := cached.(*datastore.Camera)
			if cam.Width != data.Width || cam.Height != data.Height {
				return 0, errors.Newf("image size %dx%d differs from shared camera %dx%d",
					data.Width, data.Height, cam.Width, cam.Height).
					Component("features").
					Category(errors.CategoryImageRead).
					Context("camera_id", cam.ID).
					Build()
			}
			return cam.ID, nil
		}
	}

	cam := &datastore.Camera{
		ModelID: r.model.ID,
		Width:   data.Width,
		Height:  data.Height,
	}
	if len(r.opts.CameraParams) > 0 {
		cam.Params = slices.Clone(r.opts.CameraParams)
		cam.PriorFocalLength = true
	} else {
		focal := r.opts.DefaultFocalLengthFactor * float64(max(data.Width, data.Height))
		cam.Params = r.model.InitialParams(focal, data.Width, data.Height)
	}

	id, err := r.store.AddCamera(cam)
	if err != nil {
		return 0, err
	}
	log.Debug("camera created",
		logger.Uint64("camera_id", uint64(id)),
		logger.String("model", r.model.Name),
		logger.String("params", conf.FormatCSV(cam.Params)))

	if shared {
		r.cameras.Set(key, cam, cache.NoExpiration)
	}
	return id, nil
}
