package extraction

import (
	"slices"

	"github.com/tphakala/sift-go/internal/conf"
	"github.com/tphakala/sift-go/internal/errors"
	"github.com/tphakala/sift-go/internal/features"
	"github.com/tphakala/sift-go/internal/secrets"
)

// RunConfig is the fully resolved input of one extraction run. The
// orchestrator owns it; backends receive copies.
type RunConfig struct {
	DatabasePath  string
	ImagePath     string
	ImageListPath string
	ImageList     []string // empty means every image under ImagePath

	CameraModel  string
	CameraParams []float64

	UseGPU bool

	Reader features.ReaderOptions
	Sift   features.SiftOptions
	GPU    features.GPUOptions
	CPU    features.CPUOptions

	// paramsErr holds a camera_params parse failure. It is reported after the
	// image list was read, the list step aborts a run first.
	paramsErr error
}

// NewRunConfig builds a run configuration from settings. camera_params must be
// a comma-separated list of numbers; a malformed list fails Orchestrator.Run
// with a validation error.
func NewRunConfig(settings *conf.Settings) (RunConfig, error) {
	params, err := conf.ParseCSV(settings.Reader.CameraParams)
	var paramsErr error
	if err != nil {
		paramsErr = errors.New(err).
			Component("extraction").
			Category(errors.CategoryValidation).
			Context("option", "camera_params").
			Build()
	}

	databasePath, err := secrets.ResolveDatabasePath(settings.Database.Path, settings.Database.PasswordFile)
	if err != nil {
		return RunConfig{}, err
	}

	return RunConfig{
		DatabasePath:  databasePath,
		ImagePath:     settings.Image.Path,
		ImageListPath: settings.Image.ListPath,
		CameraModel:   settings.Reader.CameraModel,
		CameraParams:  params,
		UseGPU:        settings.GPU.Enabled,
		Reader: features.ReaderOptions{
			SingleCamera:             settings.Reader.SingleCamera,
			SingleCameraPerFolder:    settings.Reader.SingleCameraPerFolder,
			DefaultFocalLengthFactor: settings.Reader.DefaultFocalLengthFactor,
			MaxImageSize:             settings.Reader.MaxImageSize,
		},
		Sift: features.SiftOptions{
			MaxNumFeatures:     settings.Sift.MaxNumFeatures,
			FirstOctave:        settings.Sift.FirstOctave,
			NumOctaves:         settings.Sift.NumOctaves,
			OctaveResolution:   settings.Sift.OctaveResolution,
			PeakThreshold:      settings.Sift.PeakThreshold,
			EdgeThreshold:      settings.Sift.EdgeThreshold,
			MaxNumOrientations: settings.Sift.MaxNumOrientations,
			Upright:            settings.Sift.Upright,
			Normalization:      settings.Sift.Normalization,
		},
		GPU: features.GPUOptions{Index: settings.GPU.Index},
		CPU: features.CPUOptions{
			NumThreads:      settings.CPU.NumThreads,
			BatchSizeFactor: settings.CPU.BatchSizeFactor,
		},
		paramsErr: paramsErr,
	}, nil
}

// Clone returns a deep copy
func (c RunConfig) Clone() RunConfig {
	c.ImageList = slices.Clone(c.ImageList)
	c.CameraParams = slices.Clone(c.CameraParams)
	c.Reader.ImageList = slices.Clone(c.Reader.ImageList)
	c.Reader.CameraParams = slices.Clone(c.Reader.CameraParams)
	return c
}

// withSharedFields copies the run-wide inputs into the reader options the
// backends consume.
func (c RunConfig) withSharedFields() RunConfig {
	c = c.Clone()
	c.Reader.DatabasePath = c.DatabasePath
	c.Reader.ImagePath = c.ImagePath
	c.Reader.ImageList = slices.Clone(c.ImageList)
	c.Reader.CameraModel = c.CameraModel
	c.Reader.CameraParams = slices.Clone(c.CameraParams)
	return c
}
