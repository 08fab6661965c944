package features

import (
	"fmt"
	"strings"

	"github.com/tphakala/sift-go/internal/camera"
)

// Backend labels used in logs and metrics.
const (
	BackendLabelCPU = "cpu"
	BackendLabelGPU = "gpu"
)

// Descriptor normalizations.
const (
	NormalizationL1Root = "L1_ROOT"
	NormalizationL2     = "L2"
)

// ReaderOptions controls how images are enumerated, decoded and assigned to cameras.
type ReaderOptions struct {
	DatabasePath string
	ImagePath    string

	// ImageList restricts the run to these paths, in order. Empty means every
	// supported image under ImagePath.
	ImageList []string

	CameraModel              string
	CameraParams             []float64
	SingleCamera             bool
	SingleCameraPerFolder    bool
	DefaultFocalLengthFactor float64
	MaxImageSize             int
}

// SiftOptions bounds the detector.
type SiftOptions struct {
	MaxNumFeatures     int
	FirstOctave        int
	NumOctaves         int
	OctaveResolution   int
	PeakThreshold      float64
	EdgeThreshold      float64
	MaxNumOrientations int
	Upright            bool
	Normalization      string
}

// CPUOptions configures the CPU worker pool. NumThreads <= 0 selects the
// optimal count for the host.
type CPUOptions struct {
	NumThreads      int
	BatchSizeFactor int
}

// GPUOptions selects the device of the GPU backend. -1 picks the default device.
type GPUOptions struct {
	Index int
}

// Validate checks the reader options a backend cannot start without.
func (o *ReaderOptions) Validate() error {
	var errs []string
	if strings.TrimSpace(o.DatabasePath) == "" {
		errs = append(errs, "database path is empty")
	}
	if strings.TrimSpace(o.ImagePath) == "" {
		errs = append(errs, "image path is empty")
	}
	if _, ok := camera.ModelNameToID(o.CameraModel); !ok {
		errs = append(errs, fmt.Sprintf("unknown camera model %q", o.CameraModel))
	}
	if o.DefaultFocalLengthFactor <= 0 {
		errs = append(errs, "default focal length factor must be positive")
	}
	if o.MaxImageSize <= 0 {
		errs = append(errs, "max image size must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid reader options: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Validate checks the SIFT options and canonicalizes the normalization name.
func (o *SiftOptions) Validate() error {
	var errs []string
	if o.MaxNumFeatures <= 0 {
		errs = append(errs, "max_num_features must be positive")
	}
	if o.NumOctaves <= 0 {
		errs = append(errs, "num_octaves must be positive")
	}
	if o.OctaveResolution <= 0 {
		errs = append(errs, "octave_resolution must be positive")
	}
	if o.PeakThreshold <= 0 {
		errs = append(errs, "peak_threshold must be positive")
	}
	if o.EdgeThreshold <= 0 {
		errs = append(errs, "edge_threshold must be positive")
	}
	if o.MaxNumOrientations <= 0 {
		errs = append(errs, "max_num_orientations must be positive")
	}
	switch strings.ToUpper(o.Normalization) {
	case NormalizationL1Root, NormalizationL2:
		o.Normalization = strings.ToUpper(o.Normalization)
	default:
		errs = append(errs, fmt.Sprintf("unknown normalization %q", o.Normalization))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid sift options: %s", strings.Join(errs, ", "))
	}
	return nil
}
