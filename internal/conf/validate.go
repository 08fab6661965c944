// conf/validate.go

package conf

import (
	"fmt"
	"strings"

	"github.com/tphakala/sift-go/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings range-checks the tuning options. Camera parameters are not
// checked here, they are validated against the camera model when a run starts.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateReaderSettings(&settings.Reader); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateSiftSettings(&settings.Sift); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateGPUSettings(&settings.GPU); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateCPUSettings(&settings.CPU); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// ValidateRunPaths checks the options an extraction run cannot do without
func ValidateRunPaths(settings *Settings) error {
	var missing []string
	if strings.TrimSpace(settings.Database.Path) == "" {
		missing = append(missing, "database_path")
	}
	if strings.TrimSpace(settings.Image.Path) == "" {
		missing = append(missing, "image_path")
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.Newf("required option(s) not set: %s", strings.Join(missing, ", ")).
		Category(errors.CategoryValidation).
		Context("missing", missing).
		Build()
}

func validateReaderSettings(settings *ReaderSettings) error {
	var errs []string

	if settings.DefaultFocalLengthFactor <= 0 {
		errs = append(errs, "reader.default_focal_length_factor must be greater than 0")
	}
	if settings.MaxImageSize <= 0 {
		errs = append(errs, "reader.max_image_size must be greater than 0")
	}
	if strings.TrimSpace(settings.CameraModel) == "" {
		errs = append(errs, "reader.camera_model must not be empty")
	}

	return joinErrors("reader", errs)
}

func validateSiftSettings(settings *SiftSettings) error {
	var errs []string

	if settings.MaxNumFeatures <= 0 {
		errs = append(errs, "sift.max_num_features must be greater than 0")
	}
	if settings.NumOctaves <= 0 {
		errs = append(errs, "sift.num_octaves must be greater than 0")
	}
	if settings.OctaveResolution <= 0 {
		errs = append(errs, "sift.octave_resolution must be greater than 0")
	}
	if settings.PeakThreshold <= 0 {
		errs = append(errs, "sift.peak_threshold must be greater than 0")
	}
	if settings.EdgeThreshold <= 0 {
		errs = append(errs, "sift.edge_threshold must be greater than 0")
	}
	if settings.MaxNumOrientations <= 0 {
		errs = append(errs, "sift.max_num_orientations must be greater than 0")
	}

	switch strings.ToUpper(settings.Normalization) {
	case NormalizationL1Root, NormalizationL2:
		settings.Normalization = strings.ToUpper(settings.Normalization)
	default:
		errs = append(errs, fmt.Sprintf("sift.normalization must be %s or %s, got %q",
			NormalizationL1Root, NormalizationL2, settings.Normalization))
	}

	return joinErrors("sift", errs)
}

func validateGPUSettings(settings *GPUSettings) error {
	if settings.Index < -1 {
		return fmt.Errorf("gpu settings: gpu.index must be -1 or a device index, got %d", settings.Index)
	}
	return nil
}

func validateCPUSettings(settings *CPUSettings) error {
	if settings.BatchSizeFactor <= 0 {
		return fmt.Errorf("cpu settings: cpu.batch_size_factor must be greater than 0")
	}
	return nil
}

func joinErrors(section string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s settings: %s", section, strings.Join(errs, ", "))
}
