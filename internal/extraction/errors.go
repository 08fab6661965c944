package extraction

import "github.com/tphakala/sift-go/internal/errors"

var (
	// ErrInvalidCameraParams is returned when the camera model is unknown or the
	// parameter count does not match it
	ErrInvalidCameraParams = errors.NewStd("invalid camera parameters")

	// ErrBackendPanic is returned when a backend panics inside its worker
	ErrBackendPanic = errors.NewStd("extraction backend panicked")
)
