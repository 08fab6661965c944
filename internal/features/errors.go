package features

import "github.com/tphakala/sift-go/internal/errors"

var (
	// ErrNotStarted is returned by Wait when Start was never called
	ErrNotStarted = errors.NewStd("extractor not started")

	// ErrDeviceUnavailable is returned when the requested GPU index does not exist
	ErrDeviceUnavailable = errors.NewStd("gpu device not available")
)

// backendError wraps a fatal backend failure
func backendError(err error, backend, operation string) error {
	return errors.New(err).
		Component("features").
		Category(errors.CategoryBackend).
		Context("backend", backend).
		Context("operation", operation).
		Build()
}
