package datastore

import "github.com/tphakala/sift-go/internal/errors"

var (
	// ErrCameraNotFound is returned when a camera id does not exist
	ErrCameraNotFound = errors.NewStd("camera not found")

	// ErrImageNotFound is returned when an image name does not exist
	ErrImageNotFound = errors.NewStd("image not found")

	// ErrFeaturesNotFound is returned when an image has no keypoints or descriptors
	ErrFeaturesNotFound = errors.NewStd("features not found")

	// ErrInvalidLocation is returned for an empty or malformed database location
	ErrInvalidLocation = errors.NewStd("invalid database location")

	// ErrExportMismatch is returned when an exported database differs from its source
	ErrExportMismatch = errors.NewStd("exported database does not match its source")
)

// dbError wraps a database failure with the datastore component and category
func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
