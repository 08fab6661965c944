package runloop

import "github.com/tphakala/sift-go/internal/errors"

var (
	// ErrLoopStopped is returned by Do once a stop has been requested
	ErrLoopStopped = errors.NewStd("run loop stopped")

	// ErrLoopRunning is returned by Run when the loop is already running or has run
	ErrLoopRunning = errors.NewStd("run loop already started")
)
