package extraction

import "github.com/tphakala/sift-go/internal/logger"

// GetLogger returns the extraction module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("extraction")
}
