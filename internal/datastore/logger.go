package datastore

import "github.com/tphakala/sift-go/internal/logger"

// GetLogger returns the datastore package logger
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
