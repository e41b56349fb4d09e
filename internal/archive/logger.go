package archive

import "github.com/knesset-annotations/catmaset/internal/logger"

// GetLogger returns the archive package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("archive")
}
