package standoff

import "github.com/knesset-annotations/catmaset/internal/logger"

// GetLogger returns the standoff package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("standoff")
}
