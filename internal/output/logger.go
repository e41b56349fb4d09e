package output

import "github.com/knesset-annotations/catmaset/internal/logger"

// GetLogger returns the output package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("output")
}
