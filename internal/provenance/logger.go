package provenance

import "github.com/knesset-annotations/catmaset/internal/logger"

// GetLogger returns the provenance package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("provenance")
}
