// Package conf provides configuration management for catmaset.
package conf

import "github.com/knesset-annotations/catmaset/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows the
// logger installed after configuration is loaded.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
