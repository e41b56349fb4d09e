package observability

import "github.com/knesset-annotations/catmaset/internal/logger"

// Package-level cached logger instance.
var log = logger.Global().Module("observability")
