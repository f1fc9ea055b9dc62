package log

import (
	"sync"
)

var (
	loggerMu      sync.RWMutex
	defaultLogger *Logger
)

// SetDefaultLogger replaces the logger that services fall back to when none
// is injected. The CLI installs the command logger here; nil restores the
// built-in default on the next DefaultLogger call.
func SetDefaultLogger(logger *Logger) {
	loggerMu.Lock()
	defaultLogger = logger
	loggerMu.Unlock()
}

// DefaultLogger returns the installed logger, creating a warn-level stderr
// logger on first use.
func DefaultLogger() *Logger {
	loggerMu.RLock()
	logger := defaultLogger
	loggerMu.RUnlock()
	if logger != nil {
		return logger
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = Default()
	}
	return defaultLogger
}
