package utils

import (
	"sync"

	"github.com/go-logr/logr"
)

var (
	logMu  sync.RWMutex
	logger = logr.Discard()
)

// Log returns the process logger. It discards everything until SetLogger is called.
func Log() logr.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

func SetLogger(l logr.Logger) {
	logMu.Lock()
	logger = l
	logMu.Unlock()
}
