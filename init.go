package pgreset

import (
	"sync"

	log "github.com/mgutz/logxi"
)

var (
	loggersMu sync.Mutex
	loggers   = map[string]log.Logger{}
	logLevel  = -1
)

// NewLogger creates a named logger and registers it so SetLogLevel reaches it.
// Packages call this once from init().
func NewLogger(name string) log.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := log.New(name)
	if logLevel >= 0 {
		l.SetLevel(logLevel)
	}
	loggers[name] = l
	return l
}

// SetLogLevel sets the level of every registered logger, e.g. log.LevelDebug.
func SetLogLevel(level int) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	logLevel = level
	for _, l := range loggers {
		l.SetLevel(level)
	}
}
