package logicstream

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	loggerMu sync.RWMutex
	logger   hclog.Logger = hclog.New(&hclog.LoggerOptions{
		Name:  "logicstream",
		Level: hclog.Warn,
	})
)

// L returns the package's current default logger. Internally it logs
// panics recovered at the root-query boundary (runRecovered, goal.go);
// RelationFactory implementations can derive a named child logger from it
// with Named.
func L() hclog.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the package's default logger, e.g. to raise the level
// or route output through an application's own hclog instance.
func SetLogger(l hclog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}
