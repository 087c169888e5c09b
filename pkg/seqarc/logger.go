package seqarc

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's default logger.
// It uses a no-op logger unless SetLogger was called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the default logger for handles created afterwards.
// This must be called before any handles are created.
func SetLogger(l *zap.Logger) {
	logger = l
}
