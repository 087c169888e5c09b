package seqarc

import (
	"github.com/kilupskalvis/seqarc/internal/engine"
	"go.uber.org/zap"
)

type options struct {
	logger      *zap.Logger
	cacheBlocks int
}

// Option configures an Archive created by New.
type Option func(*options)

// WithLogger sets the logger used by the handle and its engine.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCacheBlocks bounds how many decoded blocks a lazily opened archive keeps in memory.
func WithCacheBlocks(n int) Option {
	return func(o *options) {
		o.cacheBlocks = n
	}
}

func buildOptions(opts []Option) options {
	o := options{cacheBlocks: engine.DefaultCacheBlocks}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}
