package extract

import (
	"time"

	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Logger       *zap.Logger
	URLStrategy  URLStrategy
	ScriptBudget time.Duration
}

var defaultOptions = options{
	Logger:       zap.NewNop(),
	URLStrategy:  Concat,
	ScriptBudget: time.Second,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

// WithURLStrategy sets the strategy used for rule sets that do not choose one.
func WithURLStrategy(s URLStrategy) Option {
	return func(opts *options) {
		opts.URLStrategy = s
	}
}

// WithScriptBudget bounds the run time of each @js: script. Zero disables the
// bound.
func WithScriptBudget(d time.Duration) Option {
	return func(opts *options) {
		opts.ScriptBudget = d
	}
}
