package aggregate

import (
	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	WorkCount int
	Fetcher   fetch.Fetcher
	Extractor *extract.Extractor
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Listener  func(State)
}

var defaultOptions = options{
	WorkCount: 8,
	Logger:    zap.NewNop(),
}

func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}

func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(opts *options) {
		opts.Fetcher = fetcher
	}
}

func WithExtractor(e *extract.Extractor) Option {
	return func(opts *options) {
		opts.Extractor = e
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.Metrics = m
	}
}

// WithStateListener registers fn to be told of every Idle/Searching
// transition. fn runs synchronously and must not call back into the
// coordinator.
func WithStateListener(fn func(State)) Option {
	return func(opts *options) {
		opts.Listener = fn
	}
}
