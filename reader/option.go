package reader

import (
	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Fetcher      fetch.Fetcher
	Extractor    *extract.Extractor
	Logger       *zap.Logger
	MaxTOCPages  int
	MaxPageParts int
}

var defaultOptions = options{
	Logger:       zap.NewNop(),
	MaxTOCPages:  50,
	MaxPageParts: 20,
}

// WithFetcher sets the gateway. Wrap it in fetch.CachedFetcher to keep
// chapter pages between reads.
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

// WithMaxTOCPages bounds how many chapter list pages are followed.
func WithMaxTOCPages(n int) Option {
	return func(opts *options) {
		opts.MaxTOCPages = n
	}
}

// WithMaxPageParts bounds how many pages one chapter may span.
func WithMaxPageParts(n int) Option {
	return func(opts *options) {
		opts.MaxPageParts = n
	}
}
