package fetch

import (
	"net/http"
	"time"

	"github.com/dreamerjackson/bookcrawler/limiter"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/proxy"
	"go.uber.org/zap"
)

type Option func(opts *options)

type options struct {
	Logger       *zap.Logger
	Timeout      time.Duration
	Proxy        proxy.Func
	MaxRedirects int
	MaxBodySize  int64
	Limiter      *limiter.Registry
	Metrics      *metrics.Metrics
	Transport    http.RoundTripper
}

var defaultOptions = options{
	Logger:       zap.NewNop(),
	Timeout:      10 * time.Second,
	MaxRedirects: 10,
	MaxBodySize:  8 << 20,
}

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.Timeout = timeout
	}
}

func WithProxy(p proxy.Func) Option {
	return func(opts *options) {
		opts.Proxy = p
	}
}

func WithMaxRedirects(n int) Option {
	return func(opts *options) {
		opts.MaxRedirects = n
	}
}

func WithMaxBodySize(n int64) Option {
	return func(opts *options) {
		opts.MaxBodySize = n
	}
}

func WithLimiter(l *limiter.Registry) Option {
	return func(opts *options) {
		opts.Limiter = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *options) {
		opts.Metrics = m
	}
}

// WithTransport replaces the HTTP transport. Proxy settings are ignored when
// a transport is given.
func WithTransport(t http.RoundTripper) Option {
	return func(opts *options) {
		opts.Transport = t
	}
}

func buildOptions(opts []Option) options {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	return options
}
