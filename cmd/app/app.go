// Package app wires the configured components shared by every command.
package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/dreamerjackson/bookcrawler/aggregate"
	"github.com/dreamerjackson/bookcrawler/config"
	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/generator"
	"github.com/dreamerjackson/bookcrawler/limiter"
	"github.com/dreamerjackson/bookcrawler/log"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/proxy"
	"github.com/dreamerjackson/bookcrawler/reader"
	"github.com/dreamerjackson/bookcrawler/sourcestore"
	"github.com/dreamerjackson/bookcrawler/validator"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ConfigPath is bound to the root --config flag.
var ConfigPath string

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Fetcher   *fetch.CachedFetcher
	Extractor *extract.Extractor
	Store     sourcestore.Store

	logCloser io.Closer
}

func configPath() string {
	if ConfigPath != "" {
		return ConfigPath
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.DefaultPath
	}

	return ""
}

// New loads the configuration and builds logger, fetcher and store.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	logger, closer, err := log.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics.New(),
		logCloser: closer,
	}

	if a.Fetcher, err = a.newFetcher(); err != nil {
		a.Close()
		return nil, err
	}
	a.Extractor = extract.New(
		extract.WithLogger(logger.Named("extract")),
		extract.WithURLStrategy(extract.ParseURLStrategy(cfg.Search.URLResolution)),
	)

	node, err := generator.NewNode("")
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.Store, err = sourcestore.Open(ctx, cfg.Storage, node, logger.Named("store")); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) newFetcher() (*fetch.CachedFetcher, error) {
	cfg := a.Config.Fetcher

	var shared limiter.RateLimiter
	if cfg.MaxQPS > 0 {
		shared = rate.NewLimiter(limiter.Per(cfg.MaxQPS, time.Second), cfg.MaxQPS)
	}

	opts := []fetch.Option{
		fetch.WithLogger(a.Logger.Named("fetch")),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxRedirects(cfg.MaxRedirects),
		fetch.WithLimiter(limiter.NewRegistry(shared)),
		fetch.WithMetrics(a.Metrics),
	}
	if len(cfg.Proxy) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(cfg.Proxy...)
		if err != nil && !errors.Is(err, proxy.ErrNoProxy) {
			return nil, err
		}
		if p != nil {
			opts = append(opts, fetch.WithProxy(p))
		}
	}

	f, err := fetch.New(cfg.Type, opts...)
	if err != nil {
		return nil, err
	}

	return fetch.NewCachedFetcher(f, cfg.CacheSize, cfg.CacheTTL), nil
}

// Coordinator searches without the page cache so results stay fresh.
func (a *App) Coordinator() *aggregate.Coordinator {
	return aggregate.New(
		aggregate.WithFetcher(a.Fetcher.Next()),
		aggregate.WithExtractor(a.Extractor),
		aggregate.WithLogger(a.Logger.Named("aggregate")),
		aggregate.WithMetrics(a.Metrics),
		aggregate.WithWorkCount(a.Config.Search.WorkCount),
	)
}

func (a *App) Validator() *validator.Validator {
	return validator.New(
		validator.WithFetcher(a.Fetcher.Next()),
		validator.WithExtractor(a.Extractor),
		validator.WithLogger(a.Logger.Named("validator")),
		validator.WithMetrics(a.Metrics),
		validator.WithProbeKeyword(a.Config.Validator.ProbeKeyword),
		validator.WithWorkCount(a.Config.Validator.WorkCount),
	)
}

func (a *App) Reader() *reader.Reader {
	return reader.New(
		reader.WithFetcher(a.Fetcher),
		reader.WithExtractor(a.Extractor),
		reader.WithLogger(a.Logger.Named("reader")),
	)
}

func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error("close store failed", zap.Error(err))
		}
	}
	a.Logger.Sync()
	a.logCloser.Close()
}
