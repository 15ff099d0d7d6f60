// Package config loads config.toml through go-micro config with the TOML
// encoder. Every key is optional.
package config

import (
	"fmt"
	"time"

	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/sourcestore"
	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
)

const DefaultPath = "config.toml"

type Config struct {
	LogLevel  string
	LogFile   string
	Fetcher   Fetcher
	Storage   sourcestore.Config
	Search    Search
	Validator Validator
	Server    Server
}

type Fetcher struct {
	Type         string
	Timeout      time.Duration
	Proxy        []string
	MaxRedirects int
	// MaxQPS caps requests per second across all sources; 0 disables it.
	MaxQPS    int
	CacheSize int
	CacheTTL  time.Duration
}

type Search struct {
	WorkCount     int
	URLResolution string
}

type Validator struct {
	ProbeKeyword string
	WorkCount    int
}

type Server struct {
	HTTP  string
	Token string
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "INFO",
		Fetcher: Fetcher{
			Type:         fetch.HTTPFetchType,
			Timeout:      10 * time.Second,
			Proxy:        []string{},
			MaxRedirects: 10,
			CacheSize:    fetch.DefaultCacheSize,
			CacheTTL:     fetch.DefaultCacheTTL,
		},
		Storage: sourcestore.Config{
			Type: sourcestore.SQLiteType,
			Path: "bookcrawler.db",
		},
		Search:    Search{WorkCount: 8},
		Validator: Validator{ProbeKeyword: "测试", WorkCount: 4},
		Server:    Server{HTTP: ":8080"},
	}
}

// Load reads the TOML file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		return nil, err
	}
	err = cfg.Load(file.NewSource(
		file.WithPath(path),
		source.WithEncoder(enc),
	))
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	c.LogLevel = cfg.Get("logLevel").String(c.LogLevel)
	c.LogFile = cfg.Get("logFile").String(c.LogFile)

	c.Fetcher.Type = cfg.Get("fetcher", "type").String(c.Fetcher.Type)
	c.Fetcher.Timeout = millis(cfg.Get("fetcher", "timeout").Int(int(c.Fetcher.Timeout / time.Millisecond)))
	c.Fetcher.Proxy = cfg.Get("fetcher", "proxy").StringSlice(c.Fetcher.Proxy)
	c.Fetcher.MaxRedirects = cfg.Get("fetcher", "maxRedirects").Int(c.Fetcher.MaxRedirects)
	c.Fetcher.MaxQPS = cfg.Get("fetcher", "maxQPS").Int(c.Fetcher.MaxQPS)
	c.Fetcher.CacheSize = cfg.Get("fetcher", "cacheSize").Int(c.Fetcher.CacheSize)
	c.Fetcher.CacheTTL = time.Duration(cfg.Get("fetcher", "cacheTTL").Int(int(c.Fetcher.CacheTTL/time.Second))) * time.Second

	c.Storage.Type = cfg.Get("storage", "type").String(c.Storage.Type)
	c.Storage.SQLURL = cfg.Get("storage", "sqlURL").String(c.Storage.SQLURL)
	c.Storage.Path = cfg.Get("storage", "path").String(c.Storage.Path)
	c.Storage.Endpoints = cfg.Get("storage", "endpoints").StringSlice(c.Storage.Endpoints)

	c.Search.WorkCount = cfg.Get("search", "workCount").Int(c.Search.WorkCount)
	c.Search.URLResolution = cfg.Get("search", "urlResolution").String(c.Search.URLResolution)

	c.Validator.ProbeKeyword = cfg.Get("validator", "probeKeyword").String(c.Validator.ProbeKeyword)
	c.Validator.WorkCount = cfg.Get("validator", "workCount").Int(c.Validator.WorkCount)

	c.Server.HTTP = cfg.Get("server", "http").String(c.Server.HTTP)
	c.Server.Token = cfg.Get("server", "token").String(c.Server.Token)

	return c, nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
