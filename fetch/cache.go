package fetch

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 512
	DefaultCacheTTL  = 7 * 24 * time.Hour
)

// CachedFetcher keeps successfully fetched pages in an expiring LRU keyed by
// URL and charset hint. Failures are never cached.
type CachedFetcher struct {
	next  Fetcher
	cache *expirable.LRU[string, *Page]
}

func NewCachedFetcher(next Fetcher, size int, ttl time.Duration) *CachedFetcher {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &CachedFetcher{
		next:  next,
		cache: expirable.NewLRU[string, *Page](size, nil, ttl),
	}
}

func cacheKey(req *Request) string {
	return req.URL + "\x00" + req.Encoding
}

func (c *CachedFetcher) Fetch(ctx context.Context, req *Request) (*Page, error) {
	key := cacheKey(req)
	if page, ok := c.cache.Get(key); ok {
		return page, nil
	}

	page, err := c.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, page)

	return page, nil
}

func (c *CachedFetcher) Len() int {
	return c.cache.Len()
}

func (c *CachedFetcher) Purge() {
	c.cache.Purge()
}

// Next returns the wrapped fetcher, for callers that must bypass the cache.
func (c *CachedFetcher) Next() Fetcher {
	return c.next
}
