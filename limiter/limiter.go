package limiter

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(context.Context) error
	Limit() rate.Limit
}

// Per returns the limit of eventCount events per duration.
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

// Multi combines limiters; Wait blocks until every one of them admits the
// event, strictest first.
func Multi(limiters ...RateLimiter) *MultiLimiter {
	sorted := make([]RateLimiter, 0, len(limiters))
	for _, l := range limiters {
		if l != nil {
			sorted = append(sorted, l)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Limit() < sorted[j].Limit()
	})

	return &MultiLimiter{limiters: sorted}
}

type MultiLimiter struct {
	limiters []RateLimiter
}

func (l *MultiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (l *MultiLimiter) Limit() rate.Limit {
	if len(l.limiters) == 0 {
		return rate.Inf
	}

	return l.limiters[0].Limit()
}

// Registry keeps one limiter per book source so requests to the same site
// are spaced by the source's minimum interval. A shared limiter, when set,
// applies to every request on top of that.
type Registry struct {
	shared RateLimiter

	mu       sync.Mutex
	bySource map[string]*sourceLimiter
}

type sourceLimiter struct {
	interval time.Duration
	limiter  RateLimiter
}

func NewRegistry(shared RateLimiter) *Registry {
	return &Registry{shared: shared, bySource: make(map[string]*sourceLimiter)}
}

// Wait blocks until a request for key may be sent. A non-positive interval
// leaves the source unthrottled. Changing the interval for a key replaces its
// limiter.
func (r *Registry) Wait(ctx context.Context, key string, interval time.Duration) error {
	if l := r.get(key, interval); l != nil {
		return l.Wait(ctx)
	}

	return nil
}

func (r *Registry) get(key string, interval time.Duration) RateLimiter {
	if interval <= 0 {
		return r.shared
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sl, ok := r.bySource[key]; ok && sl.interval == interval {
		return sl.limiter
	}

	var l RateLimiter = rate.NewLimiter(rate.Every(interval), 1)
	if r.shared != nil {
		l = Multi(r.shared, l)
	}
	r.bySource[key] = &sourceLimiter{interval: interval, limiter: l}

	return l
}
