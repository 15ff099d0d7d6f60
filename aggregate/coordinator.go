// Package aggregate fans a search keyword out across book sources and merges
// the hits. A failing source contributes nothing and never affects the
// others.
package aggregate

import (
	"context"
	"errors"
	"net/url"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/markup"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyKeyword = errors.New("empty search keyword")

type State int

const (
	Idle State = iota
	Searching
)

func (s State) String() string {
	if s == Searching {
		return "searching"
	}

	return "idle"
}

type Coordinator struct {
	options

	mu       sync.Mutex
	inflight int
}

func New(opts ...Option) *Coordinator {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Fetcher == nil {
		options.Fetcher = fetch.NewHTTPFetcher(fetch.WithLogger(options.Logger), fetch.WithMetrics(options.Metrics))
	}
	if options.Extractor == nil {
		options.Extractor = extract.New(extract.WithLogger(options.Logger))
	}
	if options.WorkCount <= 0 {
		options.WorkCount = defaultOptions.WorkCount
	}

	return &Coordinator{options: options}
}

// State is Searching while at least one Search call is running.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight > 0 {
		return Searching
	}

	return Idle
}

func (c *Coordinator) enter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight++
	if c.inflight == 1 && c.Listener != nil {
		c.Listener(Searching)
	}
}

func (c *Coordinator) leave() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight--
	if c.inflight == 0 && c.Listener != nil {
		c.Listener(Idle)
	}
}

// Enabled returns the enabled rule sets of ruleSets in their given order.
func Enabled(ruleSets []*source.RuleSet) []*source.RuleSet {
	enabled := make([]*source.RuleSet, 0, len(ruleSets))
	for _, rs := range ruleSets {
		if rs != nil && rs.Enabled {
			enabled = append(enabled, rs)
		}
	}

	return enabled
}

// Search queries every enabled rule set concurrently and returns the hits in
// the order the sources finish. It fails only for an empty keyword or when
// ctx is done, in which case partial results are dropped.
func (c *Coordinator) Search(ctx context.Context, keyword string, ruleSets []*source.RuleSet) ([]extract.SearchResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	c.enter()
	defer c.leave()

	enabled := Enabled(ruleSets)
	for i := len(enabled); i < len(ruleSets); i++ {
		c.Metrics.IncSource(metrics.OutcomeSkipped)
	}

	out := make(chan []extract.SearchResult, len(enabled))
	var g errgroup.Group
	g.SetLimit(c.WorkCount)
	for _, rs := range enabled {
		if ctx.Err() != nil {
			break
		}
		rs := rs
		g.Go(func() error {
			out <- c.isolated(ctx, keyword, rs)
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	results := make([]extract.SearchResult, 0)
	for part := range out {
		results = append(results, part...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.Metrics.AddResults(len(results))
	c.Logger.Info("search finished",
		zap.String("keyword", keyword),
		zap.Int("sources", len(enabled)),
		zap.Int("results", len(results)))

	return results, nil
}

// isolated runs one source's search, converting any error or panic into an
// empty contribution.
func (c *Coordinator) isolated(ctx context.Context, keyword string, rs *source.RuleSet) (results []extract.SearchResult) {
	defer func() {
		if err := recover(); err != nil {
			c.Logger.Error("search task panic",
				zap.String("source", rs.Name),
				zap.Any("err", err),
				zap.String("stack", string(debug.Stack())))
			c.Metrics.IncSource(metrics.OutcomeFailed)
			results = nil
		}
	}()

	results, err := c.SearchSource(ctx, keyword, rs)
	if err != nil {
		c.Logger.Warn("source search failed",
			zap.String("source", rs.Name),
			zap.Error(err))
		c.Metrics.IncSource(metrics.OutcomeFailed)

		return nil
	}
	c.Metrics.IncSource(metrics.OutcomeOK)

	return results
}

// SearchSource runs the search of a single rule set and reports its errors.
func (c *Coordinator) SearchSource(ctx context.Context, keyword string, rs *source.RuleSet) ([]extract.SearchResult, error) {
	page, err := c.Fetcher.Fetch(ctx, fetch.NewRequest(rs, SearchURL(rs, keyword), pageEncoding(rs)))
	if err != nil {
		return nil, err
	}

	doc, err := markup.Parse(page.Body, markup.WithLocation(page.URL))
	if err != nil {
		return nil, err
	}

	return c.Extractor.SearchResults(doc, rs.SearchRule, rs)
}

// SearchURL substitutes the keyword, percent-encoded in the source's search
// encoding, into the search URL template.
func SearchURL(rs *source.RuleSet, keyword string) string {
	escaped := url.QueryEscape(string(fetch.Encode(keyword, rs.SearchEncoding)))
	escaped = strings.ReplaceAll(escaped, "+", "%20")

	return strings.ReplaceAll(rs.SearchURL, source.KeywordPlaceholder, escaped)
}

func pageEncoding(rs *source.RuleSet) string {
	if e := rs.PageEncoding(); !strings.EqualFold(e, "utf-8") {
		return e
	}

	return rs.SearchEncoding
}

// SortByWeight orders results by source weight, heaviest first, then by
// source name. Hits of one source keep their relative order.
func SortByWeight(results []extract.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		wi, wj := weight(results[i]), weight(results[j])
		if wi != wj {
			return wi > wj
		}

		return results[i].SourceName() < results[j].SourceName()
	})
}

func weight(r extract.SearchResult) int {
	if r.Source == nil {
		return 0
	}

	return r.Source.Weight
}
