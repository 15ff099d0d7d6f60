package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/metrics"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	errs   map[string]error
	panics map[string]bool
	delay  time.Duration
	seen   []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *fetch.Request) (*fetch.Page, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req.URL)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &fetch.Error{URL: req.URL, Err: ctx.Err()}
		}
	}
	if f.panics[req.URL] {
		panic("boom")
	}
	if err, ok := f.errs[req.URL]; ok {
		return nil, err
	}
	body, ok := f.pages[req.URL]
	if !ok {
		return nil, &fetch.Error{URL: req.URL, StatusCode: 404}
	}
	return &fetch.Page{URL: req.URL, StatusCode: 200, Body: body}, nil
}

func (f *fakeFetcher) requested(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.seen {
		if s == url {
			return true
		}
	}
	return false
}

func newSource(name, base string, weight int) *source.RuleSet {
	rs := source.New()
	rs.Name = name
	rs.URL = base
	rs.SearchURL = base + "/search?q={keyword}"
	rs.Weight = weight
	rs.SearchRule = source.SearchRule{List: "li", Name: "a", BookURL: "a"}
	return rs
}

const hits = `<ul><li><a href="/book/1">One</a></li><li><a href="/book/2">Two</a></li></ul>`

func TestSearchIsolatesFailures(t *testing.T) {
	good := newSource("good", "https://good.com", 1)
	bad := newSource("bad", "https://bad.com", 2)
	f := &fakeFetcher{
		pages: map[string]string{"https://good.com/search?q=foo": `<ul><li><a href="/book/9">Foo</a></li></ul>`},
		errs:  map[string]error{"https://bad.com/search?q=foo": &fetch.Error{URL: "https://bad.com/search?q=foo", Err: errors.New("connection reset")}},
	}
	m := metrics.New()

	results, err := New(WithFetcher(f), WithMetrics(m)).Search(context.Background(), "foo", []*source.RuleSet{bad, good})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Foo", results[0].Title)
	assert.Equal(t, "https://good.com/book/9", results[0].BookURL)
	assert.Same(t, good, results[0].Source)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchSources.WithLabelValues(metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchSources.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchResults))
}

func TestSearchSkipsDisabled(t *testing.T) {
	on := newSource("on", "https://on.com", 0)
	off := newSource("off", "https://off.com", 0)
	off.Enabled = false
	f := &fakeFetcher{pages: map[string]string{
		"https://on.com/search?q=x":  hits,
		"https://off.com/search?q=x": hits,
	}}

	results, err := New(WithFetcher(f)).Search(context.Background(), "x", []*source.RuleSet{off, on, nil})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.False(t, f.requested("https://off.com/search?q=x"))
	assert.True(t, f.requested("https://on.com/search?q=x"))
}

func TestSearchRecoversPanics(t *testing.T) {
	a := newSource("a", "https://a.com", 0)
	b := newSource("b", "https://b.com", 0)
	f := &fakeFetcher{
		pages:  map[string]string{"https://b.com/search?q=x": hits},
		panics: map[string]bool{"https://a.com/search?q=x": true},
	}

	results, err := New(WithFetcher(f), WithWorkCount(1)).Search(context.Background(), "x", []*source.RuleSet{a, b})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchRuleMismatchIsEmptyContribution(t *testing.T) {
	a := newSource("a", "https://a.com", 0)
	a.SearchRule.List = ""
	f := &fakeFetcher{pages: map[string]string{"https://a.com/search?q=x": hits}}

	c := New(WithFetcher(f))
	results, err := c.Search(context.Background(), "x", []*source.RuleSet{a})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err = c.SearchSource(context.Background(), "x", a)
	assert.True(t, errors.Is(err, extract.ErrRuleMismatch))
}

func TestSearchEmptyKeyword(t *testing.T) {
	_, err := New(WithFetcher(&fakeFetcher{})).Search(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyKeyword)
}

func TestSearchCancelled(t *testing.T) {
	a := newSource("a", "https://a.com", 0)
	f := &fakeFetcher{pages: map[string]string{"https://a.com/search?q=x": hits}, delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	results, err := New(WithFetcher(f)).Search(ctx, "x", []*source.RuleSet{a})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, results)
}

func TestSearchState(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	a := newSource("a", "https://a.com", 0)
	f := &fakeFetcher{pages: map[string]string{"https://a.com/search?q=x": hits}, delay: 30 * time.Millisecond}
	c := New(WithFetcher(f), WithStateListener(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))
	assert.Equal(t, Idle, c.State())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Search(context.Background(), "x", []*source.RuleSet{a})
	}()
	assert.Eventually(t, func() bool { return c.State() == Searching }, time.Second, time.Millisecond)
	<-done

	assert.Equal(t, Idle, c.State())
	assert.Equal(t, []State{Searching, Idle}, states)
	assert.Equal(t, "searching", Searching.String())
}

func TestSearchURL(t *testing.T) {
	rs := newSource("a", "https://a.com", 0)
	assert.Equal(t, "https://a.com/search?q=%E6%B5%8B%E8%AF%95", SearchURL(rs, "测试"))
	assert.Equal(t, "https://a.com/search?q=a%20b%26c", SearchURL(rs, "a b&c"))

	gbk, err := simplifiedchinese.GBK.NewEncoder().String("测试")
	require.NoError(t, err)
	rs.SearchEncoding = "gbk"
	want := "https://a.com/search?q="
	for _, b := range []byte(gbk) {
		want += "%" + string("0123456789ABCDEF"[b>>4]) + string("0123456789ABCDEF"[b&15])
	}
	assert.Equal(t, want, SearchURL(rs, "测试"))
}

func TestSortByWeight(t *testing.T) {
	light := newSource("light", "https://l.com", 1)
	heavy := newSource("heavy", "https://h.com", 5)
	alpha := newSource("alpha", "https://a.com", 1)

	results := []extract.SearchResult{
		{Title: "l1", Source: light},
		{Title: "h1", Source: heavy},
		{Title: "l2", Source: light},
		{Title: "a1", Source: alpha},
		{Title: "h2", Source: heavy},
	}
	SortByWeight(results)

	var titles []string
	for _, r := range results {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"h1", "h2", "a1", "l1", "l2"}, titles)
}
