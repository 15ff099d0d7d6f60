package fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dreamerjackson/bookcrawler/extensions"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher is a Fetcher backed by a colly collector. Redirects are left
// to the collector and bounded by MaxRedirects. The collector has no context
// of its own; ctx reaches the request through the transport, so cancellation
// aborts the round trip but not colly's own bookkeeping around it.
type CollyFetcher struct {
	options
	base http.RoundTripper
}

func NewCollyFetcher(opts ...Option) *CollyFetcher {
	options := buildOptions(opts)
	return &CollyFetcher{options: options, base: transport(options)}
}

// contextTransport binds every request to ctx.
type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

func (f *CollyFetcher) Fetch(ctx context.Context, req *Request) (*Page, error) {
	start := time.Now()
	page, err := f.fetch(ctx, req)
	f.Metrics.ObserveFetch(statusLabel(page, err), time.Since(start))
	if err != nil {
		f.Logger.Debug("colly fetch failed", zap.String("url", req.URL), zap.Error(err))
	}

	return page, err
}

func (f *CollyFetcher) collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(int(f.MaxBodySize)),
		colly.UserAgent(extensions.GenerateRandomUA()),
	)
	c.SetRequestTimeout(f.Timeout)
	c.WithTransport(contextTransport{ctx: ctx, next: f.base})

	c.SetRedirectHandler(func(r *http.Request, via []*http.Request) error {
		for _, prev := range via {
			if prev.URL.String() == r.URL.String() {
				return &RedirectError{URL: via[len(via)-1].URL.String(), Location: r.URL.String(), Reason: ErrRedirectLoop}
			}
		}
		if len(via) > f.MaxRedirects {
			return &RedirectError{URL: via[len(via)-1].URL.String(), Location: r.URL.String(), Reason: ErrTooManyRedirects}
		}

		return nil
	})

	return c
}

func (f *CollyFetcher) fetch(ctx context.Context, req *Request) (*Page, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx, req.Source, req.Interval); err != nil {
			return nil, &Error{URL: req.URL, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{URL: req.URL, Err: err}
	}

	var (
		page *Page
		ferr error
	)
	c := f.collector(ctx)
	c.OnRequest(func(r *colly.Request) {
		for k, v := range req.Header {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       Decode(r.Body, req.Encoding, r.Headers.Get("Content-Type")),
			Raw:        r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		ferr = f.wrap(req.URL, r, err)
	})

	if err := c.Visit(req.URL); err != nil && ferr == nil {
		ferr = f.wrap(req.URL, nil, err)
	}
	if ferr != nil {
		return nil, ferr
	}
	if page == nil {
		return nil, &Error{URL: req.URL, Err: errors.New("no response")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{URL: req.URL, Err: err}
	}

	return page, nil
}

func (f *CollyFetcher) wrap(target string, r *colly.Response, err error) error {
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return redirect
	}
	if r != nil && isRedirect(r.StatusCode) {
		// the client follows every redirect that carries a usable Location
		location := ""
		if r.Headers != nil {
			location = r.Headers.Get("Location")
		}
		if location == "" {
			return &RedirectError{URL: target, Reason: ErrMissingLocation}
		}
		return &RedirectError{URL: target, Location: location, Reason: ErrInvalidLocation}
	}
	if r != nil && r.StatusCode != 0 {
		return &Error{URL: target, StatusCode: r.StatusCode, Err: err}
	}

	return &Error{URL: target, Err: err}
}
