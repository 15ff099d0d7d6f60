package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dreamerjackson/bookcrawler/extensions"
	"go.uber.org/zap"
)

// HTTPFetcher fetches pages like a browser would: random user agent unless
// the source sets one, optional proxy rotation, and redirects followed by
// hand so every hop is checked and counted.
type HTTPFetcher struct {
	options
	client *http.Client
}

func transport(options options) http.RoundTripper {
	if options.Transport != nil {
		return options.Transport
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	if options.Proxy != nil {
		t.Proxy = options.Proxy
	}

	return t
}

func NewHTTPFetcher(opts ...Option) *HTTPFetcher {
	options := buildOptions(opts)

	return &HTTPFetcher{
		options: options,
		client: &http.Client{
			Timeout:   options.Timeout,
			Transport: transport(options),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, req *Request) (*Page, error) {
	start := time.Now()
	page, err := f.fetch(ctx, req)
	f.Metrics.ObserveFetch(statusLabel(page, err), time.Since(start))
	if err != nil {
		f.Logger.Debug("fetch failed", zap.String("url", req.URL), zap.Error(err))
	}

	return page, err
}

func (f *HTTPFetcher) fetch(ctx context.Context, req *Request) (*Page, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx, req.Source, req.Interval); err != nil {
			return nil, &Error{URL: req.URL, Err: err}
		}
	}

	current := req.URL
	visited := make(map[string]struct{})
	for hops := 0; ; hops++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{URL: current, Err: err}
		}
		visited[current] = struct{}{}

		resp, err := f.do(ctx, current, req.Header)
		if err != nil {
			return nil, &Error{URL: current, Err: err}
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			discard(resp)

			next, err := f.nextHop(current, location, hops, visited)
			if err != nil {
				return nil, err
			}
			f.Logger.Debug("follow redirect", zap.String("from", current), zap.String("to", next))
			current = next
			continue
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxBodySize))
		resp.Body.Close()
		if err != nil {
			return nil, &Error{URL: current, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &Error{URL: current, StatusCode: resp.StatusCode}
		}

		return &Page{
			URL:        current,
			StatusCode: resp.StatusCode,
			Body:       Decode(raw, req.Encoding, resp.Header.Get("Content-Type")),
			Raw:        raw,
		}, nil
	}
}

func (f *HTTPFetcher) nextHop(current, location string, hops int, visited map[string]struct{}) (string, error) {
	if location == "" {
		return "", &RedirectError{URL: current, Reason: ErrMissingLocation}
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", &RedirectError{URL: current, Location: location, Reason: fmt.Errorf("%w: %v", ErrInvalidLocation, err)}
	}
	ref, err := base.Parse(location)
	if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
		return "", &RedirectError{URL: current, Location: location, Reason: ErrInvalidLocation}
	}

	next := ref.String()
	if _, seen := visited[next]; seen {
		return "", &RedirectError{URL: current, Location: next, Reason: ErrRedirectLoop}
	}
	if hops+1 > f.MaxRedirects {
		return "", &RedirectError{URL: current, Location: next, Reason: ErrTooManyRedirects}
	}

	return next, nil
}

func (f *HTTPFetcher) do(ctx context.Context, target string, header map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("get url failed: %w", err)
	}

	for k, v := range header {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", extensions.GenerateRandomUA())
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	}

	return f.client.Do(req)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func statusLabel(page *Page, err error) string {
	if err == nil {
		return fmt.Sprintf("%dxx", page.StatusCode/100)
	}
	switch e := err.(type) {
	case *Error:
		if e.StatusCode != 0 {
			return fmt.Sprintf("%dxx", e.StatusCode/100)
		}
	case *RedirectError:
		return "redirect"
	}

	return "error"
}
