// Package fetch retrieves pages for book sources. It is the only package in
// the module that performs network I/O.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreamerjackson/bookcrawler/source"
)

// Fetcher retrieves the page at a URL. Implementations must honour ctx
// cancellation and enforce their own timeouts.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) (*Page, error)
}

type Request struct {
	URL    string
	Header map[string]string
	// Encoding is the caller's charset hint, used when the body is not
	// valid UTF-8.
	Encoding string
	// Source keys the per-source rate limit.
	Source   string
	Interval time.Duration
}

// NewRequest builds a request for a page of rs with the source's headers,
// rate limit and the given charset hint.
func NewRequest(rs *source.RuleSet, url, encoding string) *Request {
	return &Request{
		URL:      url,
		Header:   rs.RequestHeader(),
		Encoding: encoding,
		Source:   rs.URL,
		Interval: rs.RateInterval(),
	}
}

// Page is a fetched and decoded document. URL is the final URL after
// redirects.
type Page struct {
	URL        string
	StatusCode int
	Body       string
	Raw        []byte
}

var (
	// ErrFetch matches every *Error.
	ErrFetch = errors.New("fetch failed")
	// ErrRedirect matches every *RedirectError.
	ErrRedirect = errors.New("redirect failed")

	ErrRedirectLoop     = errors.New("redirect loop")
	ErrMissingLocation  = errors.New("redirect without location")
	ErrInvalidLocation  = errors.New("invalid redirect location")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Error is a transport failure or a non-2xx response. StatusCode is zero
// when no response arrived.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrFetch
}

type RedirectError struct {
	URL      string
	Location string
	Reason   error
}

func (e *RedirectError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("redirect %s -> %s: %v", e.URL, e.Location, e.Reason)
	}

	return fmt.Sprintf("redirect %s: %v", e.URL, e.Reason)
}

func (e *RedirectError) Unwrap() error {
	return e.Reason
}

func (e *RedirectError) Is(target error) bool {
	return target == ErrRedirect
}

// Fetcher types accepted by New.
const (
	HTTPFetchType  = "http"
	CollyFetchType = "colly"
)

// New returns the fetcher named by fetchType.
func New(fetchType string, opts ...Option) (Fetcher, error) {
	switch fetchType {
	case "", HTTPFetchType:
		return NewHTTPFetcher(opts...), nil
	case CollyFetchType:
		return NewCollyFetcher(opts...), nil
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", fetchType)
	}
}
