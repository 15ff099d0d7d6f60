package proxy

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// Func has the signature of http.Transport.Proxy.
type Func func(*http.Request) (*url.URL, error)

var ErrNoProxy = errors.New("proxy url list is empty")

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

func (r *roundRobinSwitcher) GetProxy(*http.Request) (*url.URL, error) {
	if len(r.proxyURLs) == 0 {
		return nil, ErrNoProxy
	}
	index := atomic.AddUint32(&r.index, 1) - 1

	return r.proxyURLs[index%uint32(len(r.proxyURLs))], nil
}

// RoundRobinProxySwitcher returns a proxy function that rotates through
// proxyURLs on every request. "http", "https" and "socks5" schemes are
// supported; a URL without scheme is taken as http.
func RoundRobinProxySwitcher(proxyURLs ...string) (Func, error) {
	urls := make([]*url.URL, 0, len(proxyURLs))
	for _, u := range proxyURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.Contains(u, "://") {
			u = "http://" + u
		}
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, err
		}
		urls = append(urls, parsed)
	}
	if len(urls) == 0 {
		return nil, ErrNoProxy
	}

	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}
