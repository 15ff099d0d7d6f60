package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/dreamerjackson/bookcrawler/source"
)

// URLStrategy decides how a relative link found on a page is made absolute.
type URLStrategy int

const (
	// Concat prefixes the base onto any value without a scheme, as plain
	// string concatenation. Existing rule sets are tuned against it, so it is
	// the default even though it can produce double slashes or drop path
	// segments.
	Concat URLStrategy = iota
	// Resolve applies RFC 3986 reference resolution.
	Resolve
)

func (s URLStrategy) String() string {
	switch s {
	case Resolve:
		return source.ResolveRFC3986
	default:
		return source.ResolveConcat
	}
}

// ParseURLStrategy maps a configuration value to a strategy; unknown values
// fall back to Concat.
func ParseURLStrategy(name string) URLStrategy {
	if strings.EqualFold(strings.TrimSpace(name), source.ResolveRFC3986) {
		return Resolve
	}

	return Concat
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

func hasScheme(ref string) bool {
	return schemeRe.MatchString(ref)
}

// Absolute returns ref unchanged when it carries a scheme, otherwise ref made
// absolute against base.
func (s URLStrategy) Absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || hasScheme(ref) {
		return ref
	}

	if s == Resolve {
		b, err := url.Parse(base)
		r, rerr := url.Parse(ref)
		if err == nil && rerr == nil && b.IsAbs() {
			return b.ResolveReference(r).String()
		}
	}

	return base + ref
}
