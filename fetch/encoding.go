package fetch

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const sniffLen = 1024

// Decode turns a response body into text. Valid UTF-8 is taken as is;
// otherwise the hint is tried, then the charset sniffed from the content
// type and the document head.
func Decode(raw []byte, hint, contentType string) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	if e := lookup(hint); e != nil {
		if s, _, err := transform.Bytes(e.NewDecoder(), raw); err == nil {
			return string(s)
		}
	}

	s, _, err := transform.Bytes(DetermineEncoding(raw, contentType).NewDecoder(), raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}

	return string(s)
}

// DetermineEncoding sniffs the encoding from the first bytes of the body.
func DetermineEncoding(raw []byte, contentType string) encoding.Encoding {
	if len(raw) > sniffLen {
		raw = raw[:sniffLen]
	}
	e, _, _ := charset.DetermineEncoding(raw, contentType)

	return e
}

func lookup(name string) encoding.Encoding {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}

	return e
}

// Encode converts s to the named charset, falling back to UTF-8 bytes for an
// unknown or UTF-8 charset or an unrepresentable string.
func Encode(s, name string) []byte {
	e := lookup(name)
	if e == nil {
		return []byte(s)
	}
	b, _, err := transform.Bytes(e.NewEncoder(), []byte(s))
	if err != nil {
		return []byte(s)
	}

	return b
}
