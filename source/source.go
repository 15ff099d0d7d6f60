// Package source holds the declarative description of a book source: how to
// reach it and how to extract search hits, book info, chapter lists and
// chapter content from its pages.
package source

import (
	"time"
)

// KeywordPlaceholder is replaced by the search keyword in RuleSet.SearchURL.
const KeywordPlaceholder = "{keyword}"

const defaultCharset = "utf-8"

// URL resolution strategies for relative links extracted from a page.
const (
	ResolveConcat  = "concat"
	ResolveRFC3986 = "resolve"
)

// RuleSet is read-only for every consumer in this module; stores hand out
// copies.
type RuleSet struct {
	ID        int64             `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string            `json:"name" yaml:"name"`
	URL       string            `json:"url" yaml:"url"`
	SearchURL string            `json:"searchUrl" yaml:"searchUrl"`
	Enabled   bool              `json:"enabled" yaml:"enabled"`
	Weight    int               `json:"weight" yaml:"weight"`
	Header    map[string]string `json:"header" yaml:"header"`

	SearchRule   SearchRule   `json:"searchRule" yaml:"searchRule"`
	BookInfoRule BookInfoRule `json:"bookInfoRule" yaml:"bookInfoRule"`
	ChapterRule  ChapterRule  `json:"chapterListRule" yaml:"chapterListRule"`
	ContentRule  ContentRule  `json:"contentRule" yaml:"contentRule"`

	Charset   string `json:"charset" yaml:"charset"`
	LoginURL  string `json:"loginUrl,omitempty" yaml:"loginUrl,omitempty"`
	Cookies   string `json:"cookies,omitempty" yaml:"cookies,omitempty"`
	UserAgent string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	RateLimit int    `json:"rateLimit" yaml:"rateLimit"` // minimum interval between requests, ms

	SearchEncoding      string        `json:"searchEncoding" yaml:"searchEncoding"`
	ContentEncoding     string        `json:"contentEncoding" yaml:"contentEncoding"`
	ContentReplaceRules []ReplaceRule `json:"contentReplaceRules" yaml:"contentReplaceRules"`

	// URLResolution overrides how relative links are made absolute; empty
	// means the extractor default.
	URLResolution string `json:"urlResolution,omitempty" yaml:"urlResolution,omitempty"`
}

type SearchRule struct {
	List        string `json:"list" yaml:"list"`
	Name        string `json:"name" yaml:"name"`
	Author      string `json:"author" yaml:"author"`
	Intro       string `json:"intro" yaml:"intro"`
	CoverURL    string `json:"coverUrl" yaml:"coverUrl"`
	BookURL     string `json:"bookUrl" yaml:"bookUrl"`
	LastChapter string `json:"lastChapter,omitempty" yaml:"lastChapter,omitempty"`
	WordCount   string `json:"wordCount,omitempty" yaml:"wordCount,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
}

type BookInfoRule struct {
	Name        string `json:"name" yaml:"name"`
	Author      string `json:"author" yaml:"author"`
	Cover       string `json:"cover" yaml:"cover"`
	Intro       string `json:"intro" yaml:"intro"`
	LastChapter string `json:"lastChapter" yaml:"lastChapter"`
	Catalog     string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty" yaml:"updateTime,omitempty"`
	WordCount   string `json:"wordCount,omitempty" yaml:"wordCount,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

type ChapterRule struct {
	List       string `json:"list" yaml:"list"`
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	NextPage   string `json:"nextPage,omitempty" yaml:"nextPage,omitempty"`
	UpdateTime string `json:"updateTime,omitempty" yaml:"updateTime,omitempty"`
	IsVIP      string `json:"isVip,omitempty" yaml:"isVip,omitempty"`
}

type ContentRule struct {
	Content string   `json:"content" yaml:"content"`
	Next    string   `json:"next" yaml:"next"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Ads     []string `json:"ads" yaml:"ads"`       // nodes removed before text extraction
	Purify  []string `json:"purify" yaml:"purify"` // regexps removed from the extracted text
}

// ReplaceRule rewrites chapter text after purification.
type ReplaceRule struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`
	IsRegex     bool   `json:"isRegex" yaml:"isRegex"`
}

// New returns a RuleSet carrying the defaults applied on import.
func New() *RuleSet {
	return &RuleSet{
		Enabled:         true,
		Charset:         defaultCharset,
		SearchEncoding:  defaultCharset,
		ContentEncoding: defaultCharset,
	}
}

// Validate checks the identity fields every rule set must carry.
func (r *RuleSet) Validate() error {
	switch {
	case r.Name == "":
		return &MissingFieldError{Field: "name"}
	case r.URL == "":
		return &MissingFieldError{Field: "url"}
	case r.SearchURL == "":
		return &MissingFieldError{Field: "searchUrl"}
	}

	return nil
}

// RequestHeader returns a fresh header map with the source's custom headers,
// user agent and cookies.
func (r *RuleSet) RequestHeader() map[string]string {
	h := make(map[string]string, len(r.Header)+2)
	for k, v := range r.Header {
		h[k] = v
	}
	if r.UserAgent != "" {
		h["User-Agent"] = r.UserAgent
	}
	if r.Cookies != "" {
		h["Cookie"] = r.Cookies
	}

	return h
}

func (r *RuleSet) RateInterval() time.Duration {
	if r.RateLimit <= 0 {
		return 0
	}

	return time.Duration(r.RateLimit) * time.Millisecond
}

// PageEncoding is the decode hint for book and chapter pages.
func (r *RuleSet) PageEncoding() string {
	if r.ContentEncoding != "" && r.ContentEncoding != defaultCharset {
		return r.ContentEncoding
	}
	if r.Charset != "" {
		return r.Charset
	}

	return defaultCharset
}

// Clone returns a deep copy.
func (r *RuleSet) Clone() *RuleSet {
	c := *r
	if r.Header != nil {
		c.Header = make(map[string]string, len(r.Header))
		for k, v := range r.Header {
			c.Header[k] = v
		}
	}
	c.ContentRule.Ads = cloneSlice(r.ContentRule.Ads)
	c.ContentRule.Purify = cloneSlice(r.ContentRule.Purify)
	c.ContentReplaceRules = cloneSlice(r.ContentReplaceRules)

	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}

	return append(make([]T, 0, len(s)), s...)
}
