package extract

import "github.com/dreamerjackson/bookcrawler/source"

// SearchResult is one hit of a search page. Source points back to the rule
// set that produced it and must be treated as read-only.
type SearchResult struct {
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	CoverURL    string          `json:"coverUrl,omitempty"`
	BookURL     string          `json:"bookUrl"`
	Intro       string          `json:"intro"`
	LastChapter string          `json:"lastChapter,omitempty"`
	WordCount   string          `json:"wordCount,omitempty"`
	Status      string          `json:"status,omitempty"`
	Source      *source.RuleSet `json:"-"`
}

// SourceName is the name of the producing rule set, or "" when unknown.
func (r SearchResult) SourceName() string {
	if r.Source == nil {
		return ""
	}

	return r.Source.Name
}

type BookInfo struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	CoverURL    string `json:"coverUrl,omitempty"`
	Intro       string `json:"intro"`
	LastChapter string `json:"lastChapter"`
	CatalogURL  string `json:"catalogUrl,omitempty"`
	Status      string `json:"status,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
	WordCount   string `json:"wordCount,omitempty"`
	Category    string `json:"category,omitempty"`
}

type Chapter struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	UpdateTime string `json:"updateTime,omitempty"`
	VIP        bool   `json:"vip,omitempty"`
}

// ChapterList holds the chapters of one table-of-contents page in document
// order. NextURL is set when the page links to a further page.
type ChapterList struct {
	Chapters []Chapter `json:"chapters"`
	NextURL  string    `json:"nextUrl,omitempty"`
}

// Content is the purified text of one chapter page.
type Content struct {
	Title   string `json:"title,omitempty"`
	Text    string `json:"text"`
	NextURL string `json:"nextUrl,omitempty"`
}
