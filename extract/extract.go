// Package extract applies the rule groups of a rule set to parsed pages and
// returns structured search hits, book info, chapter lists and chapter text.
// Extraction is pure: it never performs I/O.
package extract

import (
	"strings"

	"github.com/dreamerjackson/bookcrawler/markup"
	"github.com/dreamerjackson/bookcrawler/source"
	"go.uber.org/zap"
)

type Extractor struct {
	options
}

func New(opts ...Option) *Extractor {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &Extractor{options: options}
}

func (e *Extractor) strategy(rs *source.RuleSet) URLStrategy {
	if rs != nil && rs.URLResolution != "" {
		return ParseURLStrategy(rs.URLResolution)
	}

	return e.URLStrategy
}

// field evaluates one rule expression below ctx. An empty expression yields
// ("", false, nil).
func (e *Extractor) field(ctx *markup.Node, expr, accessor, baseURL string) (string, bool, error) {
	r := markup.ParseRule(expr)
	if r.Empty() {
		return "", false, nil
	}
	v, ok := r.Or(accessor).Apply(ctx)
	if !ok {
		return "", false, nil
	}

	if r.Script != "" {
		out, err := runScript(r.Script, v, baseURL, e.ScriptBudget)
		if err != nil {
			return "", false, err
		}
		v = out
	}

	return v, true, nil
}

// optional is field for values a page may lack. A failing script leaves the
// value empty.
func (e *Extractor) optional(ctx *markup.Node, expr, accessor, baseURL string) (string, bool) {
	v, ok, err := e.field(ctx, expr, accessor, baseURL)
	if err != nil {
		e.Logger.Debug("optional field script failed", zap.String("expr", expr), zap.Error(err))
		return "", false
	}

	return v, ok
}

func siteBase(rs *source.RuleSet) string {
	if rs == nil {
		return ""
	}

	return rs.URL
}

// pageBase is the base for links found on doc: its <base> or location,
// falling back to the rule set URL.
func pageBase(doc *markup.Document, rs *source.RuleSet) string {
	if b, ok := doc.BaseURL(); ok {
		return b
	}

	return siteBase(rs)
}

// SearchResults extracts one hit per node matched by rule.List. Hits without
// a title or book URL are dropped. A list that matches nothing yields an
// empty slice.
func (e *Extractor) SearchResults(doc *markup.Document, rule source.SearchRule, rs *source.RuleSet) ([]SearchResult, error) {
	list := strings.TrimSpace(rule.List)
	if list == "" {
		return nil, &RuleMismatchError{Group: "searchRule", Field: "list"}
	}

	base := siteBase(rs)
	strategy := e.strategy(rs)
	items := doc.Select(list)
	results := make([]SearchResult, 0, len(items))

	for i, item := range items {
		r := SearchResult{Source: rs}
		fields := []struct {
			dst      *string
			expr     string
			accessor string
		}{
			{&r.Title, rule.Name, markup.AccessText},
			{&r.Author, rule.Author, markup.AccessText},
			{&r.Intro, rule.Intro, markup.AccessText},
			{&r.CoverURL, rule.CoverURL, "src"},
			{&r.BookURL, rule.BookURL, "href"},
			{&r.LastChapter, rule.LastChapter, markup.AccessText},
			{&r.WordCount, rule.WordCount, markup.AccessText},
			{&r.Status, rule.Status, markup.AccessText},
		}
		for _, f := range fields {
			*f.dst, _ = e.optional(item, f.expr, f.accessor, base)
		}

		if r.Title == "" || r.BookURL == "" {
			e.Logger.Debug("drop incomplete search hit",
				zap.String("source", r.SourceName()),
				zap.Int("index", i),
				zap.String("title", r.Title),
				zap.String("bookUrl", r.BookURL))
			continue
		}
		r.BookURL = strategy.Absolute(base, r.BookURL)
		r.CoverURL = strategy.Absolute(base, r.CoverURL)
		results = append(results, r)
	}

	return results, nil
}

// BookInfo extracts the detail fields of a book page. Name is required.
func (e *Extractor) BookInfo(doc *markup.Document, rule source.BookInfoRule, rs *source.RuleSet) (*BookInfo, error) {
	base := siteBase(rs)
	root := doc.Root()

	title, ok, err := e.field(root, rule.Name, markup.AccessText, base)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &RuleMismatchError{Group: "bookInfoRule", Field: "name", Expr: rule.Name}
	}

	info := &BookInfo{Title: title}
	fields := []struct {
		dst      *string
		expr     string
		accessor string
	}{
		{&info.Author, rule.Author, markup.AccessText},
		{&info.CoverURL, rule.Cover, "src"},
		{&info.Intro, rule.Intro, markup.AccessBlock},
		{&info.LastChapter, rule.LastChapter, markup.AccessText},
		{&info.CatalogURL, rule.Catalog, "href"},
		{&info.Status, rule.Status, markup.AccessText},
		{&info.UpdateTime, rule.UpdateTime, markup.AccessText},
		{&info.WordCount, rule.WordCount, markup.AccessText},
		{&info.Category, rule.Category, markup.AccessText},
	}
	for _, f := range fields {
		*f.dst, _ = e.optional(root, f.expr, f.accessor, base)
	}

	strategy := e.strategy(rs)
	info.CoverURL = strategy.Absolute(base, info.CoverURL)
	info.CatalogURL = strategy.Absolute(base, info.CatalogURL)

	return info, nil
}

// ChapterList extracts the chapters of a table-of-contents page in document
// order. Chapter links resolve against the page itself. Nodes without a link
// are skipped.
func (e *Extractor) ChapterList(doc *markup.Document, rule source.ChapterRule, rs *source.RuleSet) (*ChapterList, error) {
	list := strings.TrimSpace(rule.List)
	if list == "" {
		return nil, &RuleMismatchError{Group: "chapterListRule", Field: "list"}
	}

	base := pageBase(doc, rs)
	strategy := e.strategy(rs)
	items := doc.Select(list)
	out := &ChapterList{Chapters: make([]Chapter, 0, len(items))}

	for _, item := range items {
		name, _ := e.optional(item, rule.Name, markup.AccessText, base)
		link, _ := e.optional(item, rule.URL, "href", base)
		if link == "" {
			continue
		}
		updated, _ := e.optional(item, rule.UpdateTime, markup.AccessText, base)
		_, vip := e.optional(item, rule.IsVIP, markup.AccessText, base)

		out.Chapters = append(out.Chapters, Chapter{
			Title:      name,
			URL:        strategy.Absolute(base, link),
			UpdateTime: updated,
			VIP:        vip,
		})
	}

	out.NextURL = e.nextLink(doc, rule.NextPage, base, strategy)

	return out, nil
}

// Content removes the ad nodes from doc, extracts the chapter text and runs
// the purify patterns and replacement rules over it. doc is modified.
func (e *Extractor) Content(doc *markup.Document, rule source.ContentRule, rs *source.RuleSet) (*Content, error) {
	for _, ad := range rule.Ads {
		if ad = strings.TrimSpace(ad); ad != "" {
			doc.Remove(ad)
		}
	}

	base := pageBase(doc, rs)
	if strings.TrimSpace(rule.Content) == "" {
		return nil, &RuleMismatchError{Group: "contentRule", Field: "content"}
	}
	text, ok, err := e.field(doc.Root(), rule.Content, markup.AccessBlock, base)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &RuleMismatchError{Group: "contentRule", Field: "content", Expr: rule.Content}
	}

	if text, err = Purify(text, rule.Purify); err != nil {
		return nil, err
	}
	if rs != nil {
		if text, err = Replace(text, rs.ContentReplaceRules); err != nil {
			return nil, err
		}
	}

	c := &Content{Text: text}
	c.Title, _ = e.optional(doc.Root(), rule.Title, markup.AccessText, base)
	c.NextURL = e.nextLink(doc, rule.Next, base, e.strategy(rs))

	return c, nil
}

// nextLink reads a pagination link. Script links and links back to the page
// itself are ignored.
func (e *Extractor) nextLink(doc *markup.Document, expr, base string, strategy URLStrategy) string {
	link, ok := e.optional(doc.Root(), expr, "href", base)
	if !ok || link == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(link), "javascript:") || strings.HasPrefix(link, "#") {
		return ""
	}

	link = strategy.Absolute(base, link)
	if link == doc.Location() {
		return ""
	}

	return link
}
