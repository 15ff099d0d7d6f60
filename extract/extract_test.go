package extract

import (
	"errors"
	"testing"
	"time"

	"github.com/dreamerjackson/bookcrawler/markup"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body><ul class="result">
<li><h3><a href="/book/1">Alpha</a></h3><span class="author">Ann</span><img src="/c/1.jpg"><p class="intro">first intro</p></li>
<li><h3><a href="https://y.com/book/2">Beta</a></h3><span class="author">Bob</span></li>
<li><h3>No link</h3></li>
<li><h3><a href="/book/4"> </a></h3></li>
</ul></body></html>`

const tocPage = `<html><body><dl id="list">
<dd><a href="1.html">A</a></dd>
<dd><a href="2.html">B</a><span class="vip">vip</span></dd>
<dd><span>no link</span></dd>
<dd><a href="3.html">C</a></dd>
</dl><a class="next" href="index_2.html">next</a></body></html>`

func ruleSet() *source.RuleSet {
	rs := source.New()
	rs.Name = "x"
	rs.URL = "https://x.com"
	rs.SearchURL = "https://x.com/s?q={keyword}"
	rs.SearchRule = source.SearchRule{
		List: "ul.result li", Name: "h3 a", Author: ".author", Intro: ".intro", CoverURL: "img", BookURL: "h3 a",
	}
	rs.ChapterRule = source.ChapterRule{List: "#list dd", Name: "a", URL: "a", NextPage: "a.next", IsVIP: ".vip"}
	return rs
}

func parse(t *testing.T, page, location string) *markup.Document {
	t.Helper()
	doc, err := markup.Parse(page, markup.WithLocation(location))
	require.NoError(t, err)
	return doc
}

func TestSearchResults(t *testing.T) {
	rs := ruleSet()
	e := New()

	got, err := e.SearchResults(parse(t, searchPage, "https://x.com/s?q=a"), rs.SearchRule, rs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Alpha", got[0].Title)
	assert.Equal(t, "Ann", got[0].Author)
	assert.Equal(t, "first intro", got[0].Intro)
	assert.Equal(t, "https://x.com/book/1", got[0].BookURL)
	assert.Equal(t, "https://x.com/c/1.jpg", got[0].CoverURL)
	assert.Equal(t, "x", got[0].SourceName())

	assert.Equal(t, "Beta", got[1].Title)
	assert.Equal(t, "https://y.com/book/2", got[1].BookURL)
	assert.Empty(t, got[1].CoverURL)
}

func TestSearchResultsEmpty(t *testing.T) {
	rs := ruleSet()
	e := New()
	doc := parse(t, searchPage, "")

	rule := rs.SearchRule
	rule.List = "div.nothing"
	got, err := e.SearchResults(doc, rule, rs)
	require.NoError(t, err)
	assert.Empty(t, got)

	rule.List = " "
	_, err = e.SearchResults(doc, rule, rs)
	assert.True(t, errors.Is(err, ErrRuleMismatch))
}

func TestChapterListOrder(t *testing.T) {
	rs := ruleSet()
	got, err := New().ChapterList(parse(t, tocPage, "https://x.com/book/1/"), rs.ChapterRule, rs)
	require.NoError(t, err)

	require.Len(t, got.Chapters, 3)
	var titles, urls []string
	for _, c := range got.Chapters {
		titles = append(titles, c.Title)
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{"A", "B", "C"}, titles)
	assert.Equal(t, []string{
		"https://x.com/book/1/1.html",
		"https://x.com/book/1/2.html",
		"https://x.com/book/1/3.html",
	}, urls)
	assert.False(t, got.Chapters[0].VIP)
	assert.True(t, got.Chapters[1].VIP)
	assert.Equal(t, "https://x.com/book/1/index_2.html", got.NextURL)
}

func TestChapterListStrategies(t *testing.T) {
	page := `<dl id="list"><dd><a href="/chapter/1.html">A</a></dd></dl>`
	tests := []struct {
		name     string
		override string
		opts     []Option
		want     string
	}{
		{name: "concat default", want: "https://x.com/book/1//chapter/1.html"},
		{name: "resolve option", opts: []Option{WithURLStrategy(Resolve)}, want: "https://x.com/chapter/1.html"},
		{name: "rule set override", override: source.ResolveRFC3986, want: "https://x.com/chapter/1.html"},
		{name: "override wins", override: source.ResolveConcat, opts: []Option{WithURLStrategy(Resolve)}, want: "https://x.com/book/1//chapter/1.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := ruleSet()
			rs.URLResolution = tt.override
			got, err := New(tt.opts...).ChapterList(parse(t, page, "https://x.com/book/1/"), rs.ChapterRule, rs)
			require.NoError(t, err)
			require.Len(t, got.Chapters, 1)
			assert.Equal(t, tt.want, got.Chapters[0].URL)
		})
	}
}

func TestChapterListFallsBackToSiteURL(t *testing.T) {
	rs := ruleSet()
	got, err := New().ChapterList(parse(t, `<dl id="list"><dd><a href="/c/9.html">Z</a></dd></dl>`, ""), rs.ChapterRule, rs)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "https://x.com/c/9.html", got.Chapters[0].URL)
	assert.Empty(t, got.NextURL)
}

func TestBookInfo(t *testing.T) {
	page := `<html><body>
<h1>the book</h1><p class="author">someone</p>
<div id="intro"><p>line one</p><p>line two</p></div>
<img id="cover" src="/cover.jpg"><a class="catalog" href="/book/1/">catalog</a>
</body></html>`
	rs := ruleSet()
	rs.BookInfoRule = source.BookInfoRule{
		Name: "h1@js:result.toUpperCase()", Author: ".author", Intro: "#intro", Cover: "#cover", Catalog: "a.catalog",
	}

	info, err := New().BookInfo(parse(t, page, "https://x.com/book/1"), rs.BookInfoRule, rs)
	require.NoError(t, err)
	assert.Equal(t, "THE BOOK", info.Title)
	assert.Equal(t, "someone", info.Author)
	assert.Equal(t, "line one\nline two", info.Intro)
	assert.Equal(t, "https://x.com/cover.jpg", info.CoverURL)
	assert.Equal(t, "https://x.com/book/1/", info.CatalogURL)

	rs.BookInfoRule.Name = "h2.title"
	_, err = New().BookInfo(parse(t, page, ""), rs.BookInfoRule, rs)
	var mismatch *RuleMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "name", mismatch.Field)
	assert.True(t, errors.Is(err, ErrRuleMismatch))
}

func TestContentRemovesAds(t *testing.T) {
	rs := ruleSet()
	rule := source.ContentRule{Content: "#content", Ads: []string{".ad"}}

	got, err := New().Content(parse(t, `<div id="content">keep<span class="ad">buy</span></div>`, ""), rule, rs)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Text)
}

func TestContentPipeline(t *testing.T) {
	page := `<html><body><h1>Chapter 1</h1>
<div id="content"><p>Hello foo world.</p><script>var x=1;</script><p>请收藏本站 www.x.com</p><div class="ad">ad text</div></div>
<a id="next" href="/book/1/2.html">next</a></body></html>`
	rs := ruleSet()
	rs.URLResolution = source.ResolveRFC3986
	rs.ContentReplaceRules = []source.ReplaceRule{
		{Pattern: "foo", Replacement: "bar"},
		{Pattern: `(\w+)\.$`, Replacement: "<$1>", IsRegex: true},
	}
	rule := source.ContentRule{
		Content: "#content", Title: "h1", Next: "a#next",
		Ads: []string{".ad", "script"}, Purify: []string{`请收藏.*`},
	}

	got, err := New().Content(parse(t, page, "https://x.com/book/1/1.html"), rule, rs)
	require.NoError(t, err)
	assert.Equal(t, "Hello bar <world>", got.Text)
	assert.Equal(t, "Chapter 1", got.Title)
	assert.Equal(t, "https://x.com/book/1/2.html", got.NextURL)
}

func TestContentNextLinkIgnored(t *testing.T) {
	rs := ruleSet()
	rs.URLResolution = source.ResolveRFC3986
	rule := source.ContentRule{Content: "#content", Next: "a.next"}

	tests := []struct {
		name string
		href string
	}{
		{name: "script", href: "javascript:void(0)"},
		{name: "fragment", href: "#top"},
		{name: "self", href: "/book/1/1.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := `<div id="content">x</div><a class="next" href="` + tt.href + `">n</a>`
			got, err := New().Content(parse(t, page, "https://x.com/book/1/1.html"), rule, rs)
			require.NoError(t, err)
			assert.Empty(t, got.NextURL)
		})
	}
}

func TestContentMismatch(t *testing.T) {
	rs := ruleSet()
	_, err := New().Content(parse(t, `<p>x</p>`, ""), source.ContentRule{Content: "#content"}, rs)
	assert.True(t, errors.Is(err, ErrRuleMismatch))

	_, err = New().Content(parse(t, `<p>x</p>`, ""), source.ContentRule{}, rs)
	assert.True(t, errors.Is(err, ErrRuleMismatch))
}

func TestPurifyIdempotent(t *testing.T) {
	purify := []string{`请收藏.*`, `\(本章完\)`, `(?m)[ \t]+$`}
	text := "正文第一段 \n第二段(本章完)\n请收藏 www.x.com 最新章节"

	once, err := Purify(text, purify)
	require.NoError(t, err)
	twice, err := Purify(once, purify)
	require.NoError(t, err)

	assert.Equal(t, "正文第一段\n第二段", once)
	assert.Equal(t, once, twice)
}

func TestInvalidPattern(t *testing.T) {
	_, err := Purify("x", []string{`(?<=a)b`})
	var perr *PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, `(?<=a)b`, perr.Pattern)

	_, err = Replace("x", []source.ReplaceRule{{Pattern: `[`, IsRegex: true}})
	assert.True(t, errors.As(err, &perr))

	out, err := Replace("a[b", []source.ReplaceRule{{Pattern: `[`, Replacement: "("}})
	require.NoError(t, err)
	assert.Equal(t, "a(b", out)
}

func TestScriptErrors(t *testing.T) {
	rs := ruleSet()
	doc := parse(t, `<h1>t</h1>`, "")

	rs.BookInfoRule.Name = "h1@js:throw new Error('boom')"
	_, err := New().BookInfo(doc, rs.BookInfoRule, rs)
	var serr *ScriptError
	require.True(t, errors.As(err, &serr))

	rs.BookInfoRule.Name = "h1@js:while(true){}"
	_, err = New(WithScriptBudget(50*time.Millisecond)).BookInfo(doc, rs.BookInfoRule, rs)
	require.True(t, errors.As(err, &serr))
	assert.True(t, errors.Is(err, errScriptTimeout))
}

func TestOptionalScriptFailures(t *testing.T) {
	const throwing = "@js:result.match(/y(.)/)[1]"
	page := `<ul class="result">
<li><h3><a href="/book/1">Alpha</a></h3><span>x</span></li>
<li><h3><a href="/book/2">Beta</a></h3></li>
</ul>`

	tests := []struct {
		name    string
		rule    func(r *source.SearchRule)
		titles  []string
		authors []string
	}{
		{
			name:    "author script fails on one hit",
			rule:    func(r *source.SearchRule) { r.Author = "span" + throwing },
			titles:  []string{"Alpha", "Beta"},
			authors: []string{"", ""},
		},
		{
			name:    "title script fails on every hit",
			rule:    func(r *source.SearchRule) { r.Name = "h3 a" + throwing },
			titles:  []string{},
			authors: []string{},
		},
		{
			name:    "book url script fails drops the hit",
			rule:    func(r *source.SearchRule) { r.BookURL = "h3 a@href@js:result == '/book/1' ? null.x : result" },
			titles:  []string{"Beta"},
			authors: []string{""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := ruleSet()
			rs.SearchRule = source.SearchRule{List: "ul.result li", Name: "h3 a", BookURL: "h3 a"}
			tt.rule(&rs.SearchRule)

			got, err := New().SearchResults(parse(t, page, ""), rs.SearchRule, rs)
			require.NoError(t, err)
			titles, authors := []string{}, []string{}
			for _, r := range got {
				titles = append(titles, r.Title)
				authors = append(authors, r.Author)
			}
			assert.Equal(t, tt.titles, titles)
			assert.Equal(t, tt.authors, authors)
		})
	}
}

func TestOptionalScriptFailuresInPages(t *testing.T) {
	rs := ruleSet()
	rs.BookInfoRule = source.BookInfoRule{Name: "h1", Author: "h1@js:null.x"}
	info, err := New().BookInfo(parse(t, `<h1>t</h1>`, ""), rs.BookInfoRule, rs)
	require.NoError(t, err)
	assert.Equal(t, "t", info.Title)
	assert.Empty(t, info.Author)

	rs.ChapterRule = source.ChapterRule{List: "#list dd", Name: "a", URL: "a@href@js:result == '2.html' ? null.x : result", NextPage: "a.next@href@js:null.x"}
	toc, err := New().ChapterList(parse(t, tocPage, "https://x.com/b/"), rs.ChapterRule, rs)
	require.NoError(t, err)
	require.Len(t, toc.Chapters, 2)
	assert.Equal(t, "https://x.com/b/3.html", toc.Chapters[1].URL)
	assert.Empty(t, toc.NextURL)

	rs.ContentRule = source.ContentRule{Content: "#c", Title: "h1@js:null.x"}
	c, err := New().Content(parse(t, `<h1>t</h1><div id="c">text</div>`, ""), rs.ContentRule, rs)
	require.NoError(t, err)
	assert.Equal(t, "text", c.Text)
	assert.Empty(t, c.Title)
}

func TestScriptSeesBaseURL(t *testing.T) {
	rs := ruleSet()
	rs.BookInfoRule.Name = "h1"
	rs.BookInfoRule.Catalog = "a@href@js:baseUrl + '/toc/' + result"

	info, err := New().BookInfo(parse(t, `<h1>t</h1><a href="9">c</a>`, ""), rs.BookInfoRule, rs)
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/toc/9", info.CatalogURL)
}

func TestAbsolute(t *testing.T) {
	tests := []struct {
		name     string
		strategy URLStrategy
		base     string
		ref      string
		want     string
	}{
		{name: "concat path", strategy: Concat, base: "https://x.com", ref: "/book/1", want: "https://x.com/book/1"},
		{name: "concat absolute", strategy: Concat, base: "https://x.com", ref: "http://y.com/a", want: "http://y.com/a"},
		{name: "concat empty", strategy: Concat, base: "https://x.com", ref: "  ", want: ""},
		{name: "resolve parent", strategy: Resolve, base: "https://x.com/a/b/c.html", ref: "../d.html", want: "https://x.com/a/d.html"},
		{name: "resolve scheme relative", strategy: Resolve, base: "https://x.com/a", ref: "//cdn.x.com/i.jpg", want: "https://cdn.x.com/i.jpg"},
		{name: "resolve relative base", strategy: Resolve, base: "x.com", ref: "/a", want: "x.com/a"},
		{name: "keeps other schemes", strategy: Resolve, base: "https://x.com", ref: "data:image/png;base64,AA", want: "data:image/png;base64,AA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.strategy.Absolute(tt.base, tt.ref))
		})
	}

	assert.Equal(t, Resolve, ParseURLStrategy(" Resolve "))
	assert.Equal(t, Concat, ParseURLStrategy("whatever"))
}
