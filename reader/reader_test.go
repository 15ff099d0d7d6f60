package reader

import (
	"context"
	"errors"
	"testing"

	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pages map[string]string

func (p pages) Fetch(_ context.Context, req *fetch.Request) (*fetch.Page, error) {
	body, ok := p[req.URL]
	if !ok {
		return nil, &fetch.Error{URL: req.URL, StatusCode: 404}
	}
	return &fetch.Page{URL: req.URL, StatusCode: 200, Body: body}, nil
}

func ruleSet() *source.RuleSet {
	rs := source.New()
	rs.Name = "r"
	rs.URL = "https://r.com"
	rs.SearchURL = "https://r.com/s?q={keyword}"
	rs.URLResolution = source.ResolveRFC3986
	rs.BookInfoRule = source.BookInfoRule{Name: "h1", Catalog: "#catalog"}
	rs.ChapterRule = source.ChapterRule{List: "#toc li", Name: "a", URL: "a", NextPage: "a.next"}
	rs.ContentRule = source.ContentRule{Content: "#content", Next: "a.next", Title: "h2"}
	return rs
}

func site() pages {
	return pages{
		"https://r.com/book/1": `<h1>Book</h1><a id="catalog" href="/book/1/toc">all chapters</a>`,
		"https://r.com/book/1/toc": `<ul id="toc"><li><a href="c1.html">One</a></li><li><a href="c2.html">Two</a></li></ul>
			<a class="next" href="toc2">next</a>`,
		"https://r.com/book/1/toc2": `<ul id="toc"><li><a href="c2.html">Two</a></li><li><a href="c3.html">Three</a></li></ul>
			<a class="next" href="toc">first</a>`,
		"https://r.com/book/1/c1.html":   `<h2>One</h2><div id="content">part a</div><a class="next" href="c1_2.html">more</a>`,
		"https://r.com/book/1/c1_2.html": `<h2>One (2)</h2><div id="content">part b</div><a class="next" href="c2.html">next chapter</a>`,
		"https://r.com/book/1/c2.html":   `<h2>Two</h2><div id="content">two</div>`,
		"https://r.com/book/1/c3.html":   `<h2>Three</h2><div id="content">three</div><a class="next" href="c3.html">self</a>`,
	}
}

func titles(chapters []extract.Chapter) []string {
	var out []string
	for _, ch := range chapters {
		out = append(out, ch.Title)
	}
	return out
}

func TestBookFollowsCatalogPages(t *testing.T) {
	r := New(WithFetcher(site()))
	book, err := r.Book(context.Background(), ruleSet(), "https://r.com/book/1")
	require.NoError(t, err)

	assert.Equal(t, "Book", book.Info.Title)
	assert.Equal(t, "https://r.com/book/1/toc", book.Info.CatalogURL)
	assert.Equal(t, []string{"One", "Two", "Three"}, titles(book.Chapters))
	assert.Equal(t, "https://r.com/book/1/c3.html", book.Chapters[2].URL)
}

func TestBookWithoutCatalogUsesBookPage(t *testing.T) {
	p := site()
	p["https://r.com/book/1"] = `<h1>Book</h1><ul id="toc"><li><a href="/book/1/c2.html">Two</a></li></ul>`

	book, err := New(WithFetcher(p)).Book(context.Background(), ruleSet(), "https://r.com/book/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Two"}, titles(book.Chapters))
}

func TestCatalogPageBound(t *testing.T) {
	chapters, err := New(WithFetcher(site()), WithMaxTOCPages(1)).
		Catalog(context.Background(), ruleSet(), "https://r.com/book/1/toc")
	require.NoError(t, err)
	assert.Equal(t, []string{"One", "Two"}, titles(chapters))
}

func TestCatalogPageFailure(t *testing.T) {
	p := site()
	delete(p, "https://r.com/book/1/toc2")

	_, err := New(WithFetcher(p)).Catalog(context.Background(), ruleSet(), "https://r.com/book/1/toc")
	assert.True(t, errors.Is(err, fetch.ErrFetch))
}

func TestChapterJoinsPages(t *testing.T) {
	r := New(WithFetcher(site()))
	chapters, err := r.Catalog(context.Background(), ruleSet(), "https://r.com/book/1/toc")
	require.NoError(t, err)

	c, err := r.Chapter(context.Background(), ruleSet(), chapters, 0)
	require.NoError(t, err)
	assert.Equal(t, "One", c.Title)
	assert.Equal(t, "part a\npart b", c.Text)
	assert.Equal(t, "https://r.com/book/1/c2.html", c.NextURL)

	last, err := r.Chapter(context.Background(), ruleSet(), chapters, 2)
	require.NoError(t, err)
	assert.Equal(t, "three", last.Text)
	assert.Empty(t, last.NextURL)

	_, err = r.Chapter(context.Background(), ruleSet(), chapters, 3)
	assert.ErrorIs(t, err, ErrChapterIndex)
}

func TestContentPageBound(t *testing.T) {
	c, err := New(WithFetcher(site()), WithMaxPageParts(1)).
		Content(context.Background(), ruleSet(), "https://r.com/book/1/c1.html", "")
	require.NoError(t, err)
	assert.Equal(t, "part a", c.Text)
	assert.Equal(t, "https://r.com/book/1/c1_2.html", c.NextURL)
}

func TestContentWithoutStopFollowsIntoNextChapter(t *testing.T) {
	c, err := New(WithFetcher(site())).Content(context.Background(), ruleSet(), "https://r.com/book/1/c1.html", "")
	require.NoError(t, err)
	assert.Equal(t, "part a\npart b\ntwo", c.Text)
}
