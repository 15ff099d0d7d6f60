// Package reader walks a book on one source: its info page, every page of
// its chapter list, and chapters whose text is split over several pages.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dreamerjackson/bookcrawler/extract"
	"github.com/dreamerjackson/bookcrawler/fetch"
	"github.com/dreamerjackson/bookcrawler/markup"
	"github.com/dreamerjackson/bookcrawler/source"
	"go.uber.org/zap"
)

var ErrChapterIndex = errors.New("chapter index out of range")

type Book struct {
	URL      string            `json:"url"`
	Info     *extract.BookInfo `json:"info"`
	Chapters []extract.Chapter `json:"chapters"`
}

type Reader struct {
	options
}

func New(opts ...Option) *Reader {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Fetcher == nil {
		options.Fetcher = fetch.NewCachedFetcher(
			fetch.NewHTTPFetcher(fetch.WithLogger(options.Logger)),
			fetch.DefaultCacheSize, fetch.DefaultCacheTTL)
	}
	if options.Extractor == nil {
		options.Extractor = extract.New(extract.WithLogger(options.Logger))
	}

	return &Reader{options: options}
}

func (r *Reader) page(ctx context.Context, rs *source.RuleSet, url string) (*markup.Document, error) {
	page, err := r.Fetcher.Fetch(ctx, fetch.NewRequest(rs, url, rs.PageEncoding()))
	if err != nil {
		return nil, err
	}

	return markup.Parse(page.Body, markup.WithLocation(page.URL))
}

// Book reads the book page and its full chapter list. The chapter list
// starts at the catalog link when the book page has one, else on the book
// page itself.
func (r *Reader) Book(ctx context.Context, rs *source.RuleSet, bookURL string) (*Book, error) {
	doc, err := r.page(ctx, rs, bookURL)
	if err != nil {
		return nil, err
	}
	info, err := r.Extractor.BookInfo(doc, rs.BookInfoRule, rs)
	if err != nil {
		return nil, err
	}

	book := &Book{URL: bookURL, Info: info}
	if info.CatalogURL != "" && info.CatalogURL != bookURL {
		book.Chapters, err = r.Catalog(ctx, rs, info.CatalogURL)
	} else {
		book.Chapters, err = r.catalog(ctx, rs, doc)
	}
	if err != nil {
		return nil, err
	}

	return book, nil
}

// Catalog reads the chapter list starting at url and follows next-page
// links until none is left, a page repeats, or the page bound is hit.
func (r *Reader) Catalog(ctx context.Context, rs *source.RuleSet, url string) ([]extract.Chapter, error) {
	doc, err := r.page(ctx, rs, url)
	if err != nil {
		return nil, err
	}

	return r.catalog(ctx, rs, doc)
}

func (r *Reader) catalog(ctx context.Context, rs *source.RuleSet, doc *markup.Document) ([]extract.Chapter, error) {
	visited := map[string]bool{doc.Location(): true}
	seen := make(map[string]bool)
	chapters := make([]extract.Chapter, 0)

	for pages := 1; ; pages++ {
		list, err := r.Extractor.ChapterList(doc, rs.ChapterRule, rs)
		if err != nil {
			return nil, err
		}
		for _, ch := range list.Chapters {
			if seen[ch.URL] {
				continue
			}
			seen[ch.URL] = true
			chapters = append(chapters, ch)
		}

		next := list.NextURL
		if next == "" || visited[next] {
			break
		}
		if pages >= r.MaxTOCPages {
			r.Logger.Warn("chapter list page bound reached",
				zap.String("source", rs.Name), zap.Int("pages", pages))
			break
		}
		visited[next] = true

		if doc, err = r.page(ctx, rs, next); err != nil {
			return nil, fmt.Errorf("chapter list page %d: %w", pages+1, err)
		}
	}

	return chapters, nil
}

// Chapter reads chapters[index], joining the text of every page the chapter
// spans. A next link pointing at the following chapter ends the chapter.
func (r *Reader) Chapter(ctx context.Context, rs *source.RuleSet, chapters []extract.Chapter, index int) (*extract.Content, error) {
	if index < 0 || index >= len(chapters) {
		return nil, ErrChapterIndex
	}
	stop := ""
	if index+1 < len(chapters) {
		stop = chapters[index+1].URL
	}

	return r.Content(ctx, rs, chapters[index].URL, stop)
}

// Content reads the chapter at url and its continuation pages. stop, when
// set, is the URL of the next chapter. The returned NextURL is the first
// link that was not followed.
func (r *Reader) Content(ctx context.Context, rs *source.RuleSet, url, stop string) (*extract.Content, error) {
	var (
		parts   []string
		out     = &extract.Content{}
		visited = map[string]bool{url: true}
	)

	for next := url; next != ""; {
		doc, err := r.page(ctx, rs, next)
		if err != nil {
			return nil, err
		}
		c, err := r.Extractor.Content(doc, rs.ContentRule, rs)
		if err != nil {
			return nil, err
		}
		if out.Title == "" {
			out.Title = c.Title
		}
		parts = append(parts, c.Text)

		next = ""
		switch {
		case c.NextURL == "" || c.NextURL == stop || visited[c.NextURL]:
			out.NextURL = c.NextURL
		case len(parts) >= r.MaxPageParts:
			r.Logger.Warn("chapter page bound reached", zap.String("source", rs.Name), zap.String("url", url))
			out.NextURL = c.NextURL
		default:
			visited[c.NextURL] = true
			next = c.NextURL
		}
	}
	out.Text = strings.Join(parts, "\n")

	return out, nil
}
