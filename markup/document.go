// Package markup parses fetched pages into a queryable tree and implements
// the small selection language used by book source rules.
package markup

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// ErrMalformed is returned when the input cannot be tokenized as markup at all.
var ErrMalformed = errors.New("malformed markup")

type Document struct {
	doc      *goquery.Document
	location string
}

type ParseOption func(d *Document)

// WithLocation records the URL the markup was fetched from. It is used as
// the base for relative links when the page carries no <base> element.
func WithLocation(location string) ParseOption {
	return func(d *Document) {
		d.location = location
	}
}

// Parse builds a Document. The parser is lenient; only a failing reader or a
// binary payload is reported as ErrMalformed.
func Parse(markup string, opts ...ParseOption) (*Document, error) {
	if strings.IndexByte(markup, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary payload", ErrMalformed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	d := &Document{doc: doc}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Select returns the matching nodes in document order. An invalid selector
// matches nothing.
func (d *Document) Select(expr string) []*Node {
	return wrap(d.doc.Find(expr))
}

// Root returns the document node, the context for document level rules.
func (d *Document) Root() *Node {
	return &Node{sel: d.doc.Selection}
}

// Remove deletes every node matched by expr together with its subtree.
func (d *Document) Remove(expr string) int {
	sel := d.doc.Find(expr)
	n := sel.Length()
	sel.Remove()

	return n
}

func (d *Document) Location() string {
	return d.location
}

// BaseURL returns the URL relative links of this document resolve against:
// the <base href> when present, otherwise the fetch location.
func (d *Document) BaseURL() (string, bool) {
	if href, ok := d.doc.Find("base[href]").First().Attr("href"); ok && strings.TrimSpace(href) != "" {
		href = strings.TrimSpace(href)
		ref, err := url.Parse(href)
		if err == nil {
			if ref.IsAbs() {
				return href, true
			}
			if loc, err := url.Parse(d.location); err == nil && loc.IsAbs() {
				return loc.ResolveReference(ref).String(), true
			}
		}
	}

	if d.location != "" {
		return d.location, true
	}

	return "", false
}

// Compile reports whether expr is a valid CSS selector group.
func Compile(expr string) error {
	if _, err := cascadia.ParseGroup(expr); err != nil {
		return fmt.Errorf("invalid selector %q: %w", expr, err)
	}

	return nil
}

// Node is one element of a Document.
type Node struct {
	sel *goquery.Selection
}

func wrap(sel *goquery.Selection) []*Node {
	nodes := make([]*Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &Node{sel: s})
	})

	return nodes
}

// Select matches expr against the node itself and its descendants.
func (n *Node) Select(expr string) []*Node {
	return wrap(n.sel.Filter(expr).AddSelection(n.sel.Find(expr)))
}

// Text returns the descendant text with runs of whitespace collapsed.
func (n *Node) Text() string {
	return normalizeSpace(n.sel.Text())
}

// OwnText returns only the text nodes directly below this node.
func (n *Node) OwnText() string {
	var b strings.Builder
	for _, node := range n.sel.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
				b.WriteByte(' ')
			}
		}
	}

	return normalizeSpace(b.String())
}

func (n *Node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

// HTML returns the inner markup of the node.
func (n *Node) HTML() string {
	h, err := n.sel.Html()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(h)
}

var (
	breakRe     = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|tr|dd|dt|section|article|blockquote)\s*>`)
	stripPolicy = bluemonday.StrictPolicy()
)

// Block returns the node text keeping paragraph and line breaks: one line
// per block, whitespace collapsed within a line, empty lines dropped.
func (n *Node) Block() string {
	h, err := n.sel.Html()
	if err != nil {
		return n.Text()
	}

	text := html.UnescapeString(stripPolicy.Sanitize(breakRe.ReplaceAllString(h, "\n")))
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = normalizeSpace(l); l != "" {
			out = append(out, l)
		}
	}

	return strings.Join(out, "\n")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
