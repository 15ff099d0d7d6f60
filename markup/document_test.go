package markup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shelf = `<html><head><title>t</title></head><body>
<ul id="list">
  <li class="book"><a href="/b/1">  First
     Book </a><span class="author">A</span></li>
  <li class="book"><a href="/b/2">Second</a><span class="author">B</span></li>
  <li class="book vip"><a href="/b/3">Third</a></li>
</ul>
<div id="c"><p>keep</p><span class="ad">drop</span></div>
`

func TestParseLenient(t *testing.T) {
	doc, err := Parse(`<div><p>unclosed <b>bold</div>`)
	require.NoError(t, err)
	nodes := doc.Select("b")
	require.Len(t, nodes, 1)
	assert.Equal(t, "bold", nodes[0].Text())
}

func TestParseBinary(t *testing.T) {
	_, err := Parse("GIF89a\x00\x01\x02")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestSelectDocumentOrder(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)

	var titles []string
	for _, n := range doc.Select("li.book a") {
		titles = append(titles, n.Text())
	}
	assert.Equal(t, []string{"First Book", "Second", "Third"}, titles)
}

func TestSelectPseudoClasses(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "nth-child", expr: "#list li:nth-child(2) a", want: "Second"},
		{name: "last-child", expr: "#list li:last-child a", want: "Third"},
		{name: "attribute", expr: `a[href="/b/1"]`, want: "First Book"},
		{name: "multi class", expr: "li.book.vip a", want: "Third"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := doc.Select(tt.expr)
			require.Len(t, nodes, 1)
			assert.Equal(t, tt.want, nodes[0].Text())
		})
	}
}

func TestSelectInvalidSelector(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)
	assert.Empty(t, doc.Select("li[["))
	assert.Empty(t, doc.Select(""))
	assert.Error(t, Compile("li[["))
	assert.NoError(t, Compile("ul > li:last-child a, .x"))
}

func TestRemove(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Remove(".ad"))
	nodes := doc.Select("#c")
	require.Len(t, nodes, 1)
	assert.Equal(t, "keep", nodes[0].Text())
}

func TestNodeSelectIncludesSelf(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)

	items := doc.Select("li.book")
	require.Len(t, items, 3)
	assert.Len(t, items[2].Select(".vip"), 1)
	assert.Len(t, items[0].Select(".vip"), 0)
}

func TestBaseURL(t *testing.T) {
	doc, err := Parse(`<html><head><base href="/root/"></head></html>`, WithLocation("https://x.com/a/b.html"))
	require.NoError(t, err)
	base, ok := doc.BaseURL()
	assert.True(t, ok)
	assert.Equal(t, "https://x.com/root/", base)

	doc, err = Parse(`<p>x</p>`, WithLocation("https://x.com/a/b.html"))
	require.NoError(t, err)
	base, ok = doc.BaseURL()
	assert.True(t, ok)
	assert.Equal(t, "https://x.com/a/b.html", base)

	doc, err = Parse(`<p>x</p>`)
	require.NoError(t, err)
	_, ok = doc.BaseURL()
	assert.False(t, ok)
}

func TestBlockText(t *testing.T) {
	doc, err := Parse(`<div id="c">
	<p>line   one</p><p>line two<br>line three</p>
	<script>var x = 1;</script>&nbsp;
	</div>`)
	require.NoError(t, err)

	nodes := doc.Select("#c")
	require.Len(t, nodes, 1)
	assert.Equal(t, "line one\nline two\nline three", nodes[0].Block())
}
