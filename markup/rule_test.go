package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want Rule
	}{
		{name: "plain", expr: "h3 a", want: Rule{Selector: "h3 a"}},
		{name: "attribute", expr: "h3 a@href", want: Rule{Selector: "h3 a", Accessor: "href"}},
		{name: "self attribute", expr: "@src", want: Rule{Accessor: "src"}},
		{name: "data attribute", expr: "img@data-original", want: Rule{Selector: "img", Accessor: "data-original"}},
		{name: "at inside attribute selector", expr: `a[title="x@y"]`, want: Rule{Selector: `a[title="x@y"]`}},
		{name: "script", expr: "span.author@text@js:result.replace('作者：','')",
			want: Rule{Selector: "span.author", Accessor: "text", Script: "result.replace('作者：','')"}},
		{name: "empty", expr: "  ", want: Rule{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRule(tt.expr))
		})
	}
	assert.True(t, ParseRule("").Empty())
	assert.False(t, ParseRule("@href").Empty())
}

func TestRuleApply(t *testing.T) {
	doc, err := Parse(shelf)
	require.NoError(t, err)
	items := doc.Select("li.book")
	require.Len(t, items, 3)

	v, ok := ParseRule("a").Or(AccessText).Apply(items[0])
	assert.True(t, ok)
	assert.Equal(t, "First Book", v)

	v, ok = ParseRule("a").Or("href").Apply(items[1])
	assert.True(t, ok)
	assert.Equal(t, "/b/2", v)

	_, ok = ParseRule(".author").Apply(items[2])
	assert.False(t, ok)

	_, ok = ParseRule("a@title").Apply(items[2])
	assert.False(t, ok)

	v, ok = ParseRule(".author").Apply(doc.Root())
	assert.True(t, ok)
	assert.Equal(t, "A B", v)

	v, ok = ParseRule("@class").Apply(items[2])
	assert.True(t, ok)
	assert.Equal(t, "book vip", v)
}
