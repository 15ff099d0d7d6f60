package markup

import (
	"regexp"
	"strings"
)

// Accessors select what a rule reads from the matched nodes. Any other
// accessor is taken as an attribute name.
const (
	AccessText    = "text"
	AccessOwnText = "ownText"
	AccessHTML    = "html"
	AccessBlock   = "block"
)

const scriptMarker = "@js:"

// Rule is a parsed rule expression of the form
//
//	css[@accessor][@js:script]
//
// e.g. "div.book h3 a@href" or "@src" (the context node itself).
type Rule struct {
	Selector string
	Accessor string
	Script   string
}

var accessorRe = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

func ParseRule(expr string) Rule {
	var r Rule
	expr = strings.TrimSpace(expr)

	if i := strings.Index(expr, scriptMarker); i >= 0 && balanced(expr[:i]) {
		r.Script = strings.TrimSpace(expr[i+len(scriptMarker):])
		expr = strings.TrimSpace(expr[:i])
	}

	if i := strings.LastIndexByte(expr, '@'); i >= 0 && balanced(expr[:i]) && accessorRe.MatchString(expr[i+1:]) {
		r.Accessor = expr[i+1:]
		expr = strings.TrimSpace(expr[:i])
	}

	r.Selector = expr

	return r
}

// balanced reports whether s closes every attribute bracket it opens, so an
// '@' that follows is not part of an attribute selector value.
func balanced(s string) bool {
	return strings.Count(s, "[") == strings.Count(s, "]")
}

// Empty reports whether the rule can extract anything at all.
func (r Rule) Empty() bool {
	return r.Selector == "" && r.Accessor == "" && r.Script == ""
}

// Or returns r with accessor set when the expression did not name one.
func (r Rule) Or(accessor string) Rule {
	if r.Accessor == "" {
		r.Accessor = accessor
	}

	return r
}

// Apply evaluates the rule below ctx. The boolean is false when the selector
// matched nothing or, for attribute accessors, no match carried the attribute.
// Text accessors join the values of all matches with a space; attribute
// accessors return the first present value.
func (r Rule) Apply(ctx *Node) (string, bool) {
	var nodes []*Node
	if r.Selector == "" {
		nodes = []*Node{ctx}
	} else {
		nodes = ctx.Select(r.Selector)
	}

	if len(nodes) == 0 {
		return "", false
	}

	switch r.Accessor {
	case "", AccessText:
		return joinNodes(nodes, (*Node).Text, " "), true
	case AccessOwnText:
		return joinNodes(nodes, (*Node).OwnText, " "), true
	case AccessBlock:
		return joinNodes(nodes, (*Node).Block, "\n"), true
	case AccessHTML:
		return joinNodes(nodes, (*Node).HTML, "\n"), true
	default:
		for _, n := range nodes {
			if v, ok := n.Attr(r.Accessor); ok {
				return strings.TrimSpace(v), true
			}
		}

		return "", false
	}
}

func joinNodes(nodes []*Node, fn func(*Node) string, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if v := fn(n); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, sep)
}
