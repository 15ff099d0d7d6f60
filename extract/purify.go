package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/dreamerjackson/bookcrawler/source"
)

var patterns sync.Map // string -> *regexp.Regexp

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	patterns.Store(pattern, re)

	return re, nil
}

// Purify deletes every match of each pattern from text, in order, and trims
// the result. Patterns use RE2 syntax.
func Purify(text string, purify []string) (string, error) {
	for _, p := range purify {
		if p == "" {
			continue
		}
		re, err := compile(p)
		if err != nil {
			return "", err
		}
		text = re.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text), nil
}

// Replace applies the rule set's content replacements in order. Regex rules
// may reference groups as $1 in the replacement.
func Replace(text string, rules []source.ReplaceRule) (string, error) {
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		if !r.IsRegex {
			text = strings.ReplaceAll(text, r.Pattern, r.Replacement)
			continue
		}
		re, err := compile(r.Pattern)
		if err != nil {
			return "", err
		}
		text = re.ReplaceAllString(text, r.Replacement)
	}

	return text, nil
}
