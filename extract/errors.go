package extract

import (
	"errors"
	"fmt"
)

// ErrRuleMismatch matches every *RuleMismatchError.
var ErrRuleMismatch = errors.New("rule mismatch")

// RuleMismatchError reports a required field whose rule is empty or matched
// nothing on the page.
type RuleMismatchError struct {
	Group string
	Field string
	Expr  string
}

func (e *RuleMismatchError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("rule mismatch: %s.%s is empty", e.Group, e.Field)
	}

	return fmt.Sprintf("rule mismatch: %s.%s %q matched nothing", e.Group, e.Field, e.Expr)
}

func (e *RuleMismatchError) Is(target error) bool {
	return target == ErrRuleMismatch
}

// PatternError reports a purify or replacement pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// ScriptError reports a failing @js: post-processing script.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %q: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
