// Package slots defines slot types: reusable validators/transformers for the
// text fragments captured by utterance matchers.
package slots

import (
	"regexp"
	"strings"
)

// DefaultCaptureSyntax is the regexp fragment used to pre-capture a slot's
// candidate text when a slot type does not declare its own. It greedily
// accepts any run of characters; semantic validation happens afterwards.
const DefaultCaptureSyntax = `.+`

// matcherKind discriminates the closed set of matcher variants.
type matcherKind int

const (
	kindExact matcherKind = iota
	kindSet
	kindPattern
	kindFunc
)

// TransformFunc validates a captured fragment and optionally transforms it
// into a typed value (e.g. string → float64). Returning ok == false marks the
// fragment as a non-match for this slot type.
type TransformFunc func(fragment string) (value any, ok bool)

// Matcher is the closed tagged union of slot matching strategies: an exact
// string, a set of strings, a regular expression, or a transform function.
// String and string-set matchers are lower-cased at construction so matching
// is case-insensitive by design.
type Matcher struct {
	kind    matcherKind
	exact   string
	set     map[string]struct{}
	pattern *regexp.Regexp
	fn      TransformFunc
}

// MatchExact builds a matcher that accepts only the given string,
// compared case-insensitively.
func MatchExact(s string) Matcher {
	return Matcher{kind: kindExact, exact: strings.ToLower(s)}
}

// MatchAnyOf builds a matcher that accepts any member of the given set,
// compared case-insensitively.
func MatchAnyOf(options ...string) Matcher {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[strings.ToLower(o)] = struct{}{}
	}
	return Matcher{kind: kindSet, set: set}
}

// MatchPattern builds a matcher that accepts fragments matching re.
func MatchPattern(re *regexp.Regexp) Matcher {
	return Matcher{kind: kindPattern, pattern: re}
}

// MatchTransform builds a matcher backed by fn. This is the only matcher kind
// that can change the slot's value; the others return the fragment as-is.
func MatchTransform(fn TransformFunc) Matcher {
	return Matcher{kind: kindFunc, fn: fn}
}

// SlotType couples a name with a matcher and an optional capture-syntax hint.
//
// CaptureSyntax is the regexp fragment inserted into compiled utterances to
// pre-capture the slot's candidate text. It exists to resolve ambiguity
// between adjacent slots: a slot type that only ever matches single words
// should set `\w+` so it cannot swallow a neighbouring slot's text.
type SlotType struct {
	Name          string
	Matcher       Matcher
	CaptureSyntax string
}

// Capture returns the capture-syntax fragment for the slot type, falling back
// to DefaultCaptureSyntax when none is declared.
func (st *SlotType) Capture() string {
	if st.CaptureSyntax == "" {
		return DefaultCaptureSyntax
	}
	return st.CaptureSyntax
}
