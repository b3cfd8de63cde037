package slots

import "strings"

// Evaluate decides whether a captured fragment satisfies the slot type and
// returns the slot's final value.
//
// Exact, set, and pattern matchers return the original fragment unchanged;
// only transform matchers may produce a different value. A transform result
// that is the empty string counts as "no value" and fails the match, but a
// numeric zero is a perfectly valid value — the check is on the empty string
// specifically, not on zero values in general.
func Evaluate(st *SlotType, fragment string) (any, bool) {
	switch st.Matcher.kind {
	case kindExact:
		if strings.ToLower(fragment) == st.Matcher.exact {
			return fragment, true
		}
		return nil, false

	case kindSet:
		if _, ok := st.Matcher.set[strings.ToLower(fragment)]; ok {
			return fragment, true
		}
		return nil, false

	case kindPattern:
		if st.Matcher.pattern != nil && st.Matcher.pattern.MatchString(fragment) {
			return fragment, true
		}
		return nil, false

	case kindFunc:
		if st.Matcher.fn == nil {
			return nil, false
		}
		value, ok := st.Matcher.fn(fragment)
		if !ok {
			return nil, false
		}
		if s, isString := value.(string); isString && s == "" {
			return nil, false
		}
		return value, true
	}
	return nil, false
}
