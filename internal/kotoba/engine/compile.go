package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

var (
	placeholderRE = regexp.MustCompile(`\{(\w+)\}`)
	bareSlotRE    = regexp.MustCompile(`^\{\w+\}$`)
	whitespaceRE  = regexp.MustCompile(`\s+`)
)

// matcher is one utterance template compiled against an intent's slot list.
type matcher struct {
	// utterance is the source template, kept for RemoveUtterance and logging.
	utterance string
	re        *regexp.Regexp
	// captures maps capture groups, in the order their placeholders appear in
	// the template, back to the declared slots. len(captures) always equals
	// the pattern's capture-group count.
	captures []IntentSlot
	// bareSlot marks templates that are syntactically a single placeholder
	// and nothing else. These never short-circuit the dispatcher's scan, so a
	// catch-all template cannot mask more specific ones registered after it.
	bareSlot bool
}

// compileUtterance turns a template into a matcher.
//
// The template is scanned left to right for the first remaining {Slot}
// placeholder; each placeholder must name a declared slot and is replaced by
// a capture group holding the slot type's capture syntax. After placeholders
// are resolved the compiler substitutes known misspellings, collapses
// whitespace runs into \s+, escapes brackets and parentheses the author meant
// literally, anchors the pattern to the start of the input (and to the end
// for question answers), and compiles it case-insensitively.
//
// Generated fragments are hidden behind NUL-delimited markers until the very
// end so the whitespace, escaping, and misspelling passes can treat the rest
// of the template as literal text.
func compileUtterance(intentName, utterance string, declared []IntentSlot, types *slots.Registry, sp Speller, anchorEnd bool) (*matcher, error) {
	work := utterance
	var frags []string
	var captures []IntentSlot

	emit := func(frag string) string {
		frags = append(frags, frag)
		return "\x00" + strconv.Itoa(len(frags)-1) + "\x00"
	}

	for {
		loc := placeholderRE.FindStringSubmatchIndex(work)
		if loc == nil {
			break
		}
		name := work[loc[2]:loc[3]]
		slot, ok := findSlot(declared, name)
		if !ok {
			return nil, &UnknownSlotError{Intent: intentName, Slot: name, Valid: slotNames(declared)}
		}
		st, err := types.Get(slot.Type)
		if err != nil {
			return nil, fmt.Errorf("intent %q: slot {%s}: %w", intentName, name, err)
		}
		captures = append(captures, slot)
		work = work[:loc[0]] + emit("("+st.Capture()+")") + work[loc[1]:]
	}

	work = substituteMisspellings(work, utterance, sp, emit)
	work = whitespaceRE.ReplaceAllString(work, `\s+`)
	work = escapeLiterals(work)

	for i, frag := range frags {
		work = strings.ReplaceAll(work, "\x00"+strconv.Itoa(i)+"\x00", frag)
	}

	pattern := "(?i)^" + work
	if anchorEnd {
		pattern += `\s*$`
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("intent %q: utterance %q does not compile: %w", intentName, utterance, err)
	}
	// The dispatcher maps capture groups to slots positionally, so a capture
	// syntax smuggling its own capturing group (e.g. `(red|blue)`) would shift
	// every later slot onto the wrong fragment. Refuse it here, at
	// registration, instead of mis-assigning values at match time.
	if re.NumSubexp() != len(captures) {
		return nil, fmt.Errorf("intent %q: utterance %q: capture syntax adds capture groups (%d groups for %d slots); use (?:...) for alternation",
			intentName, utterance, re.NumSubexp(), len(captures))
	}

	return &matcher{
		utterance: utterance,
		re:        re,
		captures:  captures,
		bareSlot:  bareSlotRE.MatchString(strings.TrimSpace(utterance)),
	}, nil
}

// substituteMisspellings widens the pattern so known misspellings of the
// template's words also match. The original template's distinct words are
// consulted (the author is assumed correct); each word with recorded
// misspellings is replaced, case-insensitively and globally, by an
// alternation of the word and its misspellings.
func substituteMisspellings(work, original string, sp Speller, emit func(string) string) string {
	if sp == nil {
		return work
	}
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(original) {
		word = strings.ToLower(strings.Trim(word, ",.?!:;"))
		if word == "" || strings.ContainsAny(word, "{}") {
			continue
		}
		// Digit-only words are skipped: the placeholder markers are numeric,
		// so a word regex like \b0\b could rewrite a marker instead of the
		// template text. Nobody records misspellings of numerals anyway.
		if isAllDigits(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}

		misspellings := sp.Misspellings(word)
		if len(misspellings) == 0 {
			continue
		}
		alternatives := make([]string, 0, len(misspellings)+1)
		alternatives = append(alternatives, regexp.QuoteMeta(word))
		for _, m := range misspellings {
			alternatives = append(alternatives, regexp.QuoteMeta(m))
		}
		marker := emit("(?:" + strings.Join(alternatives, "|") + ")")
		wordRE := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		work = wordRE.ReplaceAllLiteralString(work, marker)
	}
	return work
}

// escapeLiterals escapes regexp metacharacters the template author meant as
// plain text. Only brackets and parentheses need handling: generated
// fragments are still hidden behind markers when this runs.
func escapeLiterals(s string) string {
	replacer := strings.NewReplacer(
		"[", `\[`,
		"]", `\]`,
		"(", `\(`,
		")", `\)`,
	)
	return replacer.Replace(s)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func findSlot(declared []IntentSlot, name string) (IntentSlot, bool) {
	for _, s := range declared {
		if s.Name == name {
			return s, true
		}
	}
	return IntentSlot{}, false
}

func slotNames(declared []IntentSlot) []string {
	names := make([]string, len(declared))
	for i, s := range declared {
		names[i] = s.Name
	}
	return names
}
