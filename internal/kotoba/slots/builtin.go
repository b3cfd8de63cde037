package slots

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Built-in slot type names.
const (
	TypeString    = "STRING"
	TypeWord      = "WORD"
	TypeNumber    = "NUMBER"
	TypeCurrency  = "CURRENCY"
	TypeDate      = "DATE"
	TypeSlackName = "SLACK_NAME"
	TypeSlackRoom = "SLACK_ROOM"
	// TypeNevermind backs the auto-generated cancel intents of question
	// dialogs. It is registered like any other type so user intents may also
	// match cancellation phrases.
	TypeNevermind = "NEVERMIND"
)

var (
	wordPattern      = regexp.MustCompile(`^\w+$`)
	slackNamePattern = regexp.MustCompile(`^<@\w+>$`)
	slackRoomPattern = regexp.MustCompile(`^<#\w+>$`)
)

// dateLayouts are tried in order by the DATE transform.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"January 2 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2",
	"Jan 2",
}

// Defaults returns the standard slot-type table. The engine registers these
// on construction; tests that want a bare table use NewRegistry directly.
func Defaults() []SlotType {
	return []SlotType{
		{
			Name:    TypeString,
			Matcher: MatchTransform(matchString),
		},
		{
			Name:          TypeWord,
			Matcher:       MatchPattern(wordPattern),
			CaptureSyntax: `\w+`,
		},
		{
			Name:    TypeNumber,
			Matcher: MatchTransform(matchNumber),
		},
		{
			Name:    TypeCurrency,
			Matcher: MatchTransform(matchCurrency),
		},
		{
			Name:    TypeDate,
			Matcher: MatchTransform(matchDate),
		},
		{
			Name:          TypeSlackName,
			Matcher:       MatchPattern(slackNamePattern),
			CaptureSyntax: `<@\w+>`,
		},
		{
			Name:          TypeSlackRoom,
			Matcher:       MatchPattern(slackRoomPattern),
			CaptureSyntax: `<#\w+>`,
		},
		{
			Name: TypeNevermind,
			Matcher: MatchAnyOf(
				"never mind", "nevermind", "nevermind that",
				"forget it", "forget that", "cancel", "cancel that",
				"stop", "abort", "no",
			),
		},
	}
}

// RegisterDefaults adds every default slot type to r.
func RegisterDefaults(r *Registry) error {
	for _, st := range Defaults() {
		if err := r.Add(st); err != nil {
			return err
		}
	}
	return nil
}

func matchString(fragment string) (any, bool) {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return nil, false
	}
	return trimmed, true
}

// matchNumber parses a decimal number with optional thousands separators.
// "9,000.01" yields float64(9000.01); "0" yields float64(0), which is a valid
// match.
func matchNumber(fragment string) (any, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(fragment), ",", "")
	if cleaned == "" {
		return nil, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

// matchCurrency is matchNumber with leading currency symbols stripped.
func matchCurrency(fragment string) (any, bool) {
	cleaned := strings.TrimSpace(fragment)
	cleaned = strings.TrimLeft(cleaned, "$£€¥")
	return matchNumber(cleaned)
}

// matchDate parses common date spellings and the relative words today,
// tomorrow, and yesterday. The value is a time.Time at midnight local time.
func matchDate(fragment string) (any, bool) {
	cleaned := strings.TrimSpace(fragment)
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	switch strings.ToLower(cleaned) {
	case "today":
		return midnight, true
	case "tomorrow":
		return midnight.AddDate(0, 0, 1), true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		// Layouts without a year parse as year 0; pin those to the
		// current year.
		if t.Year() == 0 {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
		}
		return t, true
	}
	return nil, false
}
