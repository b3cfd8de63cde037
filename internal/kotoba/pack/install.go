package pack

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bdobrica/Kotoba/internal/kotoba/engine"
	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

var replyPlaceholderRE = regexp.MustCompile(`\{(\w+)\}`)

// Install registers a pack's slot types, intents and questions on an engine.
// Declared replies become the handlers: a matched intent answers with its
// reply template, slot placeholders substituted with the matched values.
// Installation stops at the first failure; already-installed declarations
// stay registered.
func Install(e *engine.Engine, p *Pack) error {
	for _, decl := range p.SlotTypes {
		st, err := buildSlotType(decl)
		if err != nil {
			return fmt.Errorf("pack %q: slot type %q: %w", p.Metadata.Name, decl.Name, err)
		}
		if err := e.AddSlotType(st); err != nil {
			return fmt.Errorf("pack %q: slot type %q: %w", p.Metadata.Name, decl.Name, err)
		}
	}

	for _, decl := range p.Intents {
		spec := engine.IntentSpec{
			Name:       decl.Name,
			Utterances: decl.Utterances,
			Handler:    replyHandler(decl.Reply, slotNames(decl.Slots)),
		}
		for _, s := range decl.Slots {
			spec.Slots = append(spec.Slots, engine.IntentSlot{Name: s.Name, Type: s.Type})
		}
		ok, err := e.RegisterIntent(spec)
		if err != nil {
			return fmt.Errorf("pack %q: intent %q: %w", p.Metadata.Name, decl.Name, err)
		}
		if !ok {
			return fmt.Errorf("pack %q: intent %q: name already registered", p.Metadata.Name, decl.Name)
		}
	}

	for _, decl := range p.Questions {
		spec := engine.QuestionSpec{
			Name:       decl.Name,
			SlotType:   decl.SlotType,
			Utterances: decl.Utterances,
			Prompt:     staticHandler(decl.Prompt),
			OnAnswer:   replyHandler(decl.Reply, []string{"Answer"}),
			OnReject:   staticHandler(decl.RejectReply),
		}
		if decl.CancelReply != "" {
			spec.OnCancel = staticHandler(decl.CancelReply)
		}
		ok, err := e.RegisterQuestion(spec)
		if err != nil {
			return fmt.Errorf("pack %q: question %q: %w", p.Metadata.Name, decl.Name, err)
		}
		if !ok {
			return fmt.Errorf("pack %q: question %q: name already registered", p.Metadata.Name, decl.Name)
		}
	}
	return nil
}

func buildSlotType(decl SlotTypeDecl) (slots.SlotType, error) {
	st := slots.SlotType{Name: decl.Name, CaptureSyntax: decl.Capture}
	switch {
	case len(decl.OneOf) > 0:
		st.Matcher = slots.MatchAnyOf(decl.OneOf...)
	case decl.Pattern != "":
		re, err := regexp.Compile(decl.Pattern)
		if err != nil {
			return slots.SlotType{}, fmt.Errorf("pattern: %w", err)
		}
		st.Matcher = slots.MatchPattern(re)
	default:
		return slots.SlotType{}, fmt.Errorf("one of oneOf or pattern is required")
	}
	return st, nil
}

func slotNames(refs []SlotRef) []string {
	names := make([]string, len(refs))
	for i, s := range refs {
		names[i] = s.Name
	}
	return names
}

// replyHandler expands a reply template against the matched slot values.
// Placeholders naming no declared slot, and slots the matched utterance did
// not fill, render empty.
func replyHandler(template string, slotOrder []string) engine.Handler {
	if template == "" {
		return nil
	}
	index := make(map[string]int, len(slotOrder))
	for i, name := range slotOrder {
		index[name] = i
	}
	return func(ctx context.Context, m *engine.Match) (string, error) {
		return replyPlaceholderRE.ReplaceAllStringFunc(template, func(ph string) string {
			name := ph[1 : len(ph)-1]
			i, ok := index[name]
			if !ok || i >= len(m.Values) || m.Values[i] == nil {
				return ""
			}
			return fmt.Sprint(m.Values[i])
		}), nil
	}
}

func staticHandler(text string) engine.Handler {
	return func(ctx context.Context, m *engine.Match) (string, error) {
		return text, nil
	}
}
