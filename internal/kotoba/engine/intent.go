package engine

import "context"

// IntentSlot declares a named, typed argument position on an intent. The
// declaration order of an intent's slots is authoritative for handler
// argument order, independent of where the slots appear in any utterance.
type IntentSlot struct {
	Name string
	Type string
}

// Match carries everything a handler needs about a matched command.
type Match struct {
	// Name is the matched intent or question name.
	Name string
	// Command is the cleaned command text.
	Command string
	// UserKey is the caller-supplied user identifier, empty when anonymous.
	UserKey string
	// Data is the caller-supplied context datum; HasData distinguishes an
	// explicit nil datum from no datum at all.
	Data    any
	HasData bool
	// Values holds slot values in the intent's declared slot order. Slots the
	// matched utterance never mentioned are nil.
	Values []any
}

// Handler is invoked on a match. The returned string is the reply text sent
// back to the user; it may be empty.
type Handler func(ctx context.Context, m *Match) (string, error)

// IntentSpec describes an intent to register: a unique name, the declared
// slots, one or more utterance templates, and the bound handler.
//
// Utterance registration order is priority order across the whole engine;
// list more specific utterances (and register more specific intents) first.
type IntentSpec struct {
	Name       string
	Slots      []IntentSlot
	Utterances []string
	Handler    Handler
}

// Intent is the registered form of an IntentSpec together with its compiled
// matchers. Matchers are rebuilt, never mutated, when utterances change.
type Intent struct {
	name     string
	slots    []IntentSlot
	handler  Handler
	matchers []*matcher
}

// Name returns the intent's unique name.
func (it *Intent) Name() string { return it.name }

// slotTypeNames returns the slot-type names referenced by the intent,
// with duplicates preserved so reference counting stays balanced.
func slotTypeNames(declared []IntentSlot) []string {
	names := make([]string, len(declared))
	for i, s := range declared {
		names[i] = s.Type
	}
	return names
}
