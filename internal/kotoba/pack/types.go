// Package pack loads declarative command packs: versioned YAML documents
// declaring slot types, intents and questions, installable into an engine
// without writing Go handler code. Replies come from templates that
// substitute matched slot values.
package pack

// SpecVersion is the API version string required in every pack document.
const SpecVersion = "kotoba/v1"

// Pack is the root type for a command pack document.
type Pack struct {
	// APIVersion must be "kotoba/v1".
	APIVersion string `yaml:"apiVersion" json:"apiVersion"`

	// Metadata holds descriptive metadata.
	Metadata Metadata `yaml:"metadata" json:"metadata"`

	// SlotTypes declares custom slot types registered before any intent in
	// this pack compiles. Builtin types need no declaration.
	SlotTypes []SlotTypeDecl `yaml:"slotTypes,omitempty" json:"slotTypes,omitempty"`

	// Intents declares the pack's commands.
	Intents []IntentDecl `yaml:"intents,omitempty" json:"intents,omitempty"`

	// Questions declares the pack's dialogs.
	Questions []QuestionDecl `yaml:"questions,omitempty" json:"questions,omitempty"`
}

// Metadata holds descriptive information about a pack.
type Metadata struct {
	// Name identifies the pack.
	Name string `yaml:"name" json:"name"`

	// Description is a human-readable summary of what the pack's commands do.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// SlotTypeDecl declares a custom slot type. Exactly one of OneOf and Pattern
// must be set.
type SlotTypeDecl struct {
	// Name is the type name intents reference, conventionally UPPER_SNAKE.
	Name string `yaml:"name" json:"name"`

	// OneOf lists the accepted values. Matching is case-insensitive; the
	// matched value is reported lowercased.
	OneOf []string `yaml:"oneOf,omitempty" json:"oneOf,omitempty"`

	// Pattern is a regular expression the whole fragment must satisfy.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	// Capture overrides the regex fragment used for this type's capture
	// group inside utterance patterns. Default ".+".
	Capture string `yaml:"capture,omitempty" json:"capture,omitempty"`
}

// IntentDecl declares one command.
type IntentDecl struct {
	// Name is the unique intent name, conventionally UPPER_SNAKE.
	Name string `yaml:"name" json:"name"`

	// Slots declares the placeholders the utterances may reference.
	Slots []SlotRef `yaml:"slots,omitempty" json:"slots,omitempty"`

	// Utterances are the templates that trigger this intent.
	Utterances []string `yaml:"utterances" json:"utterances"`

	// Reply is the response template. {Slot} placeholders substitute the
	// matched values.
	Reply string `yaml:"reply,omitempty" json:"reply,omitempty"`
}

// SlotRef binds a slot name to a slot type.
type SlotRef struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// QuestionDecl declares one dialog.
type QuestionDecl struct {
	// Name is the unique question name.
	Name string `yaml:"name" json:"name"`

	// SlotType is the type the answer must satisfy.
	SlotType string `yaml:"slotType" json:"slotType"`

	// Utterances are answer templates referencing {Answer}. Default: the
	// whole input is the answer.
	Utterances []string `yaml:"utterances,omitempty" json:"utterances,omitempty"`

	// Prompt is the text posed when the question is asked.
	Prompt string `yaml:"prompt" json:"prompt"`

	// Reply is the response template for an accepted answer; {Answer}
	// substitutes the transformed value.
	Reply string `yaml:"reply,omitempty" json:"reply,omitempty"`

	// RejectReply is the response for an answer that fails the slot type.
	RejectReply string `yaml:"rejectReply,omitempty" json:"rejectReply,omitempty"`

	// CancelReply, when set, enables cancellation phrases and is the
	// response to them.
	CancelReply string `yaml:"cancelReply,omitempty" json:"cancelReply,omitempty"`
}
