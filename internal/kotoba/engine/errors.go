package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Runtime errors delivered through Reply rejection. These are recoverable by
// the caller (show a "didn't understand" message, re-ask the question) and are
// never raised synchronously.
var (
	// ErrNoMatch means no compiled matcher accepted the command and the
	// intent-name fallback found nothing either.
	ErrNoMatch = errors.New("no intent matched the command")
	// ErrAnswerRejected means the user's reply to a pending question matched
	// neither the question's slot type nor a cancellation phrase. Rejections
	// carry the question name; unwrap with errors.Is.
	ErrAnswerRejected = errors.New("answer did not match the question")
	// ErrUnknownQuestion is returned by Ask for an unregistered question name.
	ErrUnknownQuestion = errors.New("unknown question")
)

// UnknownSlotError reports an utterance placeholder that names a slot the
// intent never declared. It is a configuration error surfaced synchronously
// at registration time.
type UnknownSlotError struct {
	Intent string
	Slot   string
	Valid  []string
}

func (e *UnknownSlotError) Error() string {
	valid := "none"
	if len(e.Valid) > 0 {
		valid = strings.Join(e.Valid, ", ")
	}
	return fmt.Sprintf("intent %q: utterance references undeclared slot {%s} (declared slots: %s)", e.Intent, e.Slot, valid)
}
