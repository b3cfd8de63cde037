package engine

import "context"

// Kind classifies what a command resolved to.
type Kind int

const (
	// KindIntent is an ordinary intent match, including the bare
	// intent-name fallback (which carries no slot values).
	KindIntent Kind = iota
	// KindQuestion is a question dialog outcome: the prompt being issued by
	// Ask, or an answer accepted by the question's slot type.
	KindQuestion
	// KindCancelled is a question dismissed by a cancellation phrase. From
	// the dispatcher's point of view this is a terminal success,
	// distinguished only by which callback fired.
	KindCancelled
)

// Result is the value a Reply resolves to.
type Result struct {
	// Name is the matched intent or question name.
	Name string
	Kind Kind
	// Values holds the evaluated slot values in the intent's declared slot
	// order. Nil for intent-name fallback matches and question prompts.
	Values []any
	// Response is whatever text the bound handler returned, ready to be sent
	// back to the user. On a rejected Reply it may carry the not-found or
	// reject handler's message.
	Response string
}

// Reply is the asynchronous handle returned by HandleCommand and Ask. The
// engine guarantees that resolution never happens on the caller's stack
// frame: matching, slot evaluation, and callbacks run on a per-call goroutine
// and the outcome is only observable through Done and Wait.
type Reply struct {
	done   chan struct{}
	result Result
	err    error
}

func newReply() *Reply {
	return &Reply{done: make(chan struct{})}
}

// Done is closed once the reply has resolved or rejected.
func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the reply settles or ctx is cancelled. On rejection the
// returned Result may still carry a Response from the not-found or reject
// handler.
func (r *Reply) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-r.done:
		return r.result, r.err
	}
}

func (r *Reply) resolve(res Result) {
	r.result = res
	close(r.done)
}

func (r *Reply) reject(res Result, err error) {
	r.result = res
	r.err = err
	close(r.done)
}
