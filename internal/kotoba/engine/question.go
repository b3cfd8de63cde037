package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

// QuestionSpec describes a single-answer dialog. A question is internally a
// private single-slot intent (the slot is named Answer) living on its own
// sub-engine that borrows the parent's slot types. When OnCancel is set, a
// cancel intent matching never-mind phrases is registered ahead of the
// question intent so cancellation is always tried first.
type QuestionSpec struct {
	Name     string
	SlotType string
	// Utterances are templates for the expected answer, referencing the
	// {Answer} slot. Default: the answer is the whole input, "{Answer}".
	Utterances []string
	// Prompt is invoked by Ask; its response is how the question is posed.
	Prompt Handler
	// OnAnswer is invoked with the transformed answer as Values[0].
	OnAnswer Handler
	// OnReject is invoked when the answer matches neither the slot type nor a
	// cancellation phrase. The engine imposes no retry loop; OnReject may Ask
	// again.
	OnReject Handler
	// OnCancel, when set, enables cancellation phrases for this question.
	OnCancel Handler
}

// question is the registered form of a QuestionSpec.
type question struct {
	name       string
	spec       QuestionSpec
	sub        *Engine
	cancelName string
}

// AskRequest poses a registered question to one user.
type AskRequest struct {
	Question string
	UserKey  string
	Data     any
	HasData  bool
}

// RegisterQuestion builds and stores a question. A name collision — with an
// intent, another question, or a cancel intent — returns (false, nil);
// configuration errors (unknown slot type, bad utterance) are returned as
// errors.
func (e *Engine) RegisterQuestion(spec QuestionSpec) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancelName := spec.Name + "__cancel"
	if _, dup := e.reserved[spec.Name]; dup {
		return false, nil
	}
	if _, dup := e.reserved[cancelName]; dup {
		return false, nil
	}

	sub := newSubEngine(e)
	if spec.OnCancel != nil {
		// Registered before the question intent so cancellation phrases win
		// the sub-engine's register-order scan.
		if _, err := sub.RegisterIntent(IntentSpec{
			Name:       cancelName,
			Slots:      []IntentSlot{{Name: "Nevermind", Type: slots.TypeNevermind}},
			Utterances: []string{"{Nevermind}"},
		}); err != nil {
			return false, fmt.Errorf("question %q: cancel intent: %w", spec.Name, err)
		}
	}

	utterances := spec.Utterances
	if len(utterances) == 0 {
		utterances = []string{"{Answer}"}
	}
	if _, err := sub.RegisterIntent(IntentSpec{
		Name:       spec.Name,
		Slots:      []IntentSlot{{Name: "Answer", Type: spec.SlotType}},
		Utterances: utterances,
	}); err != nil {
		// Balance the cancel intent's slot-type references on the shared
		// registry before discarding the sub-engine.
		sub.DeregisterIntent(cancelName)
		return false, fmt.Errorf("question %q: %w", spec.Name, err)
	}

	q := &question{name: spec.Name, spec: spec, sub: sub, cancelName: cancelName}
	e.questions[spec.Name] = q
	e.reserved[spec.Name] = struct{}{}
	e.reserved[cancelName] = struct{}{}
	return true, nil
}

// DeregisterQuestion removes a question, frees its names, and clears it from
// any user it is pending for. Returns false for an unknown question.
func (e *Engine) DeregisterQuestion(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	q, ok := e.questions[name]
	if !ok {
		return false
	}
	delete(e.questions, name)
	delete(e.reserved, q.name)
	delete(e.reserved, q.cancelName)
	// The sub-engine holds references on the shared slot-type registry; drop
	// them so RemoveSlotType works once the last referencing question is gone.
	q.sub.DeregisterIntent(q.name)
	q.sub.DeregisterIntent(q.cancelName)
	for key, pending := range e.active {
		if pending == q {
			delete(e.active, key)
		}
	}
	return true
}

// Ask poses a question anonymously with no context datum.
func (e *Engine) Ask(ctx context.Context, questionName string) *Reply {
	return e.AskFor(ctx, AskRequest{Question: questionName})
}

// AskFor marks the question active for the request's user — replacing any
// question already pending for them — and invokes its Prompt. The state
// transition happens before AskFor returns, so a question asked from inside
// a success callback is immediately the one the user's next command answers.
// Asking does not itself consume input; the Reply resolves once the prompt
// has been issued, and rejects with ErrUnknownQuestion for unknown names.
func (e *Engine) AskFor(ctx context.Context, req AskRequest) *Reply {
	reply := newReply()

	e.mu.Lock()
	q, known := e.questions[req.Question]
	if known {
		e.active[userKey(req.UserKey)] = q
	}
	e.mu.Unlock()

	go func() {
		if !known {
			reply.reject(Result{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, req.Question))
			return
		}
		res := Result{Name: q.name, Kind: KindQuestion}
		if q.spec.Prompt != nil {
			m := &Match{Name: q.name, UserKey: req.UserKey, Data: req.Data, HasData: req.HasData}
			resp, err := q.spec.Prompt(ctx, m)
			if err != nil {
				reply.reject(res, fmt.Errorf("question %q: prompt: %w", q.name, err))
				return
			}
			res.Response = resp
		}
		reply.resolve(res)
	}()
	return reply
}

// answerQuestion evaluates a command as the answer to a pending question.
// The caller has already cleared the active entry.
func (e *Engine) answerQuestion(ctx context.Context, q *question, command string, req Request, reply *Reply) {
	m := &Match{Name: q.name, Command: command, UserKey: req.UserKey, Data: req.Data, HasData: req.HasData}

	hit, ok := q.sub.dispatch(command)
	// The sub-engine's intent-name fallback would accept a user typing the
	// question's own name; that is not an answer.
	if ok && !hit.fallback {
		if hit.intent.name == q.cancelName {
			res := Result{Name: q.name, Kind: KindCancelled}
			res.Response = e.invokeQuestionHandler(ctx, q.spec.OnCancel, m, "cancel")
			reply.resolve(res)
			return
		}
		m.Values = hit.values
		res := Result{Name: q.name, Kind: KindQuestion, Values: hit.values}
		res.Response = e.invokeQuestionHandler(ctx, q.spec.OnAnswer, m, "answer")
		reply.resolve(res)
		return
	}

	res := Result{Name: q.name}
	res.Response = e.invokeQuestionHandler(ctx, q.spec.OnReject, m, "reject")
	reply.reject(res, fmt.Errorf("question %q: %w", q.name, ErrAnswerRejected))
}

func (e *Engine) invokeQuestionHandler(ctx context.Context, h Handler, m *Match, stage string) string {
	if h == nil {
		return ""
	}
	resp, err := h(ctx, m)
	if err != nil {
		slog.Error("question handler failed", "question", m.Name, "stage", stage, "err", err)
	}
	return resp
}
