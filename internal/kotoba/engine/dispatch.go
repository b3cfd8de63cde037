package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

// quoteNormalizer maps "smart" quotes to their ASCII equivalents before
// matching, so text pasted from word processors and phones behaves.
var quoteNormalizer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

func cleanCommand(command string) string {
	return strings.TrimSpace(quoteNormalizer.Replace(command))
}

// Request is a command to handle: the text plus optional user identity and
// context datum. HasData distinguishes an explicit nil datum from no datum.
type Request struct {
	Command string
	UserKey string
	Data    any
	HasData bool
}

func userKey(key string) string {
	if key == "" {
		return anonymousKey
	}
	return key
}

// HandleCommand matches a command with no user identity or context datum.
func (e *Engine) HandleCommand(ctx context.Context, command string) *Reply {
	return e.Handle(ctx, Request{Command: command})
}

// Handle evaluates a command asynchronously. When the request's user has a
// pending question the command is treated as that question's answer;
// otherwise it runs through the ordinary dispatcher. The returned Reply
// rejects with ErrNoMatch (after invoking the not-found handler) when nothing
// matches, and with ErrAnswerRejected when a pending question's answer fails.
func (e *Engine) Handle(ctx context.Context, req Request) *Reply {
	reply := newReply()
	go e.run(ctx, req, reply)
	return reply
}

func (e *Engine) run(ctx context.Context, req Request, reply *Reply) {
	command := cleanCommand(req.Command)

	// The active question is cleared before its answer is evaluated so a
	// success callback can Ask again without the in-flight state fighting it.
	e.mu.Lock()
	q, pending := e.active[userKey(req.UserKey)]
	if pending {
		delete(e.active, userKey(req.UserKey))
	}
	notFound := e.notFound
	e.mu.Unlock()

	if pending {
		e.answerQuestion(ctx, q, command, req, reply)
		return
	}

	hit, ok := e.dispatch(command)
	if !ok {
		res := Result{}
		if notFound != nil {
			m := &Match{Command: command, UserKey: req.UserKey, Data: req.Data, HasData: req.HasData}
			resp, err := notFound(ctx, m)
			if err != nil {
				slog.Error("not-found handler failed", "command", command, "err", err)
			}
			res.Response = resp
		}
		reply.reject(res, ErrNoMatch)
		return
	}

	m := &Match{
		Name:    hit.intent.name,
		Command: command,
		UserKey: req.UserKey,
		Data:    req.Data,
		HasData: req.HasData,
		Values:  hit.values,
	}
	res := Result{Name: hit.intent.name, Kind: KindIntent, Values: hit.values}
	if hit.intent.handler != nil {
		resp, err := hit.intent.handler(ctx, m)
		if err != nil {
			reply.reject(res, fmt.Errorf("intent %q: %w", hit.intent.name, err))
			return
		}
		res.Response = resp
	}
	reply.resolve(res)
}

// dispatchHit is a successful dispatch: the intent plus its slot values in
// declared order. fallback marks a bare intent-name match, which carries no
// slots.
type dispatchHit struct {
	intent   *Intent
	values   []any
	fallback bool
}

// dispatch walks every compiled matcher in registration order. First match
// wins, with one exception: a template that is just a single bare slot
// placeholder never ends the scan — it is kept as a provisional result so a
// more specific template registered later can still win. When only bare-slot
// templates matched, the earliest one is the result. When nothing matched,
// a command exactly equal to an intent's name matches that intent with zero
// slots.
func (e *Engine) dispatch(command string) (dispatchHit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var provisional *dispatchHit
	for _, it := range e.intents {
		for _, m := range it.matchers {
			sub := m.re.FindStringSubmatch(command)
			if sub == nil {
				continue
			}
			if len(m.captures) == 0 {
				return dispatchHit{intent: it, values: []any{}}, true
			}
			values, ok := evaluateCaptures(e.slotTypes, m, sub[1:])
			if !ok {
				continue
			}
			hit := dispatchHit{intent: it, values: orderValues(it.slots, values)}
			if m.bareSlot {
				if provisional == nil {
					provisional = &hit
				}
				continue
			}
			return hit, true
		}
	}
	if provisional != nil {
		return *provisional, true
	}

	if it, ok := e.byName[command]; ok {
		return dispatchHit{intent: it, fallback: true}, true
	}
	return dispatchHit{}, false
}

// evaluateCaptures runs each captured fragment through its slot's type, in
// capture order. Any failed slot makes the whole matcher a non-match.
func evaluateCaptures(types *slots.Registry, m *matcher, fragments []string) (map[string]any, bool) {
	values := make(map[string]any, len(m.captures))
	for i, slot := range m.captures {
		st, err := types.Get(slot.Type)
		if err != nil {
			// The type was validated at compile time; it can only be missing
			// here if it was force-removed since. Treat as a non-match.
			slog.Warn("slot type disappeared after compilation", "slot", slot.Name, "type", slot.Type)
			return nil, false
		}
		value, ok := slots.Evaluate(st, fragments[i])
		if !ok {
			return nil, false
		}
		values[slot.Name] = value
	}
	return values, true
}

// orderValues arranges evaluated values into the intent's declared slot
// order. Declared slots absent from the matched utterance stay nil.
func orderValues(declared []IntentSlot, values map[string]any) []any {
	ordered := make([]any, len(declared))
	for i, slot := range declared {
		if v, ok := values[slot.Name]; ok {
			ordered[i] = v
		}
	}
	return ordered
}
