// Package engine matches free-text commands against registered utterance
// templates, extracts typed slot values, dispatches to bound handlers, and
// runs short per-user question dialogs.
//
// Registration methods surface configuration mistakes (duplicate slot types,
// undeclared slot references, unknown slot types) synchronously; runtime
// misses only ever surface through Reply rejection. Handlers may call back
// into the engine (Ask, RegisterIntent) — the engine never holds its lock
// while user callbacks run. Slot transform functions are the one exception:
// they execute during matching and must not call back into the engine.
package engine

import (
	"sync"

	"github.com/bdobrica/Kotoba/internal/kotoba/slots"
)

// anonymousKey is the active-question map key used when a request carries no
// user identifier. The NUL byte keeps it from colliding with a real user ID
// that happens to be the word "anonymous".
const anonymousKey = "\x00anonymous"

// Speller is the corpus-derived misspelling capability consumed at utterance
// compile time. spelling.Corpus implements it.
type Speller interface {
	Misspellings(word string) []string
}

// Engine owns the slot-type table, the ordered intent list, the registered
// questions, and the per-user active-question map.
type Engine struct {
	mu        sync.Mutex
	slotTypes *slots.Registry
	speller   Speller
	// anchorEnd is set on question sub-engines: a dialog answer must consume
	// the whole input, so answer matchers anchor both ends.
	anchorEnd bool

	intents []*Intent
	byName  map[string]*Intent
	// reserved tracks every name in use — intents, questions, and their
	// auto-generated cancel intents share one namespace.
	reserved  map[string]struct{}
	questions map[string]*question
	active    map[string]*question
	notFound  Handler
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpeller wires the misspelling capability used during compilation.
func WithSpeller(sp Speller) Option {
	return func(e *Engine) { e.speller = sp }
}

// WithSlotTypes makes the engine borrow an existing slot-type registry
// instead of owning a fresh one with the default types. Question sub-engines
// are built this way so dialogs see the same slot types as their parent.
func WithSlotTypes(r *slots.Registry) Option {
	return func(e *Engine) { e.slotTypes = r }
}

// New builds an engine. Unless WithSlotTypes is given, the engine owns a new
// registry preloaded with the default slot types.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		byName:    make(map[string]*Intent),
		reserved:  make(map[string]struct{}),
		questions: make(map[string]*question),
		active:    make(map[string]*question),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.slotTypes == nil {
		e.slotTypes = slots.NewRegistry()
		if err := slots.RegisterDefaults(e.slotTypes); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// newSubEngine builds the private engine backing one question: shared slot
// types, shared speller, both-ends anchoring.
func newSubEngine(parent *Engine) *Engine {
	return &Engine{
		slotTypes: parent.slotTypes,
		speller:   parent.speller,
		anchorEnd: true,
		byName:    make(map[string]*Intent),
		reserved:  make(map[string]struct{}),
		questions: make(map[string]*question),
		active:    make(map[string]*question),
	}
}

// SlotTypes exposes the engine's slot-type registry.
func (e *Engine) SlotTypes() *slots.Registry { return e.slotTypes }

// AddSlotType registers a slot type; it fails on a duplicate name.
func (e *Engine) AddSlotType(st slots.SlotType) error {
	return e.slotTypes.Add(st)
}

// RemoveSlotType deletes a slot type; it fails while any registered intent
// still references the type.
func (e *Engine) RemoveSlotType(name string) error {
	return e.slotTypes.Remove(name)
}

// RegisterIntent compiles and stores an intent. A duplicate name (across
// intents, questions, and cancel intents) returns (false, nil); compile-time
// configuration errors are returned as errors.
func (e *Engine) RegisterIntent(spec IntentSpec) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerIntentLocked(spec)
}

func (e *Engine) registerIntentLocked(spec IntentSpec) (bool, error) {
	if _, dup := e.reserved[spec.Name]; dup {
		return false, nil
	}

	it := &Intent{
		name:    spec.Name,
		slots:   append([]IntentSlot(nil), spec.Slots...),
		handler: spec.Handler,
	}
	for _, u := range spec.Utterances {
		m, err := compileUtterance(spec.Name, u, it.slots, e.slotTypes, e.speller, e.anchorEnd)
		if err != nil {
			return false, err
		}
		it.matchers = append(it.matchers, m)
	}

	if err := e.slotTypes.Retain(slotTypeNames(it.slots)...); err != nil {
		return false, err
	}

	e.intents = append(e.intents, it)
	e.byName[it.name] = it
	e.reserved[it.name] = struct{}{}
	return true, nil
}

// DeregisterIntent removes an intent and releases its slot-type references.
// Returns false when no such intent exists.
func (e *Engine) DeregisterIntent(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.byName[name]
	if !ok {
		return false
	}
	for i, candidate := range e.intents {
		if candidate == it {
			e.intents = append(e.intents[:i], e.intents[i+1:]...)
			break
		}
	}
	delete(e.byName, name)
	delete(e.reserved, name)
	e.slotTypes.Release(slotTypeNames(it.slots)...)
	return true
}

// AddUtterance compiles one more template for an existing intent. Unknown
// intent or an already-registered utterance returns (false, nil); compile
// errors are returned as errors.
func (e *Engine) AddUtterance(intentName, utterance string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.byName[intentName]
	if !ok {
		return false, nil
	}
	for _, m := range it.matchers {
		if m.utterance == utterance {
			return false, nil
		}
	}
	m, err := compileUtterance(intentName, utterance, it.slots, e.slotTypes, e.speller, e.anchorEnd)
	if err != nil {
		return false, err
	}
	// Copy-on-write so an in-flight dispatch walking the old slice is safe.
	it.matchers = append(append([]*matcher(nil), it.matchers...), m)
	return true, nil
}

// RemoveUtterance drops a template from an intent. Returns false when the
// intent or the utterance is unknown.
func (e *Engine) RemoveUtterance(intentName, utterance string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.byName[intentName]
	if !ok {
		return false
	}
	for i, m := range it.matchers {
		if m.utterance == utterance {
			rebuilt := append([]*matcher(nil), it.matchers[:i]...)
			it.matchers = append(rebuilt, it.matchers[i+1:]...)
			return true
		}
	}
	return false
}

// RegisterNotFound binds the handler invoked when a command matches nothing
// and no question was pending for the user.
func (e *Engine) RegisterNotFound(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notFound = h
}
