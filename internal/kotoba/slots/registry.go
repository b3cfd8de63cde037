package slots

import (
	"errors"
	"fmt"
	"sync"
)

// Registry errors. Callers distinguish them with errors.Is; all of them
// indicate programmer error at registration time and are never retried.
var (
	ErrDuplicateSlotType = errors.New("slot type already registered")
	ErrUnknownSlotType   = errors.New("unknown slot type")
	ErrSlotTypeInUse     = errors.New("slot type is referenced by a registered intent")
)

// Registry is the engine-scoped slot-type table. A registry can be shared by
// several engines: each question dialog runs on a private sub-engine that
// borrows its parent's registry rather than copying it.
type Registry struct {
	mu    sync.Mutex
	types map[string]*SlotType
	refs  map[string]int // reference counts held by registered intents
}

// NewRegistry returns an empty slot-type registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*SlotType),
		refs:  make(map[string]int),
	}
}

// Add registers a slot type. The name must be unique within the registry.
func (r *Registry) Add(st SlotType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[st.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSlotType, st.Name)
	}
	cp := st
	r.types[st.Name] = &cp
	return nil
}

// Remove deletes a slot type. It refuses while any registered intent still
// references the type; matchers already compiled against other types are
// unaffected.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSlotType, name)
	}
	if r.refs[name] > 0 {
		return fmt.Errorf("%w: %q", ErrSlotTypeInUse, name)
	}
	delete(r.types, name)
	return nil
}

// Get returns the slot type with the given name.
func (r *Registry) Get(name string) (*SlotType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlotType, name)
	}
	return st, nil
}

// Retain records that an intent now references each of the named slot types.
// Every name must already be registered.
func (r *Registry) Retain(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, ok := r.types[n]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSlotType, n)
		}
	}
	for _, n := range names {
		r.refs[n]++
	}
	return nil
}

// Release drops references previously taken with Retain.
func (r *Registry) Release(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if r.refs[n] > 0 {
			r.refs[n]--
		}
	}
}
