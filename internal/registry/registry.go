// Package registry holds the catalog of responders that can answer a message.
//
// A Registry is filled once at startup, frozen, and then shared read-only by
// every session. Registration order is significant: the selector uses it to
// break score ties.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrDuplicateID is returned when a responder id is registered twice.
	ErrDuplicateID = errors.New("duplicate responder id")
	// ErrFrozen is returned when Register is called after Freeze.
	ErrFrozen = errors.New("registry is frozen")
	// ErrInvalidDescriptor is returned for descriptors missing an id.
	ErrInvalidDescriptor = errors.New("invalid responder descriptor")
)

// Descriptor describes a responder. It is never mutated after registration.
type Descriptor struct {
	// ID is the unique responder identifier.
	ID string
	// Name is the display name, also matched verbatim by the selector.
	Name string
	// Specialties are short phrases describing what the responder knows.
	Specialties []string
	// Priority is the base selection score.
	Priority int
	// CanHandle filters responders before scoring. Nil means "handles everything".
	CanHandle func(message string) bool
	// SystemPrompt frames generation for this responder.
	SystemPrompt string
	// Fallback is returned verbatim when generation fails.
	Fallback string
	// Provider is a preferred LLM provider hint.
	Provider string
	// Tools lists tool ids this responder may call.
	Tools []string
}

// Handles reports whether the descriptor accepts the message.
func (d Descriptor) Handles(message string) bool {
	if d.CanHandle == nil {
		return true
	}
	return d.CanHandle(message)
}

// TriggerTable maps a responder id to its trigger words.
type TriggerTable map[string][]string

// Registry is an ordered set of responder descriptors.
type Registry struct {
	mu       sync.RWMutex
	order    []Descriptor
	index    map[string]int
	triggers TriggerTable
	frozen   bool
}

// New creates an empty registry using the given trigger table.
// The table is copied; later changes to the argument have no effect.
func New(triggers TriggerTable) *Registry {
	copied := make(TriggerTable, len(triggers))
	for id, words := range triggers {
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				lowered = append(lowered, w)
			}
		}
		copied[id] = lowered
	}
	return &Registry{
		index:    make(map[string]int),
		triggers: copied,
	}
}

// Register adds a descriptor. Duplicate ids are rejected.
func (r *Registry) Register(d Descriptor) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("register responder: %w", ErrInvalidDescriptor)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register responder %s: %w", d.ID, ErrFrozen)
	}
	if _, exists := r.index[d.ID]; exists {
		return fmt.Errorf("register responder %s: %w", d.ID, ErrDuplicateID)
	}

	d.Specialties = append([]string(nil), d.Specialties...)
	d.Tools = append([]string(nil), d.Tools...)
	r.index[d.ID] = len(r.order)
	r.order = append(r.order, d)
	return nil
}

// Freeze prevents further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the descriptor with the given id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Descriptor{}, false
	}
	return r.order[i], true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Triggers returns the lowercased trigger words for id, or nil.
func (r *Registry) Triggers(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.triggers[id]
}
