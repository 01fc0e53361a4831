package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when no rule matches the current state and event.
var ErrInvalidTransition = errors.New("fsm: invalid transition")

// TransitionError describes a rejected transition.
type TransitionError struct {
	From  string
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("fsm: invalid transition: no rule for event %s in state %s", e.Event, e.From)
}

// Unwrap returns ErrInvalidTransition so callers can match with errors.Is.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Action runs while a transition is applied, before the new state is visible.
type Action func()

type key[S comparable, E comparable] struct {
	from  S
	event E
}

type rule[S comparable] struct {
	to     S
	action Action
}

// Machine is a finite state machine driven by events.
type Machine[S comparable, E comparable] struct {
	mu       sync.Mutex
	current  S
	rules    map[key[S, E]]rule[S]
	observer func(from, to S, event E)
}

// New creates a machine in the given initial state with no transitions.
func New[S comparable, E comparable](initial S) *Machine[S, E] {
	return &Machine[S, E]{
		current: initial,
		rules:   make(map[key[S, E]]rule[S]),
	}
}

// AddTransition registers the rule (from, event) -> to with an optional action.
// Registering the same (from, event) pair twice replaces the earlier rule.
// Not safe for concurrent use with Fire.
func (m *Machine[S, E]) AddTransition(from S, event E, to S, action Action) {
	m.rules[key[S, E]{from: from, event: event}] = rule[S]{to: to, action: action}
}

// OnTransition sets an observer called after every successful transition.
// The observer runs outside the machine's lock. Not safe for concurrent use with Fire.
func (m *Machine[S, E]) OnTransition(fn func(from, to S, event E)) {
	m.observer = fn
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Can reports whether event has a rule in the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rules[key[S, E]{from: m.current, event: event}]
	return ok
}

// Fire applies the rule matching the current state and event and returns the new state.
// If no rule matches, the state is unchanged and a *TransitionError is returned.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.current
	r, ok := m.rules[key[S, E]{from: from, event: event}]
	if !ok {
		m.mu.Unlock()
		return from, &TransitionError{From: fmt.Sprint(from), Event: fmt.Sprint(event)}
	}

	if r.action != nil {
		r.action()
	}
	m.current = r.to
	observer := m.observer
	m.mu.Unlock()

	// Notify outside of lock
	if observer != nil {
		observer(from, r.to, event)
	}

	return r.to, nil
}
