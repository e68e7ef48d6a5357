// Package statemachine implements a small finite state machine with guarded
// transitions and side-effect actions. The checkout flow uses it to make
// illegal lifecycle transitions explicit errors instead of silent string
// comparisons.
package statemachine

import (
	"context"
	"sync"
)

// State is a named state in the machine.
type State string

// Event is a named trigger for a transition.
type Event string

// Action runs side effects during a transition. Returning an error aborts
// the transition and leaves the machine in its current state.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard decides whether a transition is allowed under runtime conditions.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition describes a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // all must pass
	Actions []Action // run in order before the state change
}

// Machine is a thread-safe finite state machine.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[State]map[Event][]Transition
}

// New creates a machine in the given initial state.
func New(initial State) *Machine {
	return &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[State]map[Event][]Transition),
	}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// AddTransition registers a transition. Multiple transitions for the same
// from/event pair are allowed; guards decide which one fires, in
// registration order.
func (m *Machine) AddTransition(t Transition) error {
	if t.From == "" || t.To == "" || t.Event == "" {
		return ErrInvalidTransition
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transitions[t.From]; !ok {
		m.transitions[t.From] = make(map[Event][]Transition)
	}
	m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	return nil
}

// Fire attempts to apply the event to the current state. The first
// registered transition whose guards all pass wins. Actions run before the
// state change; an action error aborts the transition.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	if event == "" {
		return ErrInvalidEvent
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return &NoTransitionError{State: m.current, Event: event}
	}

	var chosen *Transition
	for i := range candidates {
		if guardsPass(ctx, candidates[i], m.current, event, data) {
			chosen = &candidates[i]
			break
		}
	}
	if chosen == nil {
		return &TransitionRejectedError{State: m.current, Event: event}
	}

	for _, action := range chosen.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, m.current, chosen.To, event, data); err != nil {
			return err
		}
	}

	m.current = chosen.To
	return nil
}

// CanFire reports whether the event would be accepted in the current state.
func (m *Machine) CanFire(ctx context.Context, event Event, data any) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.transitions[m.current][event] {
		if guardsPass(ctx, t, m.current, event, data) {
			return true
		}
	}
	return false
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

func guardsPass(ctx context.Context, t Transition, from State, event Event, data any) bool {
	for _, guard := range t.Guards {
		if guard != nil && !guard(ctx, from, event, data) {
			return false
		}
	}
	return true
}
