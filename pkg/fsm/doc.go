// Package fsm provides a small, table-driven finite state machine.
//
// Transitions are registered once during setup and are keyed by the pair
// (current state, event). Firing an event that has no registered rule for
// the current state fails with [ErrInvalidTransition] and leaves the state
// untouched.
//
// # Usage
//
//	m := fsm.New[Status, Event](StatusIdle)
//	m.AddTransition(StatusIdle, EventStart, StatusBusy, nil)
//	m.AddTransition(StatusBusy, EventDone, StatusIdle, func() { done.Set() })
//
//	if _, err := m.Fire(EventStart); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Fire and Current are safe for concurrent use. AddTransition and
// OnTransition must only be called before the machine is shared.
package fsm
