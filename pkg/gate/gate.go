// Package gate provides a re-armable completion signal.
//
// A Gate starts cleared. Set releases every current and future waiter until
// Clear re-arms it. Waiters observe only that the gate fired, never why.
package gate

import (
	"context"
	"sync"
	"time"
)

// Gate is a single-shot, resettable event.
type Gate struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

// New returns a cleared gate.
func New() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Set releases all waiters. Calling Set on a set gate is a no-op.
func (g *Gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.set {
		return
	}
	g.set = true
	close(g.ch)
}

// Clear re-arms the gate. Waiters that already returned are unaffected.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.set {
		return
	}
	g.set = false
	g.ch = make(chan struct{})
}

// IsSet reports whether the gate is currently set.
func (g *Gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set
}

// Done returns a channel closed when the gate is set.
// The channel belongs to the current epoch; after Clear a new one is handed out.
func (g *Gate) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// Wait blocks until the gate is set or timeout elapses.
// Returns true if the gate was set in time. A non-positive timeout polls.
func (g *Gate) Wait(timeout time.Duration) bool {
	done := g.Done()
	if timeout <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// WaitContext blocks until the gate is set or ctx is done.
func (g *Gate) WaitContext(ctx context.Context) error {
	select {
	case <-g.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
