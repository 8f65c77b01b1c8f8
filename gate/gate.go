// Package gate implements the cooperative step-debugger primitive of
// spec.md §4.6: a pause/resume/step-once semaphore the runtime consults
// immediately before invoking a node's body.
package gate

import (
	"context"
	"sync"
)

// Gate is safe for concurrent use: one goroutine may call Pause/Resume/
// StepOnce while others call Wait.
type Gate struct {
	mu     sync.Mutex
	open   bool
	openCh chan struct{} // closed exactly when open transitions to true
	admit  chan struct{} // StepOnce tickets; unbuffered, non-blocking send
}

// New returns a Gate in the default open state.
func New() *Gate {
	g := &Gate{open: true, openCh: make(chan struct{}), admit: make(chan struct{})}
	close(g.openCh)
	return g
}

// Pause switches the gate closed: subsequent Wait calls block until
// Resume or StepOnce.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		g.open = false
		g.openCh = make(chan struct{})
	}
}

// Resume opens the gate permanently (until the next Pause).
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		g.open = true
		close(g.openCh)
	}
}

// StepOnce admits exactly one waiter currently blocked in Wait; the
// gate stays closed for every later Wait. If no goroutine is blocked in
// Wait at that moment, the ticket is dropped and the call has no effect.
func (g *Gate) StepOnce() {
	select {
	case g.admit <- struct{}{}:
	default:
	}
}

// Wait blocks while the gate is paused, returning nil once the gate is
// open or a StepOnce ticket was consumed, or ctx.Err() if ctx is
// cancelled first.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	openCh := g.openCh
	open := g.open
	g.mu.Unlock()
	if open {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-openCh:
		return nil
	case <-g.admit:
		return nil
	}
}
