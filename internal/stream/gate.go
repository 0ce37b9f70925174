package stream

import (
	"sync"
	"time"
)

// gate is a binary latch with blocking waiters. Set, Clear and IsSet are
// idempotent and safe for concurrent use; waiters observe the latch through
// a channel that is closed while the gate is open.
type gate struct {
	mu   sync.Mutex
	open bool
	ch   chan struct{}
}

func newGate(open bool) *gate {
	g := &gate{ch: make(chan struct{})}
	if open {
		g.open = true
		close(g.ch)
	}
	return g
}

func (g *gate) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		g.open = true
		close(g.ch)
	}
}

func (g *gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		g.open = false
		g.ch = make(chan struct{})
	}
}

func (g *gate) IsSet() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// opened returns a channel closed while the gate is open. After the gate is
// cleared, previously handed-out channels stay closed; callers re-check with
// a fresh call.
func (g *gate) opened() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}

// Wait blocks until the gate opens or the timeout elapses, reporting whether
// the gate opened in time.
func (g *gate) Wait(timeout time.Duration) bool {
	ch := g.opened()
	select {
	case <-ch:
		return true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	}
}
