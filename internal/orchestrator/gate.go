package orchestrator

import (
	"context"
	"sync"
)

// sessionGate serializes turns per session. Each session owns a one-slot
// channel; goroutines blocked on a channel send are woken in arrival order.
type sessionGate struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newSessionGate() *sessionGate {
	return &sessionGate{slots: make(map[string]chan struct{})}
}

// acquire blocks until the session is free or ctx is done.
func (g *sessionGate) acquire(ctx context.Context, sessionID string) (release func(), err error) {
	g.mu.Lock()
	slot, ok := g.slots[sessionID]
	if !ok {
		slot = make(chan struct{}, 1)
		g.slots[sessionID] = slot
	}
	g.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
