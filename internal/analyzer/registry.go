package analyzer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Registry holds one Controller per session.
type Registry struct {
	factory func(sessionID string) *Controller

	mu          sync.Mutex
	controllers map[string]*Controller
	inflight    sync.WaitGroup
}

// NewRegistry creates a registry that builds controllers with factory on
// first use of a session.
func NewRegistry(factory func(sessionID string) *Controller) *Registry {
	return &Registry{
		factory:     factory,
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the session's controller, creating it if needed.
func (r *Registry) Controller(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[sessionID]; ok {
		return c
	}
	c := r.factory(sessionID)
	c.inflight = &r.inflight
	r.controllers[sessionID] = c
	return c
}

// Lookup returns the session's controller without creating one.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[sessionID]
	return c, ok
}

// Prune drops controllers idle for longer than maxIdle. Controllers with a
// submission in flight are kept. Returns the number removed.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.controllers {
		if c.Pending() || c.IdleSince().After(cutoff) {
			continue
		}
		delete(r.controllers, id)
		removed++
	}
	if removed > 0 {
		slog.Debug("pruned idle analysis sessions", "removed", removed, "remaining", len(r.controllers))
	}
	return removed
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Drain blocks until every outbound call started by the registry's
// controllers has settled and its events were delivered, or ctx is done.
// Callers must stop submitting before calling Drain.
func (r *Registry) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
