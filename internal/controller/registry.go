package controller

import (
	"context"
	"sync"

	"shopsync/internal/model"
	"shopsync/internal/session"
)

// Registry keeps one Controller per user for a long-running service.
//
// A controller is bound to the token the store accepted when it bootstrapped.
// A session for the same user with any other token never sees the cache: it
// gets a fresh controller bootstrapped through the store, which either
// rejects the token or replaces the old controller. Entries live until
// Forget; the map holds at most one controller per user id ever seen.
type Registry struct {
	opts Options

	mu          sync.Mutex
	controllers map[model.ID]*Controller
}

// NewRegistry creates an empty registry. opts is used for every controller it creates.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:        opts,
		controllers: make(map[model.ID]*Controller),
	}
}

// Get returns the controller for the session's user, bootstrapping it if no
// bootstrap has succeeded yet. A failed first bootstrap is returned with the
// controller so the caller can retry on it.
func (r *Registry) Get(ctx context.Context, s session.Session) (*Controller, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	c, ok := r.controllers[s.UserID]
	if !ok {
		c = New(s.UserID, r.opts)
		r.controllers[s.UserID] = c
	}
	r.mu.Unlock()

	switch {
	case !c.Bootstrapped():
		if err := c.Bootstrap(ctx, s); err != nil {
			return c, err
		}
		return c, nil
	case c.AcceptedToken(s.Token):
		return c, nil
	}

	// A different credential for a known user: let the store decide.
	fresh := New(s.UserID, r.opts)
	if err := fresh.Bootstrap(ctx, s); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.controllers[s.UserID] = fresh
	r.mu.Unlock()
	return fresh, nil
}

// Forget drops the session user's controller if it is bound to the session's
// token, and reports whether it did. The next Get starts fresh.
func (r *Registry) Forget(s session.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[s.UserID]
	if !ok || !c.AcceptedToken(s.Token) {
		return false
	}
	delete(r.controllers, s.UserID)
	return true
}

// Len returns the number of users with a controller.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
