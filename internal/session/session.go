// Package session carries the shopper's identity and bearer credential.
// Every controller operation receives a Session explicitly; nothing reads
// ambient state. The REST service lifts it from the Shopper-Session header,
// MCP tools from meta.session.
package session

import (
	"context"
	"strings"
	"sync"

	"shopsync/internal/model"
)

// Session identifies the authenticated shopper.
// Token is opaque; how it was issued is not this package's concern.
type Session struct {
	UserID model.ID
	Token  string
}

// Validate reports a precondition failure when the session cannot
// authenticate a request. Callers must not contact the backend on error.
func (s Session) Validate() error {
	if strings.TrimSpace(string(s.UserID)) == "" {
		return model.NewPreconditionError("not logged in: user id missing")
	}
	if strings.TrimSpace(s.Token) == "" {
		return model.NewPreconditionError("not logged in: credential missing")
	}
	return nil
}

// contextKey is the type for context values to avoid collisions
type contextKey string

// ContextKey is the context key for storing the request Session
const ContextKey contextKey = "shopsync.session"

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ContextKey, s)
}

// FromContext retrieves the Session stored by Middleware.
// The second result is false when no session was attached.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ContextKey).(Session)
	return s, ok
}

type holderKey struct{}

// Holder lets an outer middleware observe the session resolved further in,
// after the inner handler has returned.
type Holder struct {
	mu sync.Mutex
	s  Session
	ok bool
}

// Set records the resolved session.
func (h *Holder) Set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.s, h.ok = s, true
}

// Get returns the recorded session, if any.
func (h *Holder) Get() (Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.s, h.ok
}

// WithHolder returns a copy of ctx carrying h.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func holderFrom(ctx context.Context) *Holder {
	h, _ := ctx.Value(holderKey{}).(*Holder)
	return h
}
