// Package context carries the authenticated account between the session
// gate middleware and the HTTP handlers.
package context

import (
	"context"

	"github.com/clipstream/accounts/internal/model"
)

type ctxKey int

const userKey ctxKey = iota

// Manager implements model.ContextManager on top of request contexts.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserToContext returns a child context holding the account.
func (m *Manager) SetUserToContext(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext retrieves the account stored by the session gate.
func (m *Manager) GetUserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(userKey).(model.User)
	return user, ok
}
