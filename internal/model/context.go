package model

import "context"

// ContextManager moves the authenticated account between the session gate
// middleware and the handlers. The stored user is always sanitized.
type ContextManager interface {
	SetUserToContext(ctx context.Context, user User) context.Context
	GetUserFromContext(ctx context.Context) (User, bool)
}
