package model

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for user accounts.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	// GetByLogin resolves a user by username or email. Either argument may be
	// empty; at least one must be set.
	GetByLogin(ctx context.Context, username, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, email string) (User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAvatarURL(ctx context.Context, id uuid.UUID, url string) (User, error)
	UpdateCoverImageURL(ctx context.Context, id uuid.UUID, url string) (User, error)
	// SetRefreshToken unconditionally replaces the refresh token slot.
	// Used on login, where any previous session is superseded.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	// RotateRefreshToken replaces the slot only while it still holds old.
	// Returns ErrTokenMismatch once the slot has moved on, so a concurrent
	// rotation or a replayed token never yields two live refresh tokens.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string) error
	// ClearRefreshToken empties the slot. Clearing an already empty slot
	// is not an error.
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

// User represents a stored account with authentication material.
// PasswordHash and RefreshToken never leave the service layer; callers
// hand out Sanitized() copies.
type User struct {
	ID            uuid.UUID
	Username      string
	Email         string
	FullName      string
	AvatarURL     string
	CoverImageURL string
	PasswordHash  string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sanitized returns a copy with the secret fields stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// FileUpload carries a received file into the service layer. The transport
// owns parsing the multipart form; the service only streams the part onward.
type FileUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}
