package model

import "errors"

var (
	// ErrTokenInvalid covers malformed, mis-signed and expired tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMismatch means the presented refresh token is not the one
	// stored on the account: it has been rotated out or was never current.
	ErrTokenMismatch = errors.New("refresh token mismatch")
)
