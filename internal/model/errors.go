package model

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a unique key (username or email) collision.
	ErrConflict = errors.New("already exists")
)
