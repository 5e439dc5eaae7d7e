package model

import "github.com/google/uuid"

// TokenManager generates and validates access/refresh tokens. Access and
// refresh tokens are signed with distinct secrets, so a token of one class
// never verifies as the other.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (string, error)
	ParseAccessToken(token string) (uuid.UUID, error)
	ParseRefreshToken(token string) (uuid.UUID, error)
}

// TokenPair bundles the access and refresh tokens issued for one session.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
