package model

import "github.com/google/uuid"

// AccessClaims is the identity carried by a verified access token.
type AccessClaims struct {
	UserID       uuid.UUID
	TokenVersion int
}

// TokenManager generates and validates access tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID, tokenVersion int) (string, error)
	ParseAccessToken(token string) (AccessClaims, error)
}
