package auth

import "errors"

// Token validation errors. The auth middleware maps ErrExpiredToken to
// "Token expired" and the rest to "Invalid token".
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	ErrMissingToken     = errors.New("authentication token is missing")

	// ErrMissingIdentity means a token would carry neither a user id nor a player id.
	ErrMissingIdentity = errors.New("token identity is empty")
)
