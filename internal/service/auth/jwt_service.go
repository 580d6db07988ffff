package auth

import (
	"context"
	"time"
)

// RoleAdmin is the role claim that grants access to season administration.
const RoleAdmin = "admin"

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the identity.
	// Returns ErrMissingIdentity when the identity names neither a user nor a player.
	GenerateToken(ctx context.Context, identity Identity) (string, error)

	// ValidateToken validates the provided access token string and extracts the claims.
	// Returns the claims if the token is valid, or an error if validation fails
	// (expired, invalid signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Identity is who a token is issued for. Learners are identified by UserID,
// PvP players by PlayerID; one token may carry both.
type Identity struct {
	UserID   string
	PlayerID int64
	Role     string
}

// Claims represents the validated contents of an access token.
type Claims struct {
	// UserID is the learner the token was issued for (the "uid" claim).
	UserID string `json:"uid,omitempty"`

	// PlayerID is the PvP player id (the "pid" claim). Zero when absent.
	PlayerID int64 `json:"pid,omitempty"`

	// Role is an optional role such as RoleAdmin.
	Role string `json:"role,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
