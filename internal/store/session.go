package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
)

// SessionStore holds short-lived PvP state that expires on its own.
type SessionStore interface {
	// SaveBattle stores a battle session until it expires.
	SaveBattle(ctx context.Context, session *domain.BattleSession) error

	// GetBattle returns a battle session. Returns ErrSessionNotFound once it expired.
	GetBattle(ctx context.Context, id uuid.UUID) (*domain.BattleSession, error)

	// DeleteBattle removes a battle session. Deleting a missing session is not an error.
	DeleteBattle(ctx context.Context, id uuid.UUID) error

	// PutPendingMatch records a match found for a player who was not polling.
	PutPendingMatch(ctx context.Context, playerID int64, match *domain.Match) error

	// TakePendingMatch returns and removes the player's pending match.
	// Returns ErrSessionNotFound when there is none.
	TakePendingMatch(ctx context.Context, playerID int64) (*domain.Match, error)
}
