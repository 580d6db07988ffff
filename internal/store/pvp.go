package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
)

// PlayerRatingStore persists player ratings.
type PlayerRatingStore interface {
	// Get retrieves a player's rating. Returns ErrRatingNotFound if the player has none.
	Get(ctx context.Context, playerID int64) (*domain.PlayerRating, error)

	// GetForUpdate is Get with a row lock held until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, playerID int64) (*domain.PlayerRating, error)

	// Upsert inserts or replaces a rating record.
	Upsert(ctx context.Context, rating *domain.PlayerRating) error

	// List returns ratings ordered by rating descending, then player id.
	List(ctx context.Context, offset, limit int) ([]*domain.PlayerRating, error)

	// ListAll returns every rating ordered by player id.
	ListAll(ctx context.Context) ([]*domain.PlayerRating, error)

	// Rank returns the 1-based leaderboard position of the player.
	// Returns ErrRatingNotFound if the player has no rating.
	Rank(ctx context.Context, playerID int64) (int, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PlayerRatingStore
}

// BattleResultStore persists per-player match history.
type BattleResultStore interface {
	// Create appends a result row.
	Create(ctx context.Context, result *domain.BattleResult) error

	// ListByPlayer returns the player's latest results, newest first.
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*domain.BattleResult, error)

	// ExistsForBattle reports whether a result was already recorded for the battle and player.
	ExistsForBattle(ctx context.Context, battleID uuid.UUID, playerID int64) (bool, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) BattleResultStore
}

// RankHistoryStore persists tier transitions.
type RankHistoryStore interface {
	// Create appends a rank change.
	Create(ctx context.Context, change *domain.RankChange) error

	// ListByPlayer returns the player's rank changes, newest first.
	ListByPlayer(ctx context.Context, playerID int64, limit int) ([]*domain.RankChange, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) RankHistoryStore
}
