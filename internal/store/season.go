package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// SeasonStore persists ranked seasons.
type SeasonStore interface {
	// GetActive returns the active season. Returns ErrSeasonNotFound when none is active.
	GetActive(ctx context.Context) (*domain.Season, error)

	// Get returns a season by id. Returns ErrSeasonNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Season, error)

	// GetForUpdate is Get with a row lock held until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Season, error)

	// Create inserts a new season. Returns ErrSeasonExists if the id is taken.
	Create(ctx context.Context, season *domain.Season) error

	// MarkEnded sets the season status to ended.
	MarkEnded(ctx context.Context, id string, at time.Time) error

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SeasonStore
}

// SeasonRecordStore persists end-of-season snapshots.
type SeasonRecordStore interface {
	// CreateBatch inserts records for a season.
	CreateBatch(ctx context.Context, records []*domain.SeasonRecord) error

	// Get returns the player's record. Returns ErrSeasonRecordNotFound if absent.
	Get(ctx context.Context, seasonID string, playerID int64) (*domain.SeasonRecord, error)

	// MarkClaimed flips rewards_claimed from false to true and reports whether
	// this call made the transition.
	MarkClaimed(ctx context.Context, seasonID string, playerID int64) (bool, error)

	// ListBySeason returns the season's records ordered by final rating descending.
	ListBySeason(ctx context.Context, seasonID string) ([]*domain.SeasonRecord, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SeasonRecordStore
}

// RewardStore provides per-season reward definitions.
type RewardStore interface {
	// ListBySeason returns the rewards defined for a season.
	ListBySeason(ctx context.Context, seasonID string) ([]*domain.Reward, error)

	// Upsert defines or replaces the reward for (season, tier).
	Upsert(ctx context.Context, reward *domain.Reward) error
}
