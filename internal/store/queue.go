package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// QueueStore persists the matchmaking queue.
//
// Every queue-wide read-modify-write must run in a transaction that first calls
// Lock, so that two matchers never see the same waiting entry.
type QueueStore interface {
	// Lock takes the queue-wide lock for the rest of the enclosing transaction.
	Lock(ctx context.Context) error

	// Get returns the player's entry. Returns ErrQueueEntryNotFound if the player is not queued.
	Get(ctx context.Context, playerID int64) (*domain.QueueEntry, error)

	// Insert adds an entry. Returns ErrQueueEntryExists if the player is already queued.
	Insert(ctx context.Context, entry *domain.QueueEntry) error

	// Delete removes an entry. Returns ErrQueueEntryNotFound if the player is not queued.
	Delete(ctx context.Context, playerID int64) error

	// List returns all waiting entries, oldest first.
	List(ctx context.Context) ([]*domain.QueueEntry, error)

	// UpdateRadius persists a widened search radius.
	UpdateRadius(ctx context.Context, playerID int64, radius int) error

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) QueueStore
}

// BotStore provides the roster of computer opponents.
type BotStore interface {
	// ListActive returns active bots ordered by rating.
	ListActive(ctx context.Context) ([]*domain.Bot, error)

	// Get returns a bot by id. Returns ErrBotNotFound if it does not exist.
	Get(ctx context.Context, id int64) (*domain.Bot, error)
}

// MatchLogStore records every pairing the matchmaker makes.
type MatchLogStore interface {
	// Create appends a match.
	Create(ctx context.Context, match *domain.Match) error

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MatchLogStore
}
