package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// DayCount is the number of cards coming due on one calendar day (UTC).
type DayCount struct {
	Day   time.Time
	Count int
}

// MemoryCardStore defines the interface for spaced-repetition card persistence.
type MemoryCardStore interface {
	// Get retrieves a card by user and item.
	// Returns ErrCardNotFound if the card does not exist.
	Get(ctx context.Context, userID, itemID string) (*domain.MemoryCard, error)

	// GetForUpdate retrieves a card and locks its row until the enclosing
	// transaction ends. It must be called on a store bound with WithTx.
	// Returns ErrCardNotFound if the card does not exist.
	GetForUpdate(ctx context.Context, userID, itemID string) (*domain.MemoryCard, error)

	// Upsert inserts the card or replaces the stored state for the same (user, item).
	// Returns validation errors if the card violates domain invariants.
	Upsert(ctx context.Context, card *domain.MemoryCard) error

	// Delete removes a card. Returns ErrCardNotFound if it does not exist.
	Delete(ctx context.Context, userID, itemID string) error

	// ListDue returns the user's cards with NextReview <= now ordered by NextReview.
	// An empty collection matches every collection.
	ListDue(ctx context.Context, userID, collection string, now time.Time, limit int) ([]*domain.MemoryCard, error)

	// ListByUser returns every card the user holds in the collection.
	// An empty collection matches every collection.
	ListByUser(ctx context.Context, userID, collection string) ([]*domain.MemoryCard, error)

	// CountDueByDay counts cards coming due in [from, to) grouped by UTC day, in day order.
	// An empty collection matches every collection.
	CountDueByDay(ctx context.Context, userID, collection string, from, to time.Time) ([]DayCount, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MemoryCardStore
}

// ReviewLogStore persists the history of reviews.
type ReviewLogStore interface {
	// Create appends a review log entry.
	Create(ctx context.Context, log *domain.ReviewLog) error

	// ListByUser returns the user's most recent reviews, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.ReviewLog, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
