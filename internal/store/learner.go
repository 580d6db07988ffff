package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// CandidateQuery narrows the question bank for adaptive selection.
type CandidateQuery struct {
	Certification string
	MinDifficulty int
	MaxDifficulty int
	ExcludeIDs    []string
	Limit         int
}

// QuestionStore provides read access to the question bank.
type QuestionStore interface {
	// Create adds a question to the bank.
	// Returns ErrDuplicate if a question with the same id exists.
	Create(ctx context.Context, q *domain.Question) error

	// GetByID retrieves a question. Returns ErrQuestionNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*domain.Question, error)

	// FindCandidates returns up to Limit questions in random order that match the query.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*domain.Question, error)

	// ListNotInDeck returns up to limit questions of the certification for which
	// the user holds no memory card, ordered by id.
	ListNotInDeck(ctx context.Context, certification, userID string, limit int) ([]*domain.Question, error)
}

// LearnerProfileStore persists adaptive learner profiles.
type LearnerProfileStore interface {
	// Get retrieves the profile for (user, certification).
	// Returns ErrProfileNotFound if the learner has not answered anything yet.
	Get(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error)

	// GetForUpdate is Get with a row lock held until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error)

	// Upsert inserts or replaces the profile.
	Upsert(ctx context.Context, profile *domain.LearnerProfile) error

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LearnerProfileStore
}

// LearningEventStore persists the answer log of the adaptive selector.
type LearningEventStore interface {
	// Create appends an event.
	Create(ctx context.Context, event *domain.LearningEvent) error

	// ListRecent returns the latest events for (user, certification), newest first.
	ListRecent(ctx context.Context, userID, certification string, limit int) ([]*domain.LearningEvent, error)

	// WithTx returns a new store instance that uses the provided transaction.
	WithTx(tx *sql.Tx) LearningEventStore
}
