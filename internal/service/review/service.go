// Package review runs the spaced-repetition workflow: creating memory cards,
// grading reviews with SM-2 and reporting on what is due.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// Service coordinates memory cards, the SM-2 scheduler and the review log.
type Service interface {
	// GetOrCreateCard returns the user's card for the item, creating it with
	// default scheduling state when it does not exist yet.
	GetOrCreateCard(ctx context.Context, userID, itemID, collection string) (*domain.MemoryCard, error)

	// Review grades the card with quality 0..5. The card row is locked for the
	// duration of the update and a review log entry is appended. A card created
	// by its first review joins the certification of the matching bank question.
	//
	// Returns srs.ErrInvalidQuality for a quality outside 0..5.
	Review(ctx context.Context, userID, itemID string, quality int) (*ReviewResult, error)

	// DueCards returns cards with next_review <= now, earliest first.
	// A non-positive limit falls back to the configured default.
	DueCards(ctx context.Context, userID, collection string, limit int) ([]*domain.MemoryCard, error)

	// Schedule counts cards coming due per day over the next days.
	// An empty collection covers the whole deck.
	Schedule(ctx context.Context, userID, collection string, days int) ([]ScheduleDay, error)

	// RetentionStats summarises the user's cards in the collection, or every
	// card when collection is empty.
	RetentionStats(ctx context.Context, userID, collection string) (*RetentionStats, error)

	// AddToDeck creates cards for up to limit questions of the certification
	// the user does not hold yet and returns how many were added.
	AddToDeck(ctx context.Context, userID, certification string, limit int) (int, error)

	// PredictRetention estimates recall daysAhead days from now.
	// Returns ErrCardNotFound when the user holds no card for the item.
	PredictRetention(ctx context.Context, userID, itemID string, daysAhead float64) (*RetentionPrediction, error)

	// DeleteCard removes the card. Returns ErrCardNotFound when it does not exist.
	DeleteCard(ctx context.Context, userID, itemID string) error
}

// ReviewResult holds the card state on both sides of a review.
type ReviewResult struct {
	Card   *domain.MemoryCard `json:"card"`
	Before *domain.MemoryCard `json:"before"`
}

// ScheduleDay is the number of cards coming due on one UTC date.
type ScheduleDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// RetentionStats aggregates a user's deck.
type RetentionStats struct {
	TotalCards      int     `json:"total_cards"`
	TotalReviews    int     `json:"total_reviews"`
	RetentionRate   float64 `json:"retention_rate"`
	AverageEasiness float64 `json:"avg_easiness"`
	AverageInterval float64 `json:"avg_interval_days"`
	MasteredCards   int     `json:"mastered_cards"`
	MasteryRate     float64 `json:"mastery_rate"`
}

// RetentionPrediction is the forgetting-curve estimate for one card.
type RetentionPrediction struct {
	ItemID       string    `json:"item_id"`
	DaysElapsed  float64   `json:"days_elapsed"`
	Retention    float64   `json:"retention"`
	NextReview   time.Time `json:"next_review"`
	IntervalDays int       `json:"interval_days"`
}

// Constants bounding request parameters.
const (
	// DefaultScheduleDays is used when Schedule is called with days <= 0.
	DefaultScheduleDays = 7
	// MaxScheduleDays is the longest schedule window.
	MaxScheduleDays = 90
	// MasteredRepetitions is the streak of passing reviews that marks a card mastered.
	MasteredRepetitions = 5
	// MaxDeckBatch caps a single AddToDeck call.
	MaxDeckBatch = 100
)

var (
	// ErrCardNotFound indicates that the user holds no card for the item.
	ErrCardNotFound = errors.New("memory card not found")

	// ErrInvalidDays indicates a schedule or prediction window out of range.
	ErrInvalidDays = errors.New("invalid number of days")

	// ErrInvalidLimit indicates a negative or oversized limit.
	ErrInvalidLimit = errors.New("invalid limit")
)

// ServiceError wraps errors from the review service with the failing operation.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("review %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
