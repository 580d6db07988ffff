package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default scheduling state for a card that has never been reviewed.
const (
	DefaultEasiness = 2.5
	MinEasiness     = 1.3
	DefaultInterval = 1
)

// MemoryCard is the spaced-repetition state a user holds for a single item.
// A card is identified by the (UserID, ItemID) pair.
type MemoryCard struct {
	UserID       string     `json:"user_id"`
	ItemID       string     `json:"item_id"`
	Collection   string     `json:"collection"`
	Easiness     float64    `json:"easiness"`
	Interval     int        `json:"interval"`
	Repetitions  int        `json:"repetitions"`
	NextReview   time.Time  `json:"next_review"`
	LastReview   *time.Time `json:"last_review,omitempty"`
	TotalReviews int        `json:"total_reviews"`
	CorrectCount int        `json:"correct_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewMemoryCard creates a card with default scheduling state that is due immediately.
func NewMemoryCard(userID, itemID, collection string, now time.Time) (*MemoryCard, error) {
	card := &MemoryCard{
		UserID:     userID,
		ItemID:     itemID,
		Collection: collection,
		Easiness:   DefaultEasiness,
		Interval:   DefaultInterval,
		NextReview: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// Key returns the "user:item" identifier of the card.
func (c *MemoryCard) Key() string {
	return c.UserID + ":" + c.ItemID
}

// Validate checks the card invariants.
func (c *MemoryCard) Validate() error {
	if c.UserID == "" || c.ItemID == "" {
		return fmt.Errorf("%w: card requires user and item", ErrInvalidID)
	}
	if c.Easiness < MinEasiness {
		return fmt.Errorf("%w: %.2f", ErrInvalidEasiness, c.Easiness)
	}
	if c.Interval < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, c.Interval)
	}
	if c.Repetitions < 0 || c.TotalReviews < 0 || c.CorrectCount < 0 {
		return fmt.Errorf("%w: negative counter", ErrValidation)
	}
	if c.CorrectCount > c.TotalReviews {
		return fmt.Errorf("%w: correct count exceeds total reviews", ErrValidation)
	}
	return nil
}

// IsDue reports whether the card is due for review at the given time.
func (c *MemoryCard) IsDue(now time.Time) bool {
	return !c.NextReview.After(now)
}

// Clone returns a deep copy of the card.
func (c *MemoryCard) Clone() *MemoryCard {
	cp := *c
	if c.LastReview != nil {
		t := *c.LastReview
		cp.LastReview = &t
	}
	return &cp
}

// ReviewLog records a single review and the scheduling state it produced.
type ReviewLog struct {
	ID             uuid.UUID `json:"id"`
	UserID         string    `json:"user_id"`
	ItemID         string    `json:"item_id"`
	Quality        int       `json:"quality"`
	IntervalBefore int       `json:"interval_before"`
	IntervalAfter  int       `json:"interval_after"`
	EasinessBefore float64   `json:"easiness_before"`
	EasinessAfter  float64   `json:"easiness_after"`
	ReviewedAt     time.Time `json:"reviewed_at"`
}

// NewReviewLog builds a log entry from the card state before and after a review.
func NewReviewLog(before, after *MemoryCard, quality int, at time.Time) *ReviewLog {
	return &ReviewLog{
		ID:             uuid.New(),
		UserID:         after.UserID,
		ItemID:         after.ItemID,
		Quality:        quality,
		IntervalBefore: before.Interval,
		IntervalAfter:  after.Interval,
		EasinessBefore: before.Easiness,
		EasinessAfter:  after.Easiness,
		ReviewedAt:     at,
	}
}
