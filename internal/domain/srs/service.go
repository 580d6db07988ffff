package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// Common errors
var (
	ErrNilCard        = errors.New("memory card cannot be nil")
	ErrInvalidQuality = errors.New("quality must be between 0 and 5")
)

// Service defines the interface for SM-2 scheduling operations
type Service interface {
	// NewCard creates a card with default scheduling state, due immediately.
	NewCard(userID, itemID, collection string, now time.Time) (*domain.MemoryCard, error)

	// Review computes the card state after a review graded 0..5.
	// The input card is left unchanged.
	Review(card *domain.MemoryCard, quality int, now time.Time) (*domain.MemoryCard, error)

	// PredictRetention estimates recall as a percentage after elapsedDays since
	// the last review. It never changes the card.
	PredictRetention(card *domain.MemoryCard, elapsedDays float64) float64

	// Params exposes the parameters the service was built with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() (Service, error) {
	return NewServiceFromParams(NewDefaultParams())
}

// NewServiceFromParams creates a new SRS service with custom parameters
func NewServiceFromParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{params: params}, nil
}

// NewCard implements Service.NewCard
func (s *defaultService) NewCard(userID, itemID, collection string, now time.Time) (*domain.MemoryCard, error) {
	card, err := domain.NewMemoryCard(userID, itemID, collection, now)
	if err != nil {
		return nil, err
	}
	card.Easiness = s.params.InitialEasiness
	card.Interval = s.params.FirstInterval
	return card, nil
}

// Review implements Service.Review
func (s *defaultService) Review(card *domain.MemoryCard, quality int, now time.Time) (*domain.MemoryCard, error) {
	if card == nil {
		return nil, ErrNilCard
	}
	if quality < 0 || quality > s.params.MaxQuality {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuality, quality)
	}

	return calculateNextCard(card, quality, now, s.params), nil
}

// PredictRetention implements Service.PredictRetention
func (s *defaultService) PredictRetention(card *domain.MemoryCard, elapsedDays float64) float64 {
	if card == nil {
		return 0
	}
	return predictRetention(card, elapsedDays, s.params)
}

// Params implements Service.Params
func (s *defaultService) Params() Params {
	return *s.params
}
