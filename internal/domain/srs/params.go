package srs

import (
	"errors"
	"fmt"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// ErrInvalidParams is returned when SM-2 parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid srs parameters")

// Params defines all configurable parameters for the SM-2 scheduler
type Params struct {
	// Easiness bounds for new and reviewed cards
	InitialEasiness float64
	MinEasiness     float64

	// Grades at or above PassThreshold count as recalled
	PassThreshold int
	MaxQuality    int

	// Intervals in days for the first two successful repetitions
	FirstInterval  int
	SecondInterval int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the defaults.
type ParamsConfig struct {
	InitialEasiness float64
	MinEasiness     float64
	PassThreshold   int
	FirstInterval   int
	SecondInterval  int
}

// NewDefaultParams creates a new Params instance with the classic SM-2 values
func NewDefaultParams() *Params {
	return &Params{
		InitialEasiness: domain.DefaultEasiness,
		MinEasiness:     domain.MinEasiness,
		PassThreshold:   3,
		MaxQuality:      5,
		FirstInterval:   1,
		SecondInterval:  6,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.InitialEasiness > 0 {
		params.InitialEasiness = config.InitialEasiness
	}
	if config.MinEasiness > 0 {
		params.MinEasiness = config.MinEasiness
	}
	if config.PassThreshold > 0 {
		params.PassThreshold = config.PassThreshold
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}

	return params
}

// Validate checks the parameters for internal consistency.
func (p *Params) Validate() error {
	if p.MinEasiness < domain.MinEasiness {
		return fmt.Errorf("%w: min easiness %.2f below %.2f", ErrInvalidParams, p.MinEasiness, domain.MinEasiness)
	}
	if p.InitialEasiness < p.MinEasiness {
		return fmt.Errorf("%w: initial easiness below minimum", ErrInvalidParams)
	}
	if p.PassThreshold < 1 || p.PassThreshold > p.MaxQuality {
		return fmt.Errorf("%w: pass threshold %d", ErrInvalidParams, p.PassThreshold)
	}
	if p.FirstInterval < 1 || p.SecondInterval < p.FirstInterval {
		return fmt.Errorf("%w: intervals must be positive and non-decreasing", ErrInvalidParams)
	}
	return nil
}
