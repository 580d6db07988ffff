// Package adaptive implements the adaptive difficulty selector: target
// difficulty, candidate scoring and the learner-profile update applied after
// each answer. All functions are pure.
package adaptive

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned when selector parameters are out of range.
var ErrInvalidParams = errors.New("invalid adaptive parameters")

// Params holds the tuning constants of the selector.
type Params struct {
	UpdateRate          float64 // ability step per unit of surprise
	DomainUpdateRate    float64 // domain ability step per unit of surprise
	MomentumDecay       float64
	MomentumStep        float64
	MomentumThreshold   float64 // balanced strategy shifts difficulty beyond ±threshold
	WindowSize          int     // recent outcome capacity
	StabilityWindow     int     // outcomes used for the variance estimate
	StabilityMinSamples int
	WeakThreshold       float64
	StrongThreshold     float64
	DifficultySpread    int
}

// NewDefaultParams returns the standard selector configuration.
func NewDefaultParams() *Params {
	return &Params{
		UpdateRate:          0.1,
		DomainUpdateRate:    0.15,
		MomentumDecay:       0.9,
		MomentumStep:        0.3,
		MomentumThreshold:   0.3,
		WindowSize:          20,
		StabilityWindow:     10,
		StabilityMinSamples: 5,
		WeakThreshold:       0.5,
		StrongThreshold:     0.8,
		DifficultySpread:    1,
	}
}

// Validate checks the parameters.
func (p *Params) Validate() error {
	switch {
	case p.UpdateRate <= 0 || p.UpdateRate > 1:
		return fmt.Errorf("%w: update rate %.3f", ErrInvalidParams, p.UpdateRate)
	case p.DomainUpdateRate <= 0 || p.DomainUpdateRate > 1:
		return fmt.Errorf("%w: domain update rate %.3f", ErrInvalidParams, p.DomainUpdateRate)
	case p.MomentumDecay < 0 || p.MomentumDecay > 1:
		return fmt.Errorf("%w: momentum decay %.3f", ErrInvalidParams, p.MomentumDecay)
	case p.WindowSize < 1 || p.StabilityWindow < 1 || p.StabilityWindow > p.WindowSize:
		return fmt.Errorf("%w: window sizes", ErrInvalidParams)
	case p.WeakThreshold >= p.StrongThreshold:
		return fmt.Errorf("%w: weak threshold must be below strong threshold", ErrInvalidParams)
	case p.DifficultySpread < 0:
		return fmt.Errorf("%w: negative difficulty spread", ErrInvalidParams)
	}
	return nil
}
