// Package matchmaking holds the pure parts of the PvP matcher: search radius
// growth, opponent choice, bot fallback and match quality.
package matchmaking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// ErrInvalidParams is returned when matchmaking parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid matchmaking parameters")

// Params configures radius widening and the bot fallback.
type Params struct {
	InitialRadius int
	RadiusStep    int
	StepInterval  time.Duration
	MaxRadius     int
	MaxWait       time.Duration
}

// NewDefaultParams returns a radius of 200 that widens by 50 every 10s up to 500,
// with a bot fallback after 30s.
func NewDefaultParams() *Params {
	return &Params{
		InitialRadius: 200,
		RadiusStep:    50,
		StepInterval:  10 * time.Second,
		MaxRadius:     500,
		MaxWait:       30 * time.Second,
	}
}

// Validate checks the parameters.
func (p *Params) Validate() error {
	switch {
	case p.InitialRadius < 0 || p.RadiusStep < 0:
		return fmt.Errorf("%w: negative radius", ErrInvalidParams)
	case p.MaxRadius < p.InitialRadius:
		return fmt.Errorf("%w: max radius below initial radius", ErrInvalidParams)
	case p.StepInterval <= 0:
		return fmt.Errorf("%w: step interval must be positive", ErrInvalidParams)
	case p.MaxWait < 0:
		return fmt.Errorf("%w: negative max wait", ErrInvalidParams)
	}
	return nil
}

// SearchRadius returns the rating window a player who has waited for wait will accept.
func SearchRadius(wait time.Duration, params *Params) int {
	if wait < 0 {
		wait = 0
	}
	steps := int(wait / params.StepInterval)
	radius := params.InitialRadius + steps*params.RadiusStep
	if radius > params.MaxRadius {
		return params.MaxRadius
	}
	return radius
}

// FindOpponent picks the waiting entry closest in rating to self within radius.
// Ties go to whoever has waited longest. Self is never returned.
func FindOpponent(self *domain.QueueEntry, entries []*domain.QueueEntry, radius int) *domain.QueueEntry {
	var best *domain.QueueEntry
	bestDiff := 0

	for _, e := range entries {
		if e == nil || e.PlayerID == self.PlayerID {
			continue
		}
		diff := absInt(e.Rating - self.Rating)
		if diff > radius {
			continue
		}
		if best == nil || diff < bestDiff || (diff == bestDiff && e.EnqueuedAt.Before(best.EnqueuedAt)) {
			best = e
			bestDiff = diff
		}
	}
	return best
}

// ClosestBot returns the active bot nearest in rating, or nil when none is active.
func ClosestBot(rating int, bots []*domain.Bot) *domain.Bot {
	var best *domain.Bot
	for _, b := range bots {
		if b == nil || !b.Active {
			continue
		}
		if best == nil || absInt(b.Rating-rating) < absInt(best.Rating-rating) {
			best = b
		}
	}
	return best
}

// ShouldFallBackToBot reports whether the wait has reached the bot fallback point.
func ShouldFallBackToBot(wait time.Duration, params *Params) bool {
	return wait >= params.MaxWait
}

// Quality scores a pairing from 0 to 100. It is informational only.
func Quality(ratingDiff int, wait time.Duration, isBot bool) float64 {
	q := 100.0
	q -= math.Min(float64(absInt(ratingDiff))/10, 50)
	q -= math.Min(wait.Seconds()/2, 25)
	if isBot {
		q -= 15
	}
	if q < 0 {
		q = 0
	}
	return math.Round(q*10) / 10
}

// EstimatedWait is a rough wait estimate shown to players joining a queue of the given size.
func EstimatedWait(queueSize int) time.Duration {
	if queueSize <= 0 {
		return 0
	}
	seconds := 30 - queueSize*5
	if seconds < 5 {
		seconds = 5
	}
	return time.Duration(seconds) * time.Second
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
