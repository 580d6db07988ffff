// Package rating implements Elo rating updates, rank tier transitions and the
// season soft reset used by the PvP engine.
package rating

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
)

// ErrInvalidParams is returned when rating parameters are out of range.
var ErrInvalidParams = errors.New("invalid rating parameters")

// Params configures the Elo calculation.
type Params struct {
	KFactor        float64
	DefaultRating  int
	BotIDThreshold int64 // player ids at or above this are bots
	Floor          int   // lowest rating a player can drop to
}

// NewDefaultParams returns K=32 with the standard 1200 starting rating.
func NewDefaultParams() *Params {
	return &Params{
		KFactor:        32,
		DefaultRating:  domain.DefaultRating,
		BotIDThreshold: 9000,
		Floor:          0,
	}
}

// Validate checks the parameters.
func (p *Params) Validate() error {
	if p.KFactor <= 0 {
		return fmt.Errorf("%w: k factor must be positive", ErrInvalidParams)
	}
	if p.DefaultRating < p.Floor {
		return fmt.Errorf("%w: default rating below floor", ErrInvalidParams)
	}
	if p.BotIDThreshold <= 0 {
		return fmt.Errorf("%w: bot id threshold must be positive", ErrInvalidParams)
	}
	return nil
}

// IsBot reports whether the id belongs to a bot.
func (p *Params) IsBot(playerID int64) bool {
	return playerID >= p.BotIDThreshold
}

// Expected returns the expected score of a player rated ra against one rated rb.
func Expected(ra, rb int) float64 {
	return 1 / (1 + math.Pow(10, float64(rb-ra)/400))
}

// Update returns the new ratings of A and B after a decisive game.
// Each side is rounded independently, so the sum of changes may be off by one.
func Update(ra, rb int, aWon bool, params *Params) (int, int) {
	ea := Expected(ra, rb)
	sa := 0.0
	if aWon {
		sa = 1
	}

	newA := int(math.Round(float64(ra) + params.KFactor*(sa-ea)))
	newB := int(math.Round(float64(rb) + params.KFactor*((1-sa)-(1-ea))))

	return floorAt(newA, params.Floor), floorAt(newB, params.Floor)
}

// DetectTierChange reports a promotion or demotion when the tier of newRating
// differs from the tier of oldRating.
func DetectTierChange(playerID int64, oldRating, newRating int, at time.Time) (*domain.RankChange, bool) {
	oldTier := domain.TierFor(oldRating)
	newTier := domain.TierFor(newRating)

	cmp := newTier.Compare(oldTier)
	if cmp == 0 {
		return nil, false
	}

	change := &domain.RankChange{
		PlayerID:  playerID,
		OldRating: oldRating,
		NewRating: newRating,
		OldTier:   oldTier,
		NewTier:   newTier,
		Type:      domain.RankChangePromote,
		At:        at,
	}
	if cmp < 0 {
		change.Type = domain.RankChangeDemote
	}
	return change, true
}

// SoftReset pulls a rating toward baseline, keeping pct of the distance.
// The kept distance is truncated toward zero.
func SoftReset(r, baseline int, pct float64) int {
	return baseline + int(float64(r-baseline)*pct)
}

func floorAt(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
