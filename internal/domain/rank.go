package domain

import (
	"fmt"
	"time"
)

// RankTier is a named band of Elo rating values.
type RankTier string

// Rank tiers in ascending order.
const (
	TierBronze      RankTier = "bronze"
	TierSilver      RankTier = "silver"
	TierGold        RankTier = "gold"
	TierPlatinum    RankTier = "platinum"
	TierDiamond     RankTier = "diamond"
	TierMaster      RankTier = "master"
	TierGrandmaster RankTier = "grandmaster"
)

// TierThreshold pairs a tier with the minimum rating that reaches it.
type TierThreshold struct {
	Tier      RankTier `json:"tier"`
	MinRating int      `json:"min_rating"`
}

// tierTable is ordered by ascending MinRating.
var tierTable = []TierThreshold{
	{TierBronze, 0},
	{TierSilver, 1200},
	{TierGold, 1400},
	{TierPlatinum, 1600},
	{TierDiamond, 1800},
	{TierMaster, 2000},
	{TierGrandmaster, 2200},
}

// Tiers returns a copy of the tier table in ascending order.
func Tiers() []TierThreshold {
	return append([]TierThreshold(nil), tierTable...)
}

// TierFor returns the highest tier whose threshold does not exceed rating.
// Ratings below the lowest threshold map to bronze.
func TierFor(rating int) RankTier {
	tier := tierTable[0].Tier
	for _, t := range tierTable {
		if rating >= t.MinRating {
			tier = t.Tier
		}
	}
	return tier
}

// Valid reports whether t is a known tier.
func (t RankTier) Valid() bool {
	return t.index() >= 0
}

// MinRating returns the tier threshold, or -1 for an unknown tier.
func (t RankTier) MinRating() int {
	if i := t.index(); i >= 0 {
		return tierTable[i].MinRating
	}
	return -1
}

// Compare returns -1, 0 or 1 when t ranks below, equal to or above other.
func (t RankTier) Compare(other RankTier) int {
	a, b := t.index(), other.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t RankTier) index() int {
	for i, entry := range tierTable {
		if entry.Tier == t {
			return i
		}
	}
	return -1
}

// ParseRankTier converts a string into a RankTier.
func ParseRankTier(s string) (RankTier, error) {
	t := RankTier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// RankChangeType is the direction of a tier transition.
type RankChangeType string

const (
	RankChangePromote RankChangeType = "promote"
	RankChangeDemote  RankChangeType = "demote"
)

// Valid reports whether c is a known change type.
func (c RankChangeType) Valid() bool {
	return c == RankChangePromote || c == RankChangeDemote
}

// ParseRankChangeType converts a string into a RankChangeType.
func ParseRankChangeType(s string) (RankChangeType, error) {
	c := RankChangeType(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRankChange, s)
	}
	return c, nil
}

// RankChange records a player crossing a tier boundary.
type RankChange struct {
	PlayerID  int64          `json:"player_id"`
	OldRating int            `json:"old_rating"`
	NewRating int            `json:"new_rating"`
	OldTier   RankTier       `json:"old_tier"`
	NewTier   RankTier       `json:"new_tier"`
	Type      RankChangeType `json:"type"`
	At        time.Time      `json:"at"`
}
