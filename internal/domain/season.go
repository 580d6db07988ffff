package domain

import (
	"fmt"
	"time"
)

// SeasonStatus is the lifecycle state of a ranked season.
type SeasonStatus string

const (
	SeasonActive SeasonStatus = "active"
	SeasonEnded  SeasonStatus = "ended"
)

// Valid reports whether s is a known status.
func (s SeasonStatus) Valid() bool {
	return s == SeasonActive || s == SeasonEnded
}

// ParseSeasonStatus converts a string into a SeasonStatus.
func ParseSeasonStatus(s string) (SeasonStatus, error) {
	status := SeasonStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeasonStatus, s)
	}
	return status, nil
}

// Season is a ranked period. At most one season is active at a time.
type Season struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    SeasonStatus `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
}

// SeasonRecord is a player's final standing in an ended season.
type SeasonRecord struct {
	SeasonID       string   `json:"season_id"`
	PlayerID       int64    `json:"player_id"`
	FinalRating    int      `json:"final_rating"`
	FinalTier      RankTier `json:"final_tier"`
	Wins           int      `json:"wins"`
	Losses         int      `json:"losses"`
	RewardsClaimed bool     `json:"rewards_claimed"`
}

// NewSeasonRecord snapshots a player rating at the end of a season.
func NewSeasonRecord(seasonID string, p *PlayerRating) *SeasonRecord {
	return &SeasonRecord{
		SeasonID:    seasonID,
		PlayerID:    p.PlayerID,
		FinalRating: p.Rating,
		FinalTier:   p.Tier(),
		Wins:        p.Wins,
		Losses:      p.Losses,
	}
}

// Reward is what a player receives for finishing a season in a tier.
type Reward struct {
	SeasonID    string   `json:"season_id"`
	Tier        RankTier `json:"tier"`
	Coins       int      `json:"coins"`
	Exp         int      `json:"exp"`
	Title       string   `json:"title,omitempty"`
	SpecialItem string   `json:"special_item,omitempty"`
}

var defaultRewards = map[RankTier]Reward{
	TierBronze:      {Tier: TierBronze, Coins: 100, Exp: 50},
	TierSilver:      {Tier: TierSilver, Coins: 200, Exp: 100},
	TierGold:        {Tier: TierGold, Coins: 400, Exp: 200, Title: "Gold Scholar"},
	TierPlatinum:    {Tier: TierPlatinum, Coins: 700, Exp: 350, Title: "Platinum Scholar"},
	TierDiamond:     {Tier: TierDiamond, Coins: 1000, Exp: 500, Title: "Diamond Scholar", SpecialItem: "diamond_frame"},
	TierMaster:      {Tier: TierMaster, Coins: 1500, Exp: 800, Title: "Master", SpecialItem: "master_frame"},
	TierGrandmaster: {Tier: TierGrandmaster, Coins: 2500, Exp: 1200, Title: "Grandmaster", SpecialItem: "grandmaster_crown"},
}

// DefaultReward returns the reward used when a season defines none for the tier.
func DefaultReward(seasonID string, tier RankTier) Reward {
	r := defaultRewards[tier]
	r.SeasonID = seasonID
	r.Tier = tier
	return r
}
