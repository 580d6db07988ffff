package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRating is the Elo rating assigned to a player's first match.
const DefaultRating = 1200

// PlayerRating is a player's persisted PvP standing.
type PlayerRating struct {
	PlayerID  int64     `json:"player_id"`
	Rating    int       `json:"rating"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	Streak    int       `json:"streak"`
	MaxStreak int       `json:"max_streak"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlayerRating returns an unplayed rating record at the given rating.
func NewPlayerRating(playerID int64, rating int) *PlayerRating {
	return &PlayerRating{PlayerID: playerID, Rating: rating}
}

// Tier is derived from the current rating on every call.
func (p *PlayerRating) Tier() RankTier {
	return TierFor(p.Rating)
}

// Games returns the number of finished matches.
func (p *PlayerRating) Games() int {
	return p.Wins + p.Losses
}

// RecordResult updates win/loss counters and the signed streak.
// A positive streak counts consecutive wins, a negative one consecutive losses.
func (p *PlayerRating) RecordResult(won bool) {
	if won {
		p.Wins++
		if p.Streak > 0 {
			p.Streak++
		} else {
			p.Streak = 1
		}
	} else {
		p.Losses++
		if p.Streak < 0 {
			p.Streak--
		} else {
			p.Streak = -1
		}
	}
	if p.Streak > p.MaxStreak {
		p.MaxStreak = p.Streak
	}
}

// QueueEntry is a player waiting in the matchmaking queue.
type QueueEntry struct {
	PlayerID     int64     `json:"player_id"`
	Rating       int       `json:"rating"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	SearchRadius int       `json:"search_radius"`
}

// Wait returns how long the entry has been queued at now.
func (e *QueueEntry) Wait(now time.Time) time.Duration {
	if now.Before(e.EnqueuedAt) {
		return 0
	}
	return now.Sub(e.EnqueuedAt)
}

// Bot is a computer opponent used when no human is available.
type Bot struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Active bool   `json:"active"`
}

// Match pairs a player with an opponent. Its ID doubles as the battle id.
type Match struct {
	ID             uuid.UUID `json:"id"`
	PlayerID       int64     `json:"player_id"`
	OpponentID     int64     `json:"opponent_id"`
	PlayerRating   int       `json:"player_rating"`
	OpponentRating int       `json:"opponent_rating"`
	RatingDiff     int       `json:"rating_diff"`
	WaitSeconds    float64   `json:"wait_seconds"`
	Quality        float64   `json:"quality"`
	IsBot          bool      `json:"is_bot"`
	CreatedAt      time.Time `json:"created_at"`
}

// Participants returns the ids of both sides of the match.
func (m *Match) Participants() []int64 {
	return []int64{m.PlayerID, m.OpponentID}
}

// BattleSession is the live state of a match between pairing and result submission.
type BattleSession struct {
	ID             uuid.UUID `json:"id"`
	PlayerID       int64     `json:"player_id"`
	OpponentID     int64     `json:"opponent_id"`
	PlayerRating   int       `json:"player_rating"`
	OpponentRating int       `json:"opponent_rating"`
	IsBot          bool      `json:"is_bot"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewBattleSession derives a session from a freshly made match.
func NewBattleSession(m *Match) *BattleSession {
	return &BattleSession{
		ID:             m.ID,
		PlayerID:       m.PlayerID,
		OpponentID:     m.OpponentID,
		PlayerRating:   m.PlayerRating,
		OpponentRating: m.OpponentRating,
		IsBot:          m.IsBot,
		CreatedAt:      m.CreatedAt,
	}
}

// Involves reports whether the player takes part in the battle.
func (b *BattleSession) Involves(playerID int64) bool {
	return b.PlayerID == playerID || b.OpponentID == playerID
}

// OpponentOf returns the other participant.
func (b *BattleSession) OpponentOf(playerID int64) int64 {
	if b.PlayerID == playerID {
		return b.OpponentID
	}
	return b.PlayerID
}

// BattleResult is one row of a player's match history.
type BattleResult struct {
	ID                   uuid.UUID `json:"id"`
	BattleID             uuid.UUID `json:"battle_id"`
	PlayerID             int64     `json:"player_id"`
	OpponentID           int64     `json:"opponent_id"`
	Won                  bool      `json:"won"`
	RatingBefore         int       `json:"rating_before"`
	RatingAfter          int       `json:"rating_after"`
	OpponentRatingBefore int       `json:"opponent_rating_before"`
	OpponentRatingAfter  int       `json:"opponent_rating_after"`
	IsBot                bool      `json:"is_bot"`
	PlayedAt             time.Time `json:"played_at"`
}
