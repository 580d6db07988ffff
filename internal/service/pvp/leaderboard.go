package pvp

import (
	"context"
	"errors"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/store"
)

// Bounds for leaderboard queries.
const (
	DefaultNearby = 5
	MaxNearby     = 25
)

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank     int             `json:"rank"`
	PlayerID int64           `json:"player_id"`
	Rating   int             `json:"rating"`
	Tier     domain.RankTier `json:"tier"`
	Wins     int             `json:"wins"`
	Losses   int             `json:"losses"`
}

// PlayerRankView is a player's position with the players ranked around it.
type PlayerRankView struct {
	Player LeaderboardEntry   `json:"player"`
	Nearby []LeaderboardEntry `json:"nearby"`
}

// TierCount is the number of rated players in a tier.
type TierCount struct {
	Tier      domain.RankTier `json:"tier"`
	MinRating int             `json:"min_rating"`
	Players   int             `json:"players"`
}

// Leaderboard returns the top players by rating.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	limit, err := pageLimit(limit, s.cfg.LeaderboardLimit, s.cfg.LeaderboardLimit)
	if err != nil {
		return nil, err
	}
	ratings, err := s.stores.Ratings.List(ctx, 0, limit)
	if err != nil {
		return nil, wrap("leaderboard", "failed to list ratings", err)
	}
	return entries(ratings, 1), nil
}

// PlayerRank returns the player's rank and up to nearby players on each side.
func (s *Service) PlayerRank(ctx context.Context, playerID int64, nearby int) (*PlayerRankView, error) {
	nearby, err := pageLimit(nearby, DefaultNearby, MaxNearby)
	if err != nil {
		return nil, err
	}

	rank, err := s.stores.Ratings.Rank(ctx, playerID)
	if err != nil {
		if errors.Is(err, store.ErrRatingNotFound) {
			return nil, ErrPlayerNotRanked
		}
		return nil, wrap("player_rank", "failed to rank player", err)
	}

	offset := rank - 1 - nearby
	if offset < 0 {
		offset = 0
	}
	ratings, err := s.stores.Ratings.List(ctx, offset, rank-offset+nearby)
	if err != nil {
		return nil, wrap("player_rank", "failed to list neighbours", err)
	}

	view := &PlayerRankView{Nearby: entries(ratings, offset+1)}
	for _, e := range view.Nearby {
		if e.PlayerID == playerID {
			view.Player = e
		}
	}
	// The rank query and the page may disagree under concurrent updates;
	// the rank query wins.
	view.Player.Rank = rank
	view.Player.PlayerID = playerID
	return view, nil
}

// TierDistribution counts rated players per tier, lowest tier first.
func (s *Service) TierDistribution(ctx context.Context) ([]TierCount, error) {
	ratings, err := s.stores.Ratings.ListAll(ctx)
	if err != nil {
		return nil, wrap("tier_distribution", "failed to list ratings", err)
	}

	counts := make(map[domain.RankTier]int)
	for _, r := range ratings {
		counts[r.Tier()]++
	}

	tiers := domain.Tiers()
	dist := make([]TierCount, 0, len(tiers))
	for _, t := range tiers {
		dist = append(dist, TierCount{Tier: t.Tier, MinRating: t.MinRating, Players: counts[t.Tier]})
	}
	return dist, nil
}

// Bots lists the active bot opponents.
func (s *Service) Bots(ctx context.Context) ([]*domain.Bot, error) {
	bots, err := s.stores.Bots.ListActive(ctx)
	if err != nil {
		return nil, wrap("bots", "failed to list bots", err)
	}
	return bots, nil
}

// Tiers returns the rank tier table.
func (s *Service) Tiers() []domain.TierThreshold {
	return domain.Tiers()
}

func entries(ratings []*domain.PlayerRating, firstRank int) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(ratings))
	for i, r := range ratings {
		out = append(out, LeaderboardEntry{
			Rank:     firstRank + i,
			PlayerID: r.PlayerID,
			Rating:   r.Rating,
			Tier:     r.Tier(),
			Wins:     r.Wins,
			Losses:   r.Losses,
		})
	}
	return out
}
