package pvp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/rating"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// maxSeasonIDLength matches the seasons.id column.
const maxSeasonIDLength = 64

// SeasonSummary describes a season after it ended.
type SeasonSummary struct {
	Season  *domain.Season `json:"season"`
	Records int            `json:"records"`
}

// CurrentSeason returns the active season.
func (s *Service) CurrentSeason(ctx context.Context) (*domain.Season, error) {
	season, err := s.stores.Seasons.GetActive(ctx)
	if err != nil {
		if errors.Is(err, store.ErrSeasonNotFound) {
			return nil, ErrNoActiveSeason
		}
		return nil, wrap("current_season", "failed to load active season", err)
	}
	return season, nil
}

// Season returns the season with the given id.
func (s *Service) Season(ctx context.Context, id string) (*domain.Season, error) {
	season, err := s.season(ctx, id)
	if err != nil {
		return nil, wrap("season", "failed to load season", err)
	}
	return season, nil
}

// StartSeason ends the running season, if any, and opens a new one.
// Ratings are soft reset first when the service is configured to do so.
func (s *Service) StartSeason(ctx context.Context, id, name string) (*domain.Season, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if id == "" || len(id) > maxSeasonIDLength {
		return nil, ErrInvalidSeasonID
	}
	if name == "" {
		name = id
	}

	var season *domain.Season
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		seasons := s.stores.Seasons.WithTx(tx)

		if _, err := seasons.Get(ctx, id); err == nil {
			return fmt.Errorf("%w: season %s already exists", ErrDuplicateTransition, id)
		} else if !errors.Is(err, store.ErrSeasonNotFound) {
			return err
		}

		now := s.clock()
		active, err := seasons.GetActive(ctx)
		switch {
		case err == nil:
			if _, err := s.endSeason(ctx, tx, active, now); err != nil {
				return err
			}
		case !errors.Is(err, store.ErrSeasonNotFound):
			return err
		}

		if s.cfg.SoftResetOnStart {
			if _, err := s.softReset(ctx, tx, now); err != nil {
				return err
			}
		}

		season = &domain.Season{ID: id, Name: name, Status: domain.SeasonActive, StartedAt: now}
		if err := seasons.Create(ctx, season); err != nil {
			if errors.Is(err, store.ErrSeasonExists) {
				return fmt.Errorf("%w: season %s already exists", ErrDuplicateTransition, id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrap("start_season", "failed to start season", err)
	}

	log.Info("season started", slog.String("season_id", id))
	return season, nil
}

// EndSeason snapshots every player who played this season and closes it.
func (s *Service) EndSeason(ctx context.Context, id string) (*SeasonSummary, error) {
	var summary *SeasonSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		season, err := s.stores.Seasons.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrSeasonNotFound) {
				return ErrSeasonNotFound
			}
			return err
		}
		if season.Status != domain.SeasonActive {
			return fmt.Errorf("%w: season %s already ended", ErrDuplicateTransition, id)
		}

		summary, err = s.endSeason(ctx, tx, season, s.clock())
		return err
	})
	if err != nil {
		return nil, wrap("end_season", "failed to end season", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("season ended",
		slog.String("season_id", id),
		slog.Int("records", summary.Records))
	return summary, nil
}

// endSeason writes season records and marks the season ended.
func (s *Service) endSeason(ctx context.Context, tx *sql.Tx, season *domain.Season, now time.Time) (*SeasonSummary, error) {
	ratings, err := s.stores.Ratings.WithTx(tx).ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	records := make([]*domain.SeasonRecord, 0, len(ratings))
	for _, r := range ratings {
		if r.Games() > 0 {
			records = append(records, domain.NewSeasonRecord(season.ID, r))
		}
	}
	if len(records) > 0 {
		if err := s.stores.SeasonRecords.WithTx(tx).CreateBatch(ctx, records); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, fmt.Errorf("%w: season %s already has records", ErrDuplicateTransition, season.ID)
			}
			return nil, fmt.Errorf("failed to save season records: %w", err)
		}
	}

	if err := s.stores.Seasons.WithTx(tx).MarkEnded(ctx, season.ID, now); err != nil {
		if errors.Is(err, store.ErrUpdateFailed) {
			return nil, fmt.Errorf("%w: season %s already ended", ErrDuplicateTransition, season.ID)
		}
		return nil, err
	}

	ended := *season
	ended.Status = domain.SeasonEnded
	ended.EndedAt = &now
	return &SeasonSummary{Season: &ended, Records: len(records)}, nil
}

// SoftReset pulls every rating toward the configured baseline and clears streaks.
// It returns the number of players updated.
func (s *Service) SoftReset(ctx context.Context) (int, error) {
	var n int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		n, err = s.softReset(ctx, tx, s.clock())
		return err
	})
	if err != nil {
		return 0, wrap("soft_reset", "failed to reset ratings", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("ratings soft reset",
		slog.Int("players", n),
		slog.Int("baseline", s.cfg.SoftResetBaseline),
		slog.Float64("pct", s.cfg.SoftResetPct))
	return n, nil
}

func (s *Service) softReset(ctx context.Context, tx *sql.Tx, now time.Time) (int, error) {
	ratings := s.stores.Ratings.WithTx(tx)
	all, err := ratings.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list ratings: %w", err)
	}

	for _, r := range all {
		next := rating.SoftReset(r.Rating, s.cfg.SoftResetBaseline, s.cfg.SoftResetPct)
		if next < s.cfg.Rating.Floor {
			next = s.cfg.Rating.Floor
		}
		r.Rating = next
		r.Streak = 0
		r.UpdatedAt = now
		if err := ratings.Upsert(ctx, r); err != nil {
			return 0, fmt.Errorf("failed to reset rating for %d: %w", r.PlayerID, err)
		}
	}
	return len(all), nil
}

// SeasonRewards returns one reward per tier, falling back to the defaults
// for tiers the season does not configure.
func (s *Service) SeasonRewards(ctx context.Context, seasonID string) ([]domain.Reward, error) {
	if _, err := s.season(ctx, seasonID); err != nil {
		return nil, wrap("season_rewards", "failed to load season", err)
	}

	byTier, err := s.rewardsByTier(ctx, seasonID)
	if err != nil {
		return nil, wrap("season_rewards", "failed to list rewards", err)
	}

	table := make([]domain.Reward, 0, len(domain.Tiers()))
	for _, t := range domain.Tiers() {
		if r, ok := byTier[t.Tier]; ok {
			table = append(table, r)
			continue
		}
		table = append(table, domain.DefaultReward(seasonID, t.Tier))
	}
	return table, nil
}

// ClaimReward marks the player's season reward claimed and returns it.
// A second claim fails with ErrAlreadyClaimed.
func (s *Service) ClaimReward(ctx context.Context, seasonID string, playerID int64) (*domain.Reward, error) {
	var reward domain.Reward
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		records := s.stores.SeasonRecords.WithTx(tx)

		record, err := records.Get(ctx, seasonID, playerID)
		if err != nil {
			if errors.Is(err, store.ErrSeasonRecordNotFound) {
				return ErrNoSeasonRecord
			}
			return err
		}

		claimed, err := records.MarkClaimed(ctx, seasonID, playerID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrAlreadyClaimed
		}

		byTier, err := s.rewardsByTier(ctx, seasonID)
		if err != nil {
			return err
		}
		if r, ok := byTier[record.FinalTier]; ok {
			reward = r
		} else {
			reward = domain.DefaultReward(seasonID, record.FinalTier)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("claim_reward", "failed to claim reward", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("season reward claimed",
		slog.String("season_id", seasonID),
		slog.Int64("player_id", playerID),
		slog.String("tier", string(reward.Tier)))
	return &reward, nil
}

// Standings lists the season's final records, highest rating first.
func (s *Service) Standings(ctx context.Context, seasonID string) ([]*domain.SeasonRecord, error) {
	if _, err := s.season(ctx, seasonID); err != nil {
		return nil, wrap("standings", "failed to load season", err)
	}
	records, err := s.stores.SeasonRecords.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, wrap("standings", "failed to list season records", err)
	}
	return records, nil
}

func (s *Service) season(ctx context.Context, id string) (*domain.Season, error) {
	season, err := s.stores.Seasons.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrSeasonNotFound) {
			return nil, ErrSeasonNotFound
		}
		return nil, err
	}
	return season, nil
}

func (s *Service) rewardsByTier(ctx context.Context, seasonID string) (map[domain.RankTier]domain.Reward, error) {
	rewards, err := s.stores.Rewards.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	byTier := make(map[domain.RankTier]domain.Reward, len(rewards))
	for _, r := range rewards {
		byTier[r.Tier] = *r
	}
	return byTier, nil
}
