package pvp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/rating"
	"github.com/phrazzld/certquest-api/internal/events"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// Bounds for history pages.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// BattleOutcome is the submitting player's view of a finished battle.
type BattleOutcome struct {
	BattleID            uuid.UUID          `json:"battle_id"`
	PlayerID            int64              `json:"player_id"`
	OpponentID          int64              `json:"opponent_id"`
	Won                 bool               `json:"won"`
	RatingBefore        int                `json:"rating_before"`
	RatingAfter         int                `json:"rating_after"`
	RatingChange        int                `json:"rating_change"`
	OpponentRatingAfter int                `json:"opponent_rating_after"`
	Tier                domain.RankTier    `json:"tier"`
	RankChange          *domain.RankChange `json:"rank_change,omitempty"`
}

// side is one participant of a battle while its result is applied.
type side struct {
	id     int64
	bot    bool
	rating *domain.PlayerRating
	before int
}

// SubmitResult records the result of a battle from the point of view of
// playerID and updates both ratings. Bot ratings never change.
func (s *Service) SubmitResult(ctx context.Context, battleID uuid.UUID, playerID int64, won bool) (*BattleOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := s.stores.Sessions.GetBattle(ctx, battleID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrBattleNotFound
		}
		return nil, wrap("submit_result", "failed to load battle session", err)
	}
	if !session.Involves(playerID) {
		log.Warn("result submitted by non-participant",
			slog.String("battle_id", battleID.String()),
			slog.Int64("player_id", playerID))
		return nil, ErrNotParticipant
	}
	opponentID := session.OpponentOf(playerID)

	var outcome *BattleOutcome
	var changes []*domain.RankChange

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		ratings := s.stores.Ratings.WithTx(tx)
		results := s.stores.Results.WithTx(tx)

		for _, id := range []int64{playerID, opponentID} {
			done, err := results.ExistsForBattle(ctx, battleID, id)
			if err != nil {
				return err
			}
			if done {
				return ErrResultAlreadySubmitted
			}
		}

		me := &side{id: playerID, bot: s.cfg.Rating.IsBot(playerID)}
		them := &side{id: opponentID, bot: s.cfg.Rating.IsBot(opponentID)}

		// Lock in ascending id order so two submissions cannot deadlock.
		sides := []*side{me, them}
		sort.Slice(sides, func(i, j int) bool { return sides[i].id < sides[j].id })
		for _, sd := range sides {
			if sd.bot {
				sd.rating = domain.NewPlayerRating(sd.id, sessionRating(session, sd.id))
			} else {
				r, err := s.currentRating(ctx, ratings, sd.id, true)
				if err != nil {
					return err
				}
				sd.rating = r
			}
			sd.before = sd.rating.Rating
		}

		newMe, newThem := rating.Update(me.before, them.before, won, s.cfg.Rating)
		now := s.clock()

		for _, sd := range []struct {
			self, other *side
			after       int
			otherAfter  int
			won         bool
		}{
			{me, them, newMe, newThem, won},
			{them, me, newThem, newMe, !won},
		} {
			if sd.self.bot {
				continue
			}
			otherAfter := sd.otherAfter
			if sd.other.bot {
				otherAfter = sd.other.before
			}

			sd.self.rating.Rating = sd.after
			sd.self.rating.RecordResult(sd.won)
			sd.self.rating.UpdatedAt = now
			if err := ratings.Upsert(ctx, sd.self.rating); err != nil {
				return fmt.Errorf("failed to save rating for %d: %w", sd.self.id, err)
			}

			result := &domain.BattleResult{
				ID:                   uuid.New(),
				BattleID:             battleID,
				PlayerID:             sd.self.id,
				OpponentID:           sd.other.id,
				Won:                  sd.won,
				RatingBefore:         sd.self.before,
				RatingAfter:          sd.after,
				OpponentRatingBefore: sd.other.before,
				OpponentRatingAfter:  otherAfter,
				IsBot:                session.IsBot,
				PlayedAt:             now,
			}
			if err := results.Create(ctx, result); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return ErrResultAlreadySubmitted
				}
				return fmt.Errorf("failed to save battle result: %w", err)
			}

			if change, ok := rating.DetectTierChange(sd.self.id, sd.self.before, sd.after, now); ok {
				if err := s.stores.RankHistory.WithTx(tx).Create(ctx, change); err != nil {
					return fmt.Errorf("failed to save rank change: %w", err)
				}
				changes = append(changes, change)
			}
		}

		outcome = &BattleOutcome{
			BattleID:            battleID,
			PlayerID:            playerID,
			OpponentID:          opponentID,
			Won:                 won,
			RatingBefore:        me.before,
			RatingAfter:         me.rating.Rating,
			RatingChange:        me.rating.Rating - me.before,
			OpponentRatingAfter: them.rating.Rating,
			Tier:                domain.TierFor(me.rating.Rating),
		}
		return nil
	})
	if err != nil {
		if !isExpected(err) {
			log.Error("failed to submit battle result",
				slog.String("error", err.Error()),
				slog.String("battle_id", battleID.String()),
				slog.Int64("player_id", playerID))
		}
		return nil, wrap("submit_result", "failed to apply result", err)
	}

	for _, change := range changes {
		if change.PlayerID == playerID {
			outcome.RankChange = change
		}
		s.emit(ctx, events.TypeRankChanged, events.RankChanged{Change: *change, BattleID: battleID})
	}

	if err := s.stores.Sessions.DeleteBattle(ctx, battleID); err != nil {
		log.Warn("failed to delete battle session",
			slog.String("battle_id", battleID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("battle result applied",
		slog.String("battle_id", battleID.String()),
		slog.Int64("player_id", playerID),
		slog.Bool("won", won),
		slog.Int("rating_change", outcome.RatingChange))
	return outcome, nil
}

// GetRating returns the player's rating, or an unplayed default record.
func (s *Service) GetRating(ctx context.Context, playerID int64) (*domain.PlayerRating, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	r, err := s.currentRating(ctx, s.stores.Ratings, playerID, false)
	if err != nil {
		return nil, wrap("get_rating", "failed to load rating", err)
	}
	return r, nil
}

// History returns the player's latest battle results, newest first.
func (s *Service) History(ctx context.Context, playerID int64, limit int) ([]*domain.BattleResult, error) {
	limit, err := pageLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	results, err := s.stores.Results.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, wrap("history", "failed to list battle results", err)
	}
	return results, nil
}

// RankHistory returns the player's latest tier transitions, newest first.
func (s *Service) RankHistory(ctx context.Context, playerID int64, limit int) ([]*domain.RankChange, error) {
	limit, err := pageLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	changes, err := s.stores.RankHistory.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, wrap("rank_history", "failed to list rank history", err)
	}
	return changes, nil
}

// currentRating returns the stored rating, locking the row when lock is set.
// A player without a row gets the default rating.
func (s *Service) currentRating(
	ctx context.Context,
	ratings store.PlayerRatingStore,
	playerID int64,
	lock bool,
) (*domain.PlayerRating, error) {
	get := ratings.Get
	if lock {
		get = ratings.GetForUpdate
	}
	r, err := get(ctx, playerID)
	if err == nil {
		return r, nil
	}
	if errors.Is(err, store.ErrRatingNotFound) {
		return domain.NewPlayerRating(playerID, s.cfg.Rating.DefaultRating), nil
	}
	return nil, err
}

// sessionRating returns the rating a participant had when the battle started.
func sessionRating(b *domain.BattleSession, playerID int64) int {
	if b.PlayerID == playerID {
		return b.PlayerRating
	}
	return b.OpponentRating
}

func pageLimit(limit, def, maxLimit int) (int, error) {
	if limit <= 0 {
		return def, nil
	}
	if limit > maxLimit {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidLimit, limit, maxLimit)
	}
	return limit, nil
}
