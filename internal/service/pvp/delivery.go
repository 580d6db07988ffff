package pvp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
)

// stageMatch writes the battle session and each recipient's pending match.
// It runs inside the queue transaction, so a failure here rolls back the
// dequeue and both players keep waiting.
func (s *Service) stageMatch(ctx context.Context, p *pairing) error {
	if err := s.stores.Sessions.SaveBattle(ctx, domain.NewBattleSession(p.match)); err != nil {
		return fmt.Errorf("failed to save battle session: %w", err)
	}
	for _, playerID := range p.recipients {
		if err := s.stores.Sessions.PutPendingMatch(ctx, playerID, MatchFor(p.match, playerID)); err != nil {
			return fmt.Errorf("failed to deliver match to %d: %w", playerID, err)
		}
	}
	return nil
}

// unstage removes session state written by an attempt that did not commit.
// Errors are logged only; the session TTL reclaims anything left behind.
func (s *Service) unstage(ctx context.Context, staged []*pairing) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	for _, p := range staged {
		if err := s.stores.Sessions.DeleteBattle(ctx, p.match.ID); err != nil {
			log.Warn("failed to remove uncommitted battle session",
				slog.String("match_id", p.match.ID.String()),
				slog.String("error", err.Error()))
		}
		for _, playerID := range p.recipients {
			pending, err := s.stores.Sessions.TakePendingMatch(ctx, playerID)
			if err != nil {
				continue
			}
			if pending.ID != p.match.ID {
				// Not ours; put it back.
				_ = s.stores.Sessions.PutPendingMatch(ctx, playerID, pending)
			}
		}
	}
}

// MatchFor returns the match as seen by playerID: PlayerID is always the
// viewer. The input is not modified.
func MatchFor(m *domain.Match, playerID int64) *domain.Match {
	cp := *m
	if m.OpponentID == playerID {
		cp.PlayerID, cp.OpponentID = m.OpponentID, m.PlayerID
		cp.PlayerRating, cp.OpponentRating = m.OpponentRating, m.PlayerRating
	}
	return &cp
}
