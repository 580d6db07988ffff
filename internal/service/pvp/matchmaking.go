package pvp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/matchmaking"
	"github.com/phrazzld/certquest-api/internal/events"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// QueueTicket is returned when a player joins the queue.
type QueueTicket struct {
	PlayerID      int64     `json:"player_id"`
	Rating        int       `json:"rating"`
	SearchRadius  int       `json:"search_radius"`
	QueueSize     int       `json:"queue_size"`
	EstimatedWait float64   `json:"estimated_wait_seconds"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// QueueStatus summarises the waiting players.
type QueueStatus struct {
	Size          int     `json:"size"`
	AverageRating float64 `json:"average_rating"`
	EstimatedWait float64 `json:"estimated_wait_seconds"`
}

// SweepResult reports one pass of the background matcher.
type SweepResult struct {
	Matched int `json:"matched"`
	Expired int `json:"expired"`
}

// pairing is a match made inside the queue transaction together with the
// players who were not present to receive it.
type pairing struct {
	match      *domain.Match
	recipients []int64
}

// JoinQueue adds the player to the matchmaking queue. A nil rating uses the
// stored rating, or the default for a player who has never played.
func (s *Service) JoinQueue(ctx context.Context, playerID int64, playerRating *int) (*QueueTicket, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	if s.cfg.Rating.IsBot(playerID) {
		return nil, ErrBotCannotQueue
	}

	var r int
	if playerRating != nil {
		if *playerRating < s.cfg.Rating.Floor {
			return nil, fmt.Errorf("%w: %d is below %d", ErrInvalidRating, *playerRating, s.cfg.Rating.Floor)
		}
		r = *playerRating
	} else {
		current, err := s.currentRating(ctx, s.stores.Ratings, playerID, false)
		if err != nil {
			return nil, wrap("join_queue", "failed to load rating", err)
		}
		r = current.Rating
	}

	now := s.clock()
	entry := &domain.QueueEntry{
		PlayerID:     playerID,
		Rating:       r,
		EnqueuedAt:   now,
		SearchRadius: s.cfg.Matchmaking.InitialRadius,
	}

	var size int
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		queue := s.stores.Queue.WithTx(tx)
		if err := queue.Lock(ctx); err != nil {
			return err
		}
		if err := queue.Insert(ctx, entry); err != nil {
			if errors.Is(err, store.ErrQueueEntryExists) {
				return ErrAlreadyQueued
			}
			return err
		}
		entries, err := queue.List(ctx)
		if err != nil {
			return err
		}
		size = len(entries)
		return nil
	})
	if err != nil {
		return nil, wrap("join_queue", "failed to enqueue player", err)
	}

	log.Info("player joined queue",
		slog.Int64("player_id", playerID),
		slog.Int("rating", r),
		slog.Int("queue_size", size))

	return &QueueTicket{
		PlayerID:      playerID,
		Rating:        r,
		SearchRadius:  entry.SearchRadius,
		QueueSize:     size,
		EstimatedWait: matchmaking.EstimatedWait(size).Seconds(),
		EnqueuedAt:    now,
	}, nil
}

// LeaveQueue removes the player from the queue.
func (s *Service) LeaveQueue(ctx context.Context, playerID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		queue := s.stores.Queue.WithTx(tx)
		if err := queue.Lock(ctx); err != nil {
			return err
		}
		if err := queue.Delete(ctx, playerID); err != nil {
			if errors.Is(err, store.ErrQueueEntryNotFound) {
				return ErrNotQueued
			}
			return err
		}
		return nil
	})
	if err != nil {
		return wrap("leave_queue", "failed to dequeue player", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("player left queue", slog.Int64("player_id", playerID))
	return nil
}

// FindMatch looks for an opponent for a queued player. It returns (nil, nil)
// while the player should keep waiting. A player who was already paired by
// someone else's search receives that match instead.
func (s *Service) FindMatch(ctx context.Context, playerID int64) (*domain.Match, error) {
	var made *pairing
	var staged []*pairing
	queued := true

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		s.unstage(ctx, staged)
		staged, made, queued = nil, nil, true

		queue := s.stores.Queue.WithTx(tx)
		if err := queue.Lock(ctx); err != nil {
			return err
		}

		entries, err := queue.List(ctx)
		if err != nil {
			return err
		}
		var self *domain.QueueEntry
		for _, e := range entries {
			if e.PlayerID == playerID {
				self = e
				break
			}
		}
		if self == nil {
			queued = false
			return nil
		}

		made, err = s.matchEntry(ctx, tx, self, entries, s.clock())
		if err != nil || made == nil {
			return err
		}
		staged = append(staged, made)
		return s.stageMatch(ctx, made)
	})
	if err != nil {
		s.unstage(ctx, staged)
		return nil, wrap("find_match", "failed to search for opponent", err)
	}

	if !queued {
		pending, err := s.stores.Sessions.TakePendingMatch(ctx, playerID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				return nil, ErrNotQueued
			}
			return nil, wrap("find_match", "failed to load pending match", err)
		}
		return pending, nil
	}

	if made == nil {
		return nil, nil
	}
	s.announceMatch(ctx, made)
	return made.match, nil
}

// Sweep runs the matcher for every queued player, oldest first, and drops
// entries that have waited past the stale timeout.
func (s *Service) Sweep(ctx context.Context) (*SweepResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var made []*pairing
	var result *SweepResult

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		s.unstage(ctx, made)
		made, result = nil, &SweepResult{}

		queue := s.stores.Queue.WithTx(tx)
		if err := queue.Lock(ctx); err != nil {
			return err
		}

		entries, err := queue.List(ctx)
		if err != nil {
			return err
		}

		now := s.clock()
		gone := make(map[int64]bool, len(entries))
		for _, e := range entries {
			if gone[e.PlayerID] {
				continue
			}

			if e.Wait(now) > s.cfg.StaleAfter {
				if err := queue.Delete(ctx, e.PlayerID); err != nil {
					return err
				}
				gone[e.PlayerID] = true
				result.Expired++
				log.Info("removed stale queue entry",
					slog.Int64("player_id", e.PlayerID),
					slog.Duration("wait", e.Wait(now)))
				continue
			}

			remaining := make([]*domain.QueueEntry, 0, len(entries))
			for _, other := range entries {
				if !gone[other.PlayerID] {
					remaining = append(remaining, other)
				}
			}

			p, err := s.matchEntry(ctx, tx, e, remaining, now)
			if err != nil {
				return err
			}
			if p == nil {
				continue
			}
			// The sweeper is not a player, so both humans receive the match.
			p.recipients = s.humans(p.match)
			made = append(made, p)
			if err := s.stageMatch(ctx, p); err != nil {
				return err
			}
			for _, id := range p.match.Participants() {
				gone[id] = true
			}
			result.Matched++
		}
		return nil
	})
	if err != nil {
		s.unstage(ctx, made)
		return nil, wrap("sweep", "failed to sweep queue", err)
	}

	for _, p := range made {
		s.announceMatch(ctx, p)
	}

	if result.Matched > 0 || result.Expired > 0 {
		log.Info("queue sweep finished",
			slog.Int("matched", result.Matched),
			slog.Int("expired", result.Expired))
	}
	return result, nil
}

// QueueStatus reports the queue size, average rating and a rough wait estimate.
func (s *Service) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	entries, err := s.stores.Queue.List(ctx)
	if err != nil {
		return nil, wrap("queue_status", "failed to list queue", err)
	}

	status := &QueueStatus{
		Size:          len(entries),
		EstimatedWait: matchmaking.EstimatedWait(len(entries)).Seconds(),
	}
	if len(entries) > 0 {
		var sum int
		for _, e := range entries {
			sum += e.Rating
		}
		status.AverageRating = math.Round(float64(sum)/float64(len(entries))*10) / 10
	}
	return status, nil
}

// matchEntry runs one matching step for self inside the queue transaction.
// It returns nil when self should keep waiting, after persisting any widened radius.
func (s *Service) matchEntry(
	ctx context.Context,
	tx *sql.Tx,
	self *domain.QueueEntry,
	entries []*domain.QueueEntry,
	now time.Time,
) (*pairing, error) {
	queue := s.stores.Queue.WithTx(tx)
	wait := self.Wait(now)
	radius := matchmaking.SearchRadius(wait, s.cfg.Matchmaking)

	if opponent := matchmaking.FindOpponent(self, entries, radius); opponent != nil {
		if err := queue.Delete(ctx, self.PlayerID); err != nil {
			return nil, err
		}
		if err := queue.Delete(ctx, opponent.PlayerID); err != nil {
			return nil, err
		}
		match := s.newMatch(self, opponent.PlayerID, opponent.Rating, wait, false, now)
		if err := s.stores.MatchLog.WithTx(tx).Create(ctx, match); err != nil {
			return nil, err
		}
		return &pairing{match: match, recipients: []int64{opponent.PlayerID}}, nil
	}

	if matchmaking.ShouldFallBackToBot(wait, s.cfg.Matchmaking) {
		bot, err := s.pickBot(ctx, self.Rating)
		if err != nil {
			return nil, err
		}
		if err := queue.Delete(ctx, self.PlayerID); err != nil {
			return nil, err
		}
		match := s.newMatch(self, bot.ID, bot.Rating, wait, true, now)
		if err := s.stores.MatchLog.WithTx(tx).Create(ctx, match); err != nil {
			return nil, err
		}
		return &pairing{match: match}, nil
	}

	if radius != self.SearchRadius {
		if err := queue.UpdateRadius(ctx, self.PlayerID, radius); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// pickBot returns the active bot closest to rating, or the default bot.
func (s *Service) pickBot(ctx context.Context, playerRating int) (*domain.Bot, error) {
	bots, err := s.stores.Bots.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	if bot := matchmaking.ClosestBot(playerRating, bots); bot != nil {
		return bot, nil
	}
	return &domain.Bot{ID: DefaultBotID, Name: "Practice Bot", Rating: s.cfg.Rating.DefaultRating, Active: true}, nil
}

func (s *Service) newMatch(
	self *domain.QueueEntry,
	opponentID int64,
	opponentRating int,
	wait time.Duration,
	isBot bool,
	now time.Time,
) *domain.Match {
	diff := opponentRating - self.Rating
	if diff < 0 {
		diff = -diff
	}
	return &domain.Match{
		ID:             uuid.New(),
		PlayerID:       self.PlayerID,
		OpponentID:     opponentID,
		PlayerRating:   self.Rating,
		OpponentRating: opponentRating,
		RatingDiff:     diff,
		WaitSeconds:    math.Round(wait.Seconds()*10) / 10,
		Quality:        matchmaking.Quality(diff, wait, isBot),
		IsBot:          isBot,
		CreatedAt:      now,
	}
}

// humans returns the match participants that are not bots.
func (s *Service) humans(m *domain.Match) []int64 {
	var ids []int64
	for _, id := range m.Participants() {
		if !s.cfg.Rating.IsBot(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// announceMatch logs a committed match and emits match_found.
func (s *Service) announceMatch(ctx context.Context, p *pairing) {
	logger.FromContextOrDefault(ctx, s.logger).Info("match found",
		slog.String("match_id", p.match.ID.String()),
		slog.Int64("player_id", p.match.PlayerID),
		slog.Int64("opponent_id", p.match.OpponentID),
		slog.Bool("is_bot", p.match.IsBot),
		slog.Float64("quality", p.match.Quality))

	s.emit(ctx, events.TypeMatchFound, events.MatchFound{Match: *p.match, Recipients: p.recipients})
}
