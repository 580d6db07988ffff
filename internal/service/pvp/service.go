// Package pvp runs the competitive mode: the matchmaking queue, Elo rating
// updates after each battle, ranked seasons with rewards, and leaderboards.
//
// Queue-wide work happens inside one transaction that holds the queue lock,
// so polling players and the background sweeper never pair the same entry twice.
package pvp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/matchmaking"
	"github.com/phrazzld/certquest-api/internal/domain/rating"
	"github.com/phrazzld/certquest-api/internal/events"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/store"
)

// DefaultBotID is the opponent used when the bots table has no active bot.
const DefaultBotID int64 = 9001

// Stores groups the persistence the PvP service needs.
type Stores struct {
	Ratings       store.PlayerRatingStore
	Results       store.BattleResultStore
	RankHistory   store.RankHistoryStore
	Queue         store.QueueStore
	Bots          store.BotStore
	MatchLog      store.MatchLogStore
	Seasons       store.SeasonStore
	SeasonRecords store.SeasonRecordStore
	Rewards       store.RewardStore
	Sessions      store.SessionStore
}

// Config holds the tuning of the PvP engine.
type Config struct {
	Rating            *rating.Params
	Matchmaking       *matchmaking.Params
	StaleAfter        time.Duration
	LeaderboardLimit  int
	SoftResetOnStart  bool
	SoftResetBaseline int
	SoftResetPct      float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Rating:            rating.NewDefaultParams(),
		Matchmaking:       matchmaking.NewDefaultParams(),
		StaleAfter:        10 * time.Minute,
		LeaderboardLimit:  100,
		SoftResetBaseline: domain.DefaultRating,
		SoftResetPct:      0.5,
	}
}

// Service implements matchmaking, rating, seasons and leaderboards.
type Service struct {
	stores  Stores
	tx      store.Transactor
	emitter events.EventEmitter
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a PvP service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a PvP Service. A nil emitter drops events.
func NewService(
	stores Stores,
	tx store.Transactor,
	emitter events.EventEmitter,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) (*Service, error) {
	switch {
	case stores.Ratings == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("ratings store cannot be nil")
	case stores.Results == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("results store cannot be nil")
	case stores.RankHistory == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("rank history store cannot be nil")
	case stores.Queue == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("queue store cannot be nil")
	case stores.Bots == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("bots store cannot be nil")
	case stores.MatchLog == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("match log store cannot be nil")
	case stores.Seasons == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("seasons store cannot be nil")
	case stores.SeasonRecords == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("season records store cannot be nil")
	case stores.Rewards == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("rewards store cannot be nil")
	case stores.Sessions == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sessions store cannot be nil")
	case tx == nil:
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tx cannot be nil")
	}

	if cfg.Rating == nil {
		cfg.Rating = rating.NewDefaultParams()
	}
	if cfg.Matchmaking == nil {
		cfg.Matchmaking = matchmaking.NewDefaultParams()
	}
	if err := cfg.Rating.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Matchmaking.Validate(); err != nil {
		return nil, err
	}
	if cfg.StaleAfter <= cfg.Matchmaking.MaxWait {
		return nil, errors.New("stale timeout must exceed the bot fallback wait")
	}
	if cfg.LeaderboardLimit <= 0 {
		cfg.LeaderboardLimit = 100
	}
	if cfg.SoftResetPct < 0 || cfg.SoftResetPct > 1 {
		return nil, errors.New("soft reset pct must be within [0,1]")
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		stores:  stores,
		tx:      tx,
		emitter: emitter,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "pvp_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// emit publishes an event. Failures are logged; the state change that
// produced the event has already been committed.
func (s *Service) emit(ctx context.Context, eventType string, payload interface{}) {
	if s.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

func validPlayer(playerID int64) error {
	if playerID <= 0 {
		return ErrInvalidPlayer
	}
	return nil
}
