package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/certquest-api/internal/api"
	"github.com/phrazzld/certquest-api/internal/config"
	"github.com/phrazzld/certquest-api/internal/domain/adaptive"
	"github.com/phrazzld/certquest-api/internal/domain/matchmaking"
	"github.com/phrazzld/certquest-api/internal/domain/rating"
	"github.com/phrazzld/certquest-api/internal/domain/srs"
	"github.com/phrazzld/certquest-api/internal/events"
	"github.com/phrazzld/certquest-api/internal/platform/postgres"
	"github.com/phrazzld/certquest-api/internal/platform/redis"
	"github.com/phrazzld/certquest-api/internal/scheduler"
	"github.com/phrazzld/certquest-api/internal/service/auth"
	"github.com/phrazzld/certquest-api/internal/service/learner"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/phrazzld/certquest-api/internal/service/review"
	"github.com/phrazzld/certquest-api/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

// application holds the shared dependencies so they can be released together
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	jwtService     auth.JWTService
	reviewService  review.Service
	learnerService learner.Service
	pvpService     *pvp.Service

	eventEmitter *events.InMemoryEventEmitter
	scheduler    *scheduler.Scheduler
}

// newApplication builds every store and service on top of an already
// connected database and redis client.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, rdb *goredis.Client) (*application, error) {
	if cfg == nil || db == nil || rdb == nil {
		return nil, errors.New("config, database and redis are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  rdb,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	tx := store.NewTransactor(db)
	questions := postgres.NewPostgresQuestionStore(db, logger)

	srsService, err := srs.NewServiceFromParams(srsParams(cfg.SRS))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SRS service: %w", err)
	}
	app.reviewService = review.NewService(
		postgres.NewPostgresMemoryCardStore(db, logger),
		postgres.NewPostgresReviewLogStore(db, logger),
		questions,
		tx,
		srsService,
		logger,
		review.WithDueLimit(cfg.SRS.DueLimit),
	)

	app.learnerService, err = learner.NewService(
		postgres.NewPostgresLearnerProfileStore(db, logger),
		postgres.NewPostgresLearningEventStore(db, logger),
		questions,
		tx,
		adaptiveParams(cfg.Adaptive),
		logger,
		learner.WithCandidateLimit(cfg.Adaptive.CandidateLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize learner service: %w", err)
	}

	sessions := redis.NewSessionStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.SessionTTL, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.Subscribe(events.NewLoggingHandler(logger), events.TypeRankChanged, events.TypeMatchFound)

	app.pvpService, err = pvp.NewService(
		pvp.Stores{
			Ratings:       postgres.NewPostgresPlayerRatingStore(db, logger),
			Results:       postgres.NewPostgresBattleResultStore(db, logger),
			RankHistory:   postgres.NewPostgresRankHistoryStore(db, logger),
			Queue:         postgres.NewPostgresQueueStore(db, logger),
			Bots:          postgres.NewPostgresBotStore(db, logger),
			MatchLog:      postgres.NewPostgresMatchLogStore(db, logger),
			Seasons:       postgres.NewPostgresSeasonStore(db, logger),
			SeasonRecords: postgres.NewPostgresSeasonRecordStore(db, logger),
			Rewards:       postgres.NewPostgresRewardStore(db, logger),
			Sessions:      sessions,
		},
		tx,
		app.eventEmitter,
		pvpConfig(cfg.PvP, cfg.Season),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pvp service: %w", err)
	}

	app.scheduler = scheduler.New(app.pvpService, cfg.PvP.SweepInterval, logger)

	return app, nil
}

// router wires the HTTP handlers onto the application services.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Review:  api.NewReviewHandler(app.reviewService, app.logger),
		Learner: api.NewLearnerHandler(app.learnerService, app.logger),
		PvP:     api.NewPvPHandler(app.pvpService, app.logger),
		JWT:     app.jwtService,
		Logger:  app.logger,
		Health:  app.health,
	})
}

func (app *application) health(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := app.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

// Run starts the queue sweep and serves HTTP until a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.scheduler.Start(); err != nil {
		app.cleanup()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return app.startHTTPServer(ctx, app.router())
}

// cleanup releases background workers and connections.
func (app *application) cleanup() {
	app.logger.Info("cleaning up application resources")

	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		}
	}
}

func srsParams(cfg config.SRSConfig) *srs.Params {
	return srs.NewParams(srs.ParamsConfig{
		InitialEasiness: cfg.InitialEasiness,
		MinEasiness:     cfg.MinEasiness,
		PassThreshold:   cfg.PassThreshold,
		FirstInterval:   cfg.FirstInterval,
		SecondInterval:  cfg.SecondInterval,
	})
}

func adaptiveParams(cfg config.AdaptiveConfig) *adaptive.Params {
	return &adaptive.Params{
		UpdateRate:          cfg.UpdateRate,
		DomainUpdateRate:    cfg.DomainUpdateRate,
		MomentumDecay:       cfg.MomentumDecay,
		MomentumStep:        cfg.MomentumStep,
		MomentumThreshold:   cfg.MomentumThreshold,
		WindowSize:          cfg.WindowSize,
		StabilityWindow:     cfg.StabilityWindow,
		StabilityMinSamples: cfg.StabilityMinSamples,
		WeakThreshold:       cfg.WeakThreshold,
		StrongThreshold:     cfg.StrongThreshold,
		DifficultySpread:    cfg.DifficultySpread,
	}
}

func pvpConfig(cfg config.PvPConfig, season config.SeasonConfig) pvp.Config {
	return pvp.Config{
		Rating: &rating.Params{
			KFactor:        float64(cfg.KFactor),
			DefaultRating:  cfg.DefaultRating,
			BotIDThreshold: cfg.BotIDThreshold,
			Floor:          cfg.RatingFloor,
		},
		Matchmaking: &matchmaking.Params{
			InitialRadius: cfg.InitialRadius,
			RadiusStep:    cfg.RadiusStep,
			StepInterval:  cfg.StepInterval,
			MaxRadius:     cfg.MaxRadius,
			MaxWait:       cfg.MaxWait,
		},
		StaleAfter:        cfg.StaleAfter,
		LeaderboardLimit:  cfg.LeaderboardLimit,
		SoftResetOnStart:  season.SoftResetOnStart,
		SoftResetBaseline: season.SoftResetBaseline,
		SoftResetPct:      season.SoftResetPct,
	}
}
