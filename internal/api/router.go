package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/certquest-api/internal/api/middleware"
	"github.com/phrazzld/certquest-api/internal/api/shared"
	"github.com/phrazzld/certquest-api/internal/service/auth"
)

// healthTimeout bounds the dependency check behind GET /health.
const healthTimeout = 2 * time.Second

// RouterConfig holds everything the router mounts.
type RouterConfig struct {
	Review  *ReviewHandler
	Learner *LearnerHandler
	PvP     *PvPHandler
	JWT     auth.JWTService
	Logger  *slog.Logger

	// Health reports whether the backing stores are reachable. Nil means
	// always healthy.
	Health func(ctx context.Context) error
}

// NewRouter registers every route under /api plus GET /health.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Review == nil || cfg.Learner == nil || cfg.PvP == nil || cfg.JWT == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("router requires review, learner and pvp handlers and a JWT service")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	authMW := middleware.NewAuthMiddleware(cfg.JWT)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Trace(log))
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/pvp/queue/status", cfg.PvP.QueueStatus)
		r.Get("/pvp/leaderboard", cfg.PvP.Leaderboard)
		r.Get("/pvp/leaderboard.xlsx", cfg.PvP.LeaderboardExport)
		r.Get("/pvp/players/{id}/rank", cfg.PvP.PlayerRank)
		r.Get("/pvp/tiers", cfg.PvP.Tiers)
		r.Get("/pvp/tiers/distribution", cfg.PvP.TierDistribution)
		r.Get("/pvp/bots", cfg.PvP.Bots)
		r.Get("/pvp/seasons/current", cfg.PvP.CurrentSeason)
		r.Get("/pvp/seasons/{id}/rewards", cfg.PvP.SeasonRewards)
		r.Get("/pvp/seasons/{id}/standings.xlsx", cfg.PvP.Standings)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Authenticate)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser)

				r.Get("/review/cards/due", cfg.Review.DueCards)
				r.Post("/review/cards", cfg.Review.AddToDeck)
				r.Post("/review/cards/{item}/review", cfg.Review.Review)
				r.Delete("/review/cards/{item}", cfg.Review.DeleteCard)
				r.Get("/review/cards/{item}/retention", cfg.Review.Retention)
				r.Get("/review/schedule", cfg.Review.Schedule)
				r.Get("/review/stats", cfg.Review.Stats)

				r.Get("/learn/{cert}/next", cfg.Learner.NextQuestion)
				r.Post("/learn/{cert}/answers", cfg.Learner.RecordAnswer)
				r.Get("/learn/{cert}/stats", cfg.Learner.Stats)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePlayer)

				r.Post("/pvp/queue", cfg.PvP.JoinQueue)
				r.Delete("/pvp/queue", cfg.PvP.LeaveQueue)
				r.Post("/pvp/queue/match", cfg.PvP.FindMatch)
				r.Post("/pvp/battles/{id}/result", cfg.PvP.SubmitResult)
				r.Post("/pvp/seasons/{id}/claim", cfg.PvP.ClaimReward)
				r.Get("/pvp/me", cfg.PvP.Me)
				r.Get("/pvp/me/history", cfg.PvP.History)
				r.Get("/pvp/me/rank-history", cfg.PvP.RankHistory)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)

				r.Post("/pvp/seasons", cfg.PvP.StartSeason)
				r.Post("/pvp/seasons/{id}/end", cfg.PvP.EndSeason)
				r.Post("/pvp/ratings/soft-reset", cfg.PvP.SoftReset)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Unavailable", err)
				return
			}
		}
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
	})

	return r
}
