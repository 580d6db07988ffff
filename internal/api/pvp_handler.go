package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/api/shared"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/export"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
)

// defaultNearby is the number of neighbours shown around a player's rank.
const defaultNearby = 5

// PvPService is the part of the PvP engine exposed over HTTP.
type PvPService interface {
	JoinQueue(ctx context.Context, playerID int64, rating *int) (*pvp.QueueTicket, error)
	LeaveQueue(ctx context.Context, playerID int64) error
	FindMatch(ctx context.Context, playerID int64) (*domain.Match, error)
	QueueStatus(ctx context.Context) (*pvp.QueueStatus, error)
	SubmitResult(ctx context.Context, battleID uuid.UUID, playerID int64, won bool) (*pvp.BattleOutcome, error)
	GetRating(ctx context.Context, playerID int64) (*domain.PlayerRating, error)
	History(ctx context.Context, playerID int64, limit int) ([]*domain.BattleResult, error)
	RankHistory(ctx context.Context, playerID int64, limit int) ([]*domain.RankChange, error)
	CurrentSeason(ctx context.Context) (*domain.Season, error)
	Season(ctx context.Context, id string) (*domain.Season, error)
	StartSeason(ctx context.Context, id, name string) (*domain.Season, error)
	EndSeason(ctx context.Context, id string) (*pvp.SeasonSummary, error)
	SoftReset(ctx context.Context) (int, error)
	SeasonRewards(ctx context.Context, seasonID string) ([]domain.Reward, error)
	ClaimReward(ctx context.Context, seasonID string, playerID int64) (*domain.Reward, error)
	Standings(ctx context.Context, seasonID string) ([]*domain.SeasonRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]pvp.LeaderboardEntry, error)
	PlayerRank(ctx context.Context, playerID int64, nearby int) (*pvp.PlayerRankView, error)
	TierDistribution(ctx context.Context) ([]pvp.TierCount, error)
	Bots(ctx context.Context) ([]*domain.Bot, error)
	Tiers() []domain.TierThreshold
}

var _ PvPService = (*pvp.Service)(nil)

// PvPHandler serves matchmaking, rating, season and leaderboard routes.
type PvPHandler struct {
	service PvPService
	logger  *slog.Logger
}

// NewPvPHandler creates a new PvPHandler.
func NewPvPHandler(service PvPService, logger *slog.Logger) *PvPHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("pvp service cannot be nil for PvPHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PvPHandler{
		service: service,
		logger:  logger.With(slog.String("component", "pvp_handler")),
	}
}

// JoinQueue handles POST /pvp/queue. The body is optional.
func (h *PvPHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	var req JoinQueueRequest
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}

	ticket, err := h.service.JoinQueue(r.Context(), playerID, req.Rating)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to join queue")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, ticket)
}

// LeaveQueue handles DELETE /pvp/queue.
func (h *PvPHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	if err := h.service.LeaveQueue(r.Context(), playerID); err != nil {
		HandleAPIError(w, r, err, "Failed to leave queue")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FindMatch handles POST /pvp/queue/match.
func (h *PvPHandler) FindMatch(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	match, err := h.service.FindMatch(r.Context(), playerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search for a match")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MatchResponse{Matched: match != nil, Match: match})
}

// QueueStatus handles GET /pvp/queue/status.
func (h *PvPHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.QueueStatus(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load queue status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// SubmitResult handles POST /pvp/battles/{id}/result.
func (h *PvPHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	battleID, err := pathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req SubmitResultRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.service.SubmitResult(r.Context(), battleID, playerID, *req.Won)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit result")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, outcome)
}

// Me handles GET /pvp/me.
func (h *PvPHandler) Me(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	rating, err := h.service.GetRating(r.Context(), playerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load rating")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, PlayerProfileResponse{
		PlayerRating: rating,
		Tier:         rating.Tier(),
		Games:        rating.Games(),
	})
}

// History handles GET /pvp/me/history.
func (h *PvPHandler) History(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	results, err := h.service.History(r.Context(), playerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load match history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, results)
}

// RankHistory handles GET /pvp/me/rank-history.
func (h *PvPHandler) RankHistory(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	changes, err := h.service.RankHistory(r.Context(), playerID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load rank history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, changes)
}

// Leaderboard handles GET /pvp/leaderboard.
func (h *PvPHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load leaderboard")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entries)
}

// PlayerRank handles GET /pvp/players/{id}/rank.
func (h *PvPHandler) PlayerRank(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathInt64(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	nearby, ok := queryInt(w, r, "nearby", defaultNearby)
	if !ok {
		return
	}
	view, err := h.service.PlayerRank(r.Context(), playerID, nearby)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load player rank")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// Tiers handles GET /pvp/tiers.
func (h *PvPHandler) Tiers(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.service.Tiers())
}

// TierDistribution handles GET /pvp/tiers/distribution.
func (h *PvPHandler) TierDistribution(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.TierDistribution(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load tier distribution")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, counts)
}

// Bots handles GET /pvp/bots.
func (h *PvPHandler) Bots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.service.Bots(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load bots")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, bots)
}

// CurrentSeason handles GET /pvp/seasons/current.
func (h *PvPHandler) CurrentSeason(w http.ResponseWriter, r *http.Request) {
	season, err := h.service.CurrentSeason(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load season")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, season)
}

// SeasonRewards handles GET /pvp/seasons/{id}/rewards.
func (h *PvPHandler) SeasonRewards(w http.ResponseWriter, r *http.Request) {
	seasonID, err := pathString(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rewards, err := h.service.SeasonRewards(r.Context(), seasonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load season rewards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rewards)
}

// ClaimReward handles POST /pvp/seasons/{id}/claim.
func (h *PvPHandler) ClaimReward(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayerID(w, r)
	if !ok {
		return
	}
	seasonID, err := pathString(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	reward, err := h.service.ClaimReward(r.Context(), seasonID, playerID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to claim reward")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, reward)
}

// Standings handles GET /pvp/seasons/{id}/standings.xlsx.
func (h *PvPHandler) Standings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := pathString(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	season, err := h.service.Season(r.Context(), seasonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load season")
		return
	}
	records, err := h.service.Standings(r.Context(), seasonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load standings")
		return
	}

	h.writeSpreadsheet(w, r, season.ID+"-standings.xlsx", func(out io.Writer) error {
		return export.WriteStandings(out, season, records)
	})
}

// LeaderboardExport handles GET /pvp/leaderboard.xlsx.
func (h *PvPHandler) LeaderboardExport(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load leaderboard")
		return
	}
	now := time.Now().UTC()
	h.writeSpreadsheet(w, r, "leaderboard-"+now.Format("20060102")+".xlsx", func(out io.Writer) error {
		return export.WriteLeaderboard(out, entries, now)
	})
}

// writeSpreadsheet renders into memory first so a failure can still produce a JSON error.
func (h *PvPHandler) writeSpreadsheet(w http.ResponseWriter, r *http.Request, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		HandleAPIError(w, r, err, "Failed to render spreadsheet")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to write spreadsheet",
			slog.String("file", filename),
			slog.String("error", err.Error()))
	}
}

// StartSeason handles POST /pvp/seasons.
func (h *PvPHandler) StartSeason(w http.ResponseWriter, r *http.Request) {
	var req StartSeasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	season, err := h.service.StartSeason(r.Context(), req.ID, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start season")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("season started by admin",
		slog.String("season_id", season.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, season)
}

// EndSeason handles POST /pvp/seasons/{id}/end.
func (h *PvPHandler) EndSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, err := pathString(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	summary, err := h.service.EndSeason(r.Context(), seasonID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to end season")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// SoftReset handles POST /pvp/ratings/soft-reset.
func (h *PvPHandler) SoftReset(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SoftReset(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset ratings")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SoftResetResponse{Players: n})
}
