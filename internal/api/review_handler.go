package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/certquest-api/internal/api/shared"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/service/review"
)

// defaultDeckBatch is used when POST /review/cards omits a limit.
const defaultDeckBatch = 20

// ReviewHandler serves the spaced-repetition routes.
type ReviewHandler struct {
	service review.Service
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service review.Service, logger *slog.Logger) *ReviewHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		service: service,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// DueCards handles GET /review/cards/due.
func (h *ReviewHandler) DueCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	cards, err := h.service.DueCards(r.Context(), userID, r.URL.Query().Get("collection"), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load due cards")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, cards)
}

// AddToDeck handles POST /review/cards.
func (h *ReviewHandler) AddToDeck(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req AddToDeckRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultDeckBatch
	}

	added, err := h.service.AddToDeck(r.Context(), userID, req.Certification, req.Limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add cards")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("cards added to deck",
		slog.String("certification", req.Certification),
		slog.Int("added", added))
	shared.RespondWithJSON(w, r, http.StatusCreated, AddToDeckResponse{Added: added})
}

// Review handles POST /review/cards/{item}/review.
func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, err := pathString(r, "item")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req ReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Review(r.Context(), userID, itemID, *req.Quality)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record review")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// DeleteCard handles DELETE /review/cards/{item}.
func (h *ReviewHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, err := pathString(r, "item")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.service.DeleteCard(r.Context(), userID, itemID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Schedule handles GET /review/schedule.
func (h *ReviewHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days", 0)
	if !ok {
		return
	}

	schedule, err := h.service.Schedule(r.Context(), userID, r.URL.Query().Get("collection"), days)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build schedule")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, schedule)
}

// Stats handles GET /review/stats.
func (h *ReviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.RetentionStats(r.Context(), userID, r.URL.Query().Get("collection"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load review stats")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// Retention handles GET /review/cards/{item}/retention.
func (h *ReviewHandler) Retention(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, err := pathString(r, "item")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	daysAhead, err := shared.QueryFloat(r, "days_ahead", 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid days_ahead", err)
		return
	}

	prediction, err := h.service.PredictRetention(r.Context(), userID, itemID, daysAhead)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to predict retention")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, prediction)
}
