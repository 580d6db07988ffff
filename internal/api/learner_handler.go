package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/certquest-api/internal/api/shared"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/service/learner"
)

// maxExcluded bounds the exclude list of GET /learn/{cert}/next.
const maxExcluded = 200

// LearnerHandler serves the adaptive question routes.
type LearnerHandler struct {
	service learner.Service
	logger  *slog.Logger
}

// NewLearnerHandler creates a new LearnerHandler.
func NewLearnerHandler(service learner.Service, logger *slog.Logger) *LearnerHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("learner service cannot be nil for LearnerHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LearnerHandler{
		service: service,
		logger:  logger.With(slog.String("component", "learner_handler")),
	}
}

// NextQuestion handles GET /learn/{cert}/next.
func (h *LearnerHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	cert, err := pathString(r, "cert")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	strategy, err := domain.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	exclude := queryList(r, "exclude")
	if len(exclude) > maxExcluded {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Too many excluded questions")
		return
	}

	selection, err := h.service.SelectQuestion(r.Context(), userID, cert, strategy, exclude)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to select question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, selection)
}

// RecordAnswer handles POST /learn/{cert}/answers.
func (h *LearnerHandler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	cert, err := pathString(r, "cert")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	var req AnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.RecordAnswer(r.Context(), userID, cert, req.QuestionID, *req.Correct, req.ResponseTimeMs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record answer")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Stats handles GET /learn/{cert}/stats.
func (h *LearnerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	cert, err := pathString(r, "cert")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	stats, err := h.service.Stats(r.Context(), userID, cert)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load learner stats")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
