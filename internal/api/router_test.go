package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/api/shared"
	"github.com/phrazzld/certquest-api/internal/config"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/srs"
	"github.com/phrazzld/certquest-api/internal/export"
	"github.com/phrazzld/certquest-api/internal/platform/logger"
	"github.com/phrazzld/certquest-api/internal/service/auth"
	"github.com/phrazzld/certquest-api/internal/service/learner"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/phrazzld/certquest-api/internal/service/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type harness struct {
	router  http.Handler
	review  *mockReviewService
	learner *mockLearnerService
	pvp     *mockPvPService
	health  error

	learnerToken string
	playerToken  string
	adminToken   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	jwtSvc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            strings.Repeat("k", 32),
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	token := func(id auth.Identity) string {
		tok, err := jwtSvc.GenerateToken(context.Background(), id)
		require.NoError(t, err)
		return tok
	}

	log, _ := logger.NewTestLogger()
	h := &harness{
		review:       &mockReviewService{},
		learner:      &mockLearnerService{},
		pvp:          &mockPvPService{},
		learnerToken: token(auth.Identity{UserID: "u1"}),
		playerToken:  token(auth.Identity{PlayerID: 42}),
		adminToken:   token(auth.Identity{PlayerID: 1, Role: auth.RoleAdmin}),
	}
	h.router = NewRouter(RouterConfig{
		Review:  NewReviewHandler(h.review, log),
		Learner: NewLearnerHandler(h.learner, log),
		PvP:     NewPvPHandler(h.pvp, log),
		JWT:     jwtSvc,
		Logger:  log,
		Health:  func(context.Context) error { return h.health },
	})

	t.Cleanup(func() {
		h.review.AssertExpectations(t)
		h.learner.AssertExpectations(t)
		h.pvp.AssertExpectations(t)
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(shared.TraceIDHeader))

	h.health = errors.New("redis down")
	w = h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReviewRoutes_DueCards(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	card, err := domain.NewMemoryCard("u1", "Q1", "CERT001", time.Now().UTC())
	require.NoError(t, err)
	h.review.On("DueCards", mock.Anything, "u1", "CERT001", 5).Return([]*domain.MemoryCard{card}, nil)

	w := h.do(t, http.MethodGet, "/api/review/cards/due?collection=CERT001&limit=5", h.learnerToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var cards []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Len(t, cards, 1)
}

func TestReviewRoutes_Auth(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/api/review/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/api/review/stats", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A player-only token carries no learner identity.
	w = h.do(t, http.MethodGet, "/api/review/stats", h.playerToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewRoutes_Review(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	now := time.Now().UTC()
	before, err := domain.NewMemoryCard("u1", "Q1", "CERT001", now)
	require.NoError(t, err)
	after := before.Clone()
	after.Repetitions = 1
	h.review.On("Review", mock.Anything, "u1", "Q1", 4).
		Return(&review.ReviewResult{Card: after, Before: before}, nil)
	h.review.On("Review", mock.Anything, "u1", "Q1", 7).
		Return(nil, fmt.Errorf("review: %w", srs.ErrInvalidQuality))

	w := h.do(t, http.MethodPost, "/api/review/cards/Q1/review", h.learnerToken, `{"quality": 4}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result review.ReviewResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Card.Repetitions)
	assert.Equal(t, 0, result.Before.Repetitions)

	w = h.do(t, http.MethodPost, "/api/review/cards/Q1/review", h.learnerToken, `{"quality": 7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Quality must be between 0 and 5", errorBody(t, w).Error)

	w = h.do(t, http.MethodPost, "/api/review/cards/Q1/review", h.learnerToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid Quality: required field", errorBody(t, w).Error)

	w = h.do(t, http.MethodPost, "/api/review/cards/Q1/review", h.learnerToken, `{"quality": "high"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReviewRoutes_DeckAndCards(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.review.On("AddToDeck", mock.Anything, "u1", "CERT001", defaultDeckBatch).Return(3, nil)
	h.review.On("DeleteCard", mock.Anything, "u1", "Q9").Return(review.ErrCardNotFound)
	h.review.On("DeleteCard", mock.Anything, "u1", "Q1").Return(nil)
	h.review.On("PredictRetention", mock.Anything, "u1", "Q1", 2.5).
		Return(&review.RetentionPrediction{ItemID: "Q1", Retention: 71.3}, nil)
	h.review.On("Schedule", mock.Anything, "u1", "", 120).
		Return(nil, fmt.Errorf("%w: 120 exceeds 90", review.ErrInvalidDays))
	h.review.On("Schedule", mock.Anything, "u1", "CERT001", 3).
		Return([]review.ScheduleDay{{Date: "2025-06-02", Count: 2}}, nil)
	h.review.On("RetentionStats", mock.Anything, "u1", "CERT001").
		Return(&review.RetentionStats{TotalCards: 4, MasteredCards: 1, MasteryRate: 25}, nil)

	w := h.do(t, http.MethodPost, "/api/review/cards", h.learnerToken, `{"certification": "CERT001"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"added":3}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/review/cards", h.learnerToken, `{"certification": "CERT001", "limit": 500}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodDelete, "/api/review/cards/Q9", h.learnerToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Card not found", errorBody(t, w).Error)

	w = h.do(t, http.MethodDelete, "/api/review/cards/Q1", h.learnerToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodGet, "/api/review/cards/Q1/retention?days_ahead=2.5", h.learnerToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/api/review/cards/Q1/retention?days_ahead=soon", h.learnerToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/api/review/schedule?days=120", h.learnerToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/api/review/schedule?days=3&collection=CERT001", h.learnerToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"date":"2025-06-02","count":2}]`, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/review/stats?collection=CERT001", h.learnerToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_cards":4`)
}

func TestLearnerRoutes(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	q := &domain.Question{ID: "Q3", Certification: "CERT001", Domain: "networking", Difficulty: 3}
	h.learner.On("SelectQuestion", mock.Anything, "u1", "CERT001", domain.StrategyChallenge, []string{"Q1", "Q2"}).
		Return(&learner.Selection{Question: q, TargetDifficulty: 3, ExpectedAccuracy: 0.62, Score: 1}, nil)
	h.learner.On("SelectQuestion", mock.Anything, "u1", "CERT404", domain.StrategyBalanced, []string(nil)).
		Return(nil, learner.ErrNoCandidates)
	h.learner.On("RecordAnswer", mock.Anything, "u1", "CERT001", "Q3", true, 1200).
		Return(&learner.AnswerResult{Profile: domain.NewLearnerProfile("u1", "CERT001"), AbilityChange: 0.04}, nil)

	w := h.do(t, http.MethodGet, "/api/learn/CERT001/next?strategy=challenge&exclude=Q1,Q2", h.learnerToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sel learner.Selection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sel))
	assert.Equal(t, "Q3", sel.Question.ID)

	w = h.do(t, http.MethodGet, "/api/learn/CERT001/next?strategy=random", h.learnerToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid strategy", errorBody(t, w).Error)

	w = h.do(t, http.MethodGet, "/api/learn/CERT404/next", h.learnerToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodPost, "/api/learn/CERT001/answers", h.learnerToken,
		`{"question_id": "Q3", "correct": true, "response_time_ms": 1200}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/api/learn/CERT001/answers", h.learnerToken, `{"question_id": "Q3"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPvPRoutes_Queue(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.pvp.On("JoinQueue", mock.Anything, int64(42), (*int)(nil)).
		Return(&pvp.QueueTicket{PlayerID: 42, Rating: 1200, SearchRadius: 200}, nil).Once()
	h.pvp.On("JoinQueue", mock.Anything, int64(42), mock.MatchedBy(func(r *int) bool { return r != nil && *r == 1500 })).
		Return(nil, pvp.ErrAlreadyQueued).Once()
	h.pvp.On("FindMatch", mock.Anything, int64(42)).Return(nil, nil).Once()
	h.pvp.On("LeaveQueue", mock.Anything, int64(42)).Return(pvp.ErrNotQueued).Once()
	h.pvp.On("QueueStatus", mock.Anything).Return(&pvp.QueueStatus{Size: 1, AverageRating: 1200, EstimatedWait: 25}, nil)

	w := h.do(t, http.MethodPost, "/api/pvp/queue", h.playerToken, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/queue", h.playerToken, `{"rating": 1500}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Player already in queue", errorBody(t, w).Error)

	w = h.do(t, http.MethodPost, "/api/pvp/queue/match", h.playerToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"matched":false}`, w.Body.String())

	w = h.do(t, http.MethodDelete, "/api/pvp/queue", h.playerToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/queue/status", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Learner-only tokens cannot queue.
	w = h.do(t, http.MethodPost, "/api/pvp/queue", h.learnerToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPvPRoutes_SubmitResult(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	battle := uuid.New()
	other := uuid.New()
	h.pvp.On("SubmitResult", mock.Anything, battle, int64(42), true).
		Return(&pvp.BattleOutcome{BattleID: battle, PlayerID: 42, Won: true, RatingBefore: 1200, RatingAfter: 1216, RatingChange: 16}, nil)
	h.pvp.On("SubmitResult", mock.Anything, other, int64(42), false).Return(nil, pvp.ErrNotParticipant)

	w := h.do(t, http.MethodPost, "/api/pvp/battles/"+battle.String()+"/result", h.playerToken, `{"won": true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var outcome pvp.BattleOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, 16, outcome.RatingChange)

	w = h.do(t, http.MethodPost, "/api/pvp/battles/"+other.String()+"/result", h.playerToken, `{"won": false}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/battles/not-a-uuid/result", h.playerToken, `{"won": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id: has invalid format", errorBody(t, w).Error)
}

func TestPvPRoutes_PlayerViews(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.pvp.On("GetRating", mock.Anything, int64(42)).
		Return(&domain.PlayerRating{PlayerID: 42, Rating: 1450, Wins: 3, Losses: 1}, nil)
	h.pvp.On("History", mock.Anything, int64(42), 10).Return([]*domain.BattleResult{}, nil)
	h.pvp.On("PlayerRank", mock.Anything, int64(7), defaultNearby).Return(nil, pvp.ErrPlayerNotRanked)
	h.pvp.On("Tiers").Return(domain.Tiers())

	w := h.do(t, http.MethodGet, "/api/pvp/me", h.playerToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, string(domain.TierGold), me["tier"])
	assert.EqualValues(t, 4, me["games"])
	assert.EqualValues(t, 1450, me["rating"])

	w = h.do(t, http.MethodGet, "/api/pvp/me/history?limit=10", h.playerToken, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/me/history?limit=ten", h.playerToken, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/players/7/rank", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/players/-3/rank", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/tiers", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tiers []domain.TierThreshold
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tiers))
	assert.Len(t, tiers, len(domain.Tiers()))
}

func TestPvPRoutes_Seasons(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	started := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	season := &domain.Season{ID: "S1", Name: "Season One", Status: domain.SeasonActive, StartedAt: started}
	h.pvp.On("StartSeason", mock.Anything, "S1", "Season One").Return(season, nil)
	h.pvp.On("EndSeason", mock.Anything, "S1").Return(nil, pvp.ErrDuplicateTransition)
	h.pvp.On("SoftReset", mock.Anything).Return(12, nil)
	h.pvp.On("ClaimReward", mock.Anything, "S1", int64(42)).Return(nil, pvp.ErrAlreadyClaimed)
	h.pvp.On("CurrentSeason", mock.Anything).Return(nil, pvp.ErrNoActiveSeason)

	body := `{"id": "S1", "name": "Season One"}`
	w := h.do(t, http.MethodPost, "/api/pvp/seasons", h.playerToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/seasons", h.adminToken, body)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/seasons", h.adminToken, `{"name": "no id"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/seasons/S1/end", h.adminToken, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodPost, "/api/pvp/ratings/soft-reset", h.adminToken, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"players":12}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/pvp/seasons/S1/claim", h.playerToken, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, http.MethodGet, "/api/pvp/seasons/current", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No active season", errorBody(t, w).Error)
}

func TestPvPRoutes_StandingsExport(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	ended := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	season := &domain.Season{ID: "S1", Name: "Season One", Status: domain.SeasonEnded, EndedAt: &ended}
	records := []*domain.SeasonRecord{
		{SeasonID: "S1", PlayerID: 1, FinalRating: 1516, FinalTier: domain.TierSilver, Wins: 1},
	}
	h.pvp.On("Season", mock.Anything, "S1").Return(season, nil)
	h.pvp.On("Standings", mock.Anything, "S1").Return(records, nil)
	h.pvp.On("Season", mock.Anything, "S404").Return(nil, pvp.ErrSeasonNotFound)

	w := h.do(t, http.MethodGet, "/api/pvp/seasons/S1/standings.xlsx", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "S1-standings.xlsx")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")

	w = h.do(t, http.MethodGet, "/api/pvp/seasons/S404/standings.xlsx", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPvPRoutes_LeaderboardExport(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	entries := []pvp.LeaderboardEntry{
		{Rank: 1, PlayerID: 7, Rating: 2210, Tier: domain.TierGrandmaster, Wins: 40, Losses: 3},
	}
	h.pvp.On("Leaderboard", mock.Anything, 10).Return(entries, nil)

	w := h.do(t, http.MethodGet, "/api/pvp/leaderboard.xlsx?limit=10", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "leaderboard-")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}
