package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/service/learner"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/phrazzld/certquest-api/internal/service/review"
	"github.com/stretchr/testify/mock"
)

// get returns args.Get(i) as T, or the zero value when it is nil.
func get[T any](args mock.Arguments, i int) T {
	var zero T
	if v := args.Get(i); v != nil {
		return v.(T)
	}
	return zero
}

type mockReviewService struct{ mock.Mock }

var _ review.Service = (*mockReviewService)(nil)

func (m *mockReviewService) GetOrCreateCard(ctx context.Context, userID, itemID, collection string) (*domain.MemoryCard, error) {
	args := m.Called(ctx, userID, itemID, collection)
	return get[*domain.MemoryCard](args, 0), args.Error(1)
}

func (m *mockReviewService) Review(ctx context.Context, userID, itemID string, quality int) (*review.ReviewResult, error) {
	args := m.Called(ctx, userID, itemID, quality)
	return get[*review.ReviewResult](args, 0), args.Error(1)
}

func (m *mockReviewService) DueCards(ctx context.Context, userID, collection string, limit int) ([]*domain.MemoryCard, error) {
	args := m.Called(ctx, userID, collection, limit)
	return get[[]*domain.MemoryCard](args, 0), args.Error(1)
}

func (m *mockReviewService) Schedule(ctx context.Context, userID, collection string, days int) ([]review.ScheduleDay, error) {
	args := m.Called(ctx, userID, collection, days)
	return get[[]review.ScheduleDay](args, 0), args.Error(1)
}

func (m *mockReviewService) RetentionStats(
	ctx context.Context,
	userID, collection string,
) (*review.RetentionStats, error) {
	args := m.Called(ctx, userID, collection)
	return get[*review.RetentionStats](args, 0), args.Error(1)
}

func (m *mockReviewService) AddToDeck(ctx context.Context, userID, certification string, limit int) (int, error) {
	args := m.Called(ctx, userID, certification, limit)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewService) PredictRetention(
	ctx context.Context,
	userID, itemID string,
	daysAhead float64,
) (*review.RetentionPrediction, error) {
	args := m.Called(ctx, userID, itemID, daysAhead)
	return get[*review.RetentionPrediction](args, 0), args.Error(1)
}

func (m *mockReviewService) DeleteCard(ctx context.Context, userID, itemID string) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

type mockLearnerService struct{ mock.Mock }

var _ learner.Service = (*mockLearnerService)(nil)

func (m *mockLearnerService) GetProfile(ctx context.Context, userID, certification string) (*domain.LearnerProfile, error) {
	args := m.Called(ctx, userID, certification)
	return get[*domain.LearnerProfile](args, 0), args.Error(1)
}

func (m *mockLearnerService) SelectQuestion(
	ctx context.Context,
	userID, certification string,
	strategy domain.Strategy,
	excludeIDs []string,
) (*learner.Selection, error) {
	args := m.Called(ctx, userID, certification, strategy, excludeIDs)
	return get[*learner.Selection](args, 0), args.Error(1)
}

func (m *mockLearnerService) RecordAnswer(
	ctx context.Context,
	userID, certification, questionID string,
	correct bool,
	responseTimeMs int,
) (*learner.AnswerResult, error) {
	args := m.Called(ctx, userID, certification, questionID, correct, responseTimeMs)
	return get[*learner.AnswerResult](args, 0), args.Error(1)
}

func (m *mockLearnerService) Stats(ctx context.Context, userID, certification string) (*learner.Stats, error) {
	args := m.Called(ctx, userID, certification)
	return get[*learner.Stats](args, 0), args.Error(1)
}

type mockPvPService struct{ mock.Mock }

var _ PvPService = (*mockPvPService)(nil)

func (m *mockPvPService) JoinQueue(ctx context.Context, playerID int64, rating *int) (*pvp.QueueTicket, error) {
	args := m.Called(ctx, playerID, rating)
	return get[*pvp.QueueTicket](args, 0), args.Error(1)
}

func (m *mockPvPService) LeaveQueue(ctx context.Context, playerID int64) error {
	return m.Called(ctx, playerID).Error(0)
}

func (m *mockPvPService) FindMatch(ctx context.Context, playerID int64) (*domain.Match, error) {
	args := m.Called(ctx, playerID)
	return get[*domain.Match](args, 0), args.Error(1)
}

func (m *mockPvPService) QueueStatus(ctx context.Context) (*pvp.QueueStatus, error) {
	args := m.Called(ctx)
	return get[*pvp.QueueStatus](args, 0), args.Error(1)
}

func (m *mockPvPService) SubmitResult(
	ctx context.Context,
	battleID uuid.UUID,
	playerID int64,
	won bool,
) (*pvp.BattleOutcome, error) {
	args := m.Called(ctx, battleID, playerID, won)
	return get[*pvp.BattleOutcome](args, 0), args.Error(1)
}

func (m *mockPvPService) GetRating(ctx context.Context, playerID int64) (*domain.PlayerRating, error) {
	args := m.Called(ctx, playerID)
	return get[*domain.PlayerRating](args, 0), args.Error(1)
}

func (m *mockPvPService) History(ctx context.Context, playerID int64, limit int) ([]*domain.BattleResult, error) {
	args := m.Called(ctx, playerID, limit)
	return get[[]*domain.BattleResult](args, 0), args.Error(1)
}

func (m *mockPvPService) RankHistory(ctx context.Context, playerID int64, limit int) ([]*domain.RankChange, error) {
	args := m.Called(ctx, playerID, limit)
	return get[[]*domain.RankChange](args, 0), args.Error(1)
}

func (m *mockPvPService) CurrentSeason(ctx context.Context) (*domain.Season, error) {
	args := m.Called(ctx)
	return get[*domain.Season](args, 0), args.Error(1)
}

func (m *mockPvPService) Season(ctx context.Context, id string) (*domain.Season, error) {
	args := m.Called(ctx, id)
	return get[*domain.Season](args, 0), args.Error(1)
}

func (m *mockPvPService) StartSeason(ctx context.Context, id, name string) (*domain.Season, error) {
	args := m.Called(ctx, id, name)
	return get[*domain.Season](args, 0), args.Error(1)
}

func (m *mockPvPService) EndSeason(ctx context.Context, id string) (*pvp.SeasonSummary, error) {
	args := m.Called(ctx, id)
	return get[*pvp.SeasonSummary](args, 0), args.Error(1)
}

func (m *mockPvPService) SoftReset(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockPvPService) SeasonRewards(ctx context.Context, seasonID string) ([]domain.Reward, error) {
	args := m.Called(ctx, seasonID)
	return get[[]domain.Reward](args, 0), args.Error(1)
}

func (m *mockPvPService) ClaimReward(ctx context.Context, seasonID string, playerID int64) (*domain.Reward, error) {
	args := m.Called(ctx, seasonID, playerID)
	return get[*domain.Reward](args, 0), args.Error(1)
}

func (m *mockPvPService) Standings(ctx context.Context, seasonID string) ([]*domain.SeasonRecord, error) {
	args := m.Called(ctx, seasonID)
	return get[[]*domain.SeasonRecord](args, 0), args.Error(1)
}

func (m *mockPvPService) Leaderboard(ctx context.Context, limit int) ([]pvp.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	return get[[]pvp.LeaderboardEntry](args, 0), args.Error(1)
}

func (m *mockPvPService) PlayerRank(ctx context.Context, playerID int64, nearby int) (*pvp.PlayerRankView, error) {
	args := m.Called(ctx, playerID, nearby)
	return get[*pvp.PlayerRankView](args, 0), args.Error(1)
}

func (m *mockPvPService) TierDistribution(ctx context.Context) ([]pvp.TierCount, error) {
	args := m.Called(ctx)
	return get[[]pvp.TierCount](args, 0), args.Error(1)
}

func (m *mockPvPService) Bots(ctx context.Context) ([]*domain.Bot, error) {
	args := m.Called(ctx)
	return get[[]*domain.Bot](args, 0), args.Error(1)
}

func (m *mockPvPService) Tiers() []domain.TierThreshold {
	return get[[]domain.TierThreshold](m.Called(), 0)
}
