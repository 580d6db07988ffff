package learner

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/phrazzld/certquest-api/internal/domain/adaptive"
	"github.com/phrazzld/certquest-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bank = []*domain.Question{
	{ID: "Q1", Certification: "CERT001", Domain: "net", Difficulty: 1},
	{ID: "Q2", Certification: "CERT001", Domain: "net", Difficulty: 3},
	{ID: "Q3", Certification: "CERT001", Domain: "sec", Difficulty: 4},
	{ID: "Q4", Certification: "CERT002", Domain: "net", Difficulty: 3},
	{ID: "Q5", Certification: "CERT001", Domain: "ops", Difficulty: 5},
}

type fixture struct {
	svc      Service
	profiles *testutils.LearnerProfileStore
	events   *testutils.LearningEventStore
}

func newFixture(t *testing.T, questions ...*domain.Question) *fixture {
	t.Helper()
	f := &fixture{
		profiles: testutils.NewLearnerProfileStore(),
		events:   testutils.NewLearningEventStore(),
	}
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(f.profiles, f.events, testutils.NewQuestionStore(nil, questions...),
		testutils.NewTransactor(), nil, testutils.DiscardLogger(),
		WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestGetProfile_DefaultsWhenMissing(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)

	p, err := f.svc.GetProfile(context.Background(), "u1", "CERT001")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAbility, p.Ability)
	assert.Equal(t, domain.DefaultStability, p.Stability)
	assert.Zero(t, p.Momentum)
}

func TestSelectQuestion_Balanced(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)
	ctx := context.Background()

	sel, err := f.svc.SelectQuestion(ctx, "u1", "CERT001", domain.StrategyBalanced, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sel.TargetDifficulty)
	assert.Equal(t, "Q2", sel.Question.ID)
	assert.InDelta(t, 0.38, sel.ExpectedAccuracy, 1e-9)
	assert.InDelta(t, 1.0, sel.Score, 1e-9)
	assert.NotEmpty(t, sel.Reason)

	sel, err = f.svc.SelectQuestion(ctx, "u1", "CERT001", domain.StrategyBalanced, []string{"Q2"})
	require.NoError(t, err)
	assert.Equal(t, "Q3", sel.Question.ID)
}

func TestSelectQuestion_NoCandidates(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &domain.Question{ID: "Q9", Certification: "CERT001", Domain: "net", Difficulty: 5})

	_, err := f.svc.SelectQuestion(context.Background(), "u1", "CERT001", domain.StrategyBalanced, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = f.svc.SelectQuestion(context.Background(), "u1", "CERT404", domain.StrategyChallenge, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSelectQuestion_InvalidStrategy(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)

	_, err := f.svc.SelectQuestion(context.Background(), "u1", "CERT001", domain.Strategy("random"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)
}

func TestSelectQuestion_WeakFocusPrefersWeakDomain(t *testing.T) {
	t.Parallel()
	f := newFixture(t,
		&domain.Question{ID: "A", Certification: "CERT001", Domain: "net", Difficulty: 2},
		&domain.Question{ID: "B", Certification: "CERT001", Domain: "sec", Difficulty: 2},
	)
	ctx := context.Background()

	profile := domain.NewLearnerProfile("u1", "CERT001")
	profile.DomainAbilities = map[string]float64{"net": 0.6, "sec": 0.3}
	profile.WeakDomains = []string{"sec"}
	require.NoError(t, f.profiles.Upsert(ctx, profile))

	sel, err := f.svc.SelectQuestion(ctx, "u1", "CERT001", domain.StrategyWeakFocus, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sel.TargetDifficulty)
	assert.Equal(t, "B", sel.Question.ID)
	assert.InDelta(t, 2.4, sel.Score, 1e-9)
	assert.Contains(t, sel.Reason, "weak domain sec")
}

func TestRecordAnswer(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)
	ctx := context.Background()

	res, err := f.svc.RecordAnswer(ctx, "u1", "CERT001", "Q2", true, 4200)
	require.NoError(t, err)
	wantAbility := 0.5 + (1-adaptive.PredictCorrect(0.5, 3))*0.1
	assert.InDelta(t, wantAbility, res.Profile.Ability, 1e-9)
	assert.InDelta(t, wantAbility-0.5, res.AbilityChange, 1e-4)
	assert.InDelta(t, 0.3, res.Profile.Momentum, 1e-9)
	assert.Greater(t, res.Profile.DomainAbility("net"), domain.DefaultDomainAbility)

	res, err = f.svc.RecordAnswer(ctx, "u1", "CERT001", "Q3", false, 9000)
	require.NoError(t, err)
	assert.Negative(t, res.AbilityChange)
	assert.Equal(t, []string{"sec"}, res.Profile.WeakDomains)

	stored, err := f.svc.GetProfile(ctx, "u1", "CERT001")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, stored.RecentOutcomes)

	stats, err := f.svc.Stats(ctx, "u1", "CERT001")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, stats.RecentAccuracy, 1e-9)
	assert.Equal(t, []string{"sec"}, stats.WeakDomains)
	require.Len(t, stats.RecentEvents, 2)
	assert.Equal(t, "Q3", stats.RecentEvents[0].QuestionID)
	assert.Equal(t, 9000, stats.RecentEvents[0].ResponseTimeMs)
	assert.Contains(t, stats.DomainAbilities, "net")
	assert.GreaterOrEqual(t, stats.RecommendedDifficulty, domain.MinDifficulty)
	assert.LessOrEqual(t, stats.RecommendedDifficulty, domain.MaxDifficulty)
}

func TestRecordAnswer_Errors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)
	ctx := context.Background()

	testCases := []struct {
		name       string
		questionID string
		responseMs int
		wantErr    error
	}{
		{"unknown question", "Q404", 100, ErrQuestionNotFound},
		{"other certification", "Q4", 100, ErrCertificationMismatch},
		{"negative response time", "Q2", -1, ErrInvalidResponseTime},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RecordAnswer(ctx, "u1", "CERT001", tc.questionID, true, tc.responseMs)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	events, err := f.events.ListRecent(ctx, "u1", "CERT001", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStats_NewLearner(t *testing.T) {
	t.Parallel()
	f := newFixture(t, bank...)

	stats, err := f.svc.Stats(context.Background(), "u1", "CERT001")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.RecommendedDifficulty)
	assert.Zero(t, stats.RecentAccuracy)
	assert.Empty(t, stats.RecentEvents)
}

func TestNewService_InvalidParams(t *testing.T) {
	t.Parallel()

	params := adaptive.NewDefaultParams()
	params.UpdateRate = 0
	_, err := NewService(testutils.NewLearnerProfileStore(), testutils.NewLearningEventStore(),
		testutils.NewQuestionStore(nil), testutils.NewTransactor(), params, nil)
	assert.ErrorIs(t, err, adaptive.ErrInvalidParams)
}
