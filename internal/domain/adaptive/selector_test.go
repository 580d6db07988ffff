package adaptive

import (
	"math"
	"math/rand"
	"testing"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStrategies = []domain.Strategy{
	domain.StrategyBalanced,
	domain.StrategyChallenge,
	domain.StrategyReview,
	domain.StrategyWeakFocus,
}

func TestTargetDifficulty(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name     string
		ability  float64
		momentum float64
		strategy domain.Strategy
		want     int
	}{
		{"balanced midpoint", 0.5, 0, domain.StrategyBalanced, 3},
		{"balanced positive momentum", 0.5, 0.31, domain.StrategyBalanced, 4},
		{"balanced negative momentum", 0.5, -0.5, domain.StrategyBalanced, 2},
		{"balanced at threshold", 0.5, 0.3, domain.StrategyBalanced, 3},
		{"challenge caps at five", 1.0, 0, domain.StrategyChallenge, 5},
		{"challenge steps up", 0.3, 0, domain.StrategyChallenge, 3},
		{"review floors at one", 0.0, 0, domain.StrategyReview, 1},
		{"weak focus steps down", 0.8, 0, domain.StrategyWeakFocus, 4},
		{"balanced low ability negative momentum", 0.1, -1, domain.StrategyBalanced, 1},
		{"balanced full ability positive momentum", 1.0, 1, domain.StrategyBalanced, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := domain.NewLearnerProfile("u", "c")
			p.Ability = tc.ability
			p.Momentum = tc.momentum
			assert.Equal(t, tc.want, TargetDifficulty(p, tc.strategy, params))
		})
	}
}

func TestTargetDifficulty_AlwaysInRange(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		p := domain.NewLearnerProfile("u", "c")
		p.Ability = rng.Float64()
		p.Momentum = rng.Float64()*2 - 1
		for _, s := range allStrategies {
			d := TargetDifficulty(p, s, params)
			require.GreaterOrEqual(t, d, domain.MinDifficulty)
			require.LessOrEqual(t, d, domain.MaxDifficulty)
		}
	}
}

func TestDifficultyRange(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	lo, hi := DifficultyRange(1, params)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 2, hi)

	lo, hi = DifficultyRange(5, params)
	assert.Equal(t, 4, lo)
	assert.Equal(t, 5, hi)
}

func TestPredictCorrect(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, PredictCorrect(0.6, 3), 1e-9)
	assert.InDelta(t, 1/(1+math.Exp(0.5)), PredictCorrect(0.5, 3), 1e-9)
	assert.Greater(t, PredictCorrect(0.9, 1), PredictCorrect(0.9, 5))
}

func TestScoreCandidate(t *testing.T) {
	t.Parallel()

	p := domain.NewLearnerProfile("u", "c")
	p.DomainAbilities = map[string]float64{"net": 0.2, "sec": 0.9}
	p.WeakDomains = []string{"net"}
	p.StrongDomains = []string{"sec"}

	testCases := []struct {
		name       string
		difficulty int
		domain     string
		target     int
		strategy   domain.Strategy
		want       float64
	}{
		{"exact match balanced", 3, "ops", 3, domain.StrategyBalanced, 1.0},
		{"one step away", 4, "ops", 3, domain.StrategyBalanced, 0.8},
		{"four steps away", 1, "ops", 5, domain.StrategyBalanced, 0.2},
		{"weak focus on weak domain", 3, "net", 3, domain.StrategyWeakFocus, 2.0 * 1.3},
		{"weak focus on strong domain", 3, "sec", 3, domain.StrategyWeakFocus, 0.5 * 0.6},
		{"weak focus on unseen domain", 3, "ops", 3, domain.StrategyWeakFocus, 1.0},
		{"review favours strong domain", 3, "sec", 3, domain.StrategyReview, 1.5},
		{"review ignores weak domain", 3, "net", 3, domain.StrategyReview, 1.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreCandidate(p, tc.difficulty, tc.domain, tc.target, tc.strategy)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestScoreCandidate_NeverNegative(t *testing.T) {
	t.Parallel()

	p := domain.NewLearnerProfile("u", "c")
	p.DomainAbilities = map[string]float64{"x": 1.0}
	for d := 1; d <= 5; d++ {
		for target := 1; target <= 5; target++ {
			for _, s := range allStrategies {
				assert.GreaterOrEqual(t, ScoreCandidate(p, d, "x", target, s), 0.0)
			}
		}
	}
	assert.Zero(t, ScoreCandidate(p, 0, "x", 10, domain.StrategyBalanced))
}

func TestRecordOutcome_CorrectAnswer(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	p := domain.NewLearnerProfile("u", "c")
	next := RecordOutcome(p, 3, "net", true, params)

	expected := PredictCorrect(0.5, 3)
	assert.InDelta(t, 0.5+(1-expected)*0.1, next.Ability, 1e-9)
	assert.InDelta(t, 0.3, next.Momentum, 1e-9)
	assert.InDelta(t, 0.5+(1-expected)*0.15, next.DomainAbilities["net"], 1e-9)
	assert.Equal(t, []bool{true}, next.RecentOutcomes)
	assert.Equal(t, 0.5, next.Stability, "stability needs five outcomes")

	assert.Equal(t, 0.5, p.Ability, "input profile must not change")
	assert.Empty(t, p.RecentOutcomes)
	assert.Empty(t, p.DomainAbilities)
}

func TestRecordOutcome_StabilityAndWindow(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	p := domain.NewLearnerProfile("u", "c")
	for i := 0; i < 25; i++ {
		p = RecordOutcome(p, 2, "net", true, params)
	}
	assert.Len(t, p.RecentOutcomes, params.WindowSize)
	assert.Equal(t, 1.0, p.Stability, "all-correct window has zero variance")

	for i := 0; i < 5; i++ {
		p = RecordOutcome(p, 2, "net", i%2 == 0, params)
	}
	// last ten: five trues then T F T F T -> mean 0.8, variance 0.16
	assert.InDelta(t, 1-0.16*4, p.Stability, 1e-9)
	assert.Len(t, p.RecentOutcomes, params.WindowSize)
}

func TestRecordOutcome_ClassifiesDomains(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	p := domain.NewLearnerProfile("u", "c")
	for i := 0; i < 40; i++ {
		p = RecordOutcome(p, 1, "net", false, params)
		p = RecordOutcome(p, 5, "sec", true, params)
	}

	assert.Contains(t, p.WeakDomains, "net")
	assert.Contains(t, p.StrongDomains, "sec")
	assert.NotContains(t, p.StrongDomains, "net")
}

func TestRecordOutcome_BoundsFuzz(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	rng := rand.New(rand.NewSource(2024))
	domains := []string{"a", "b", "c", ""}

	for seq := 0; seq < 10000; seq++ {
		p := domain.NewLearnerProfile("u", "c")
		p.Ability = rng.Float64()
		p.Momentum = rng.Float64()*2 - 1
		steps := 1 + rng.Intn(30)
		for i := 0; i < steps; i++ {
			p = RecordOutcome(p, 1+rng.Intn(5), domains[rng.Intn(len(domains))], rng.Intn(2) == 0, params)
		}

		require.GreaterOrEqual(t, p.Ability, 0.0)
		require.LessOrEqual(t, p.Ability, 1.0)
		require.GreaterOrEqual(t, p.Stability, 0.0)
		require.LessOrEqual(t, p.Stability, 1.0)
		require.GreaterOrEqual(t, p.Momentum, -1.0)
		require.LessOrEqual(t, p.Momentum, 1.0)
		require.LessOrEqual(t, len(p.RecentOutcomes), params.WindowSize)
		for _, v := range p.DomainAbilities {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 1.0)
		}
		require.NoError(t, p.Validate())
	}
}

func TestSelectionReason(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	p := domain.NewLearnerProfile("u", "c")
	q := &domain.Question{ID: "Q1", Certification: "c", Domain: "net", Difficulty: 3}

	assert.Equal(t, "balanced selection (difficulty 3)", SelectionReason(p, q, domain.StrategyBalanced, params))
	assert.Equal(t, "challenge mode: raised difficulty", SelectionReason(p, q, domain.StrategyChallenge, params))

	p.WeakDomains = []string{"net"}
	p.Momentum = -0.6
	assert.Equal(t,
		"strengthening weak domain net; recent misses: lowering difficulty",
		SelectionReason(p, q, domain.StrategyWeakFocus, params))
}

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewDefaultParams().Validate())

	p := NewDefaultParams()
	p.WeakThreshold = 0.9
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = NewDefaultParams()
	p.StabilityWindow = 30
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}
