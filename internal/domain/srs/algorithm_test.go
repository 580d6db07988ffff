package srs

import (
	"math/rand"
	"testing"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCard(t *testing.T, now time.Time) *domain.MemoryCard {
	t.Helper()
	card, err := domain.NewMemoryCard("learner", "Q001", "CERT001", now)
	require.NoError(t, err)
	return card
}

func TestCalculateNewEasiness(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		quality int
		want    float64
	}{
		{5, 2.6},
		{4, 2.5},
		{3, 2.36},
		{2, 2.18},
		{1, 1.96},
		{0, 1.7},
	}

	for _, tc := range testCases {
		got := calculateNewEasiness(2.5, tc.quality, params)
		assert.InDelta(t, tc.want, got, 1e-9, "quality %d", tc.quality)
	}
}

func TestCalculateNewEasiness_NeverBelowFloor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	e := params.InitialEasiness
	for i := 0; i < 100; i++ {
		e = calculateNewEasiness(e, 0, params)
		require.GreaterOrEqual(t, e, domain.MinEasiness)
	}
	assert.Equal(t, domain.MinEasiness, e)
}

func TestCalculateNewInterval(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name        string
		interval    int
		repetitions int
		easiness    float64
		quality     int
		wantIntv    int
		wantReps    int
	}{
		{"fail resets", 40, 4, 2.5, 2, 1, 0},
		{"first pass", 1, 0, 2.5, 4, 1, 1},
		{"second pass", 1, 1, 2.5, 3, 6, 2},
		{"third pass multiplies", 6, 2, 2.6, 3, 16, 3},
		{"rounds half up", 2, 3, 2.25, 5, 5, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			intv, reps := calculateNewInterval(tc.interval, tc.repetitions, tc.easiness, tc.quality, params)
			assert.Equal(t, tc.wantIntv, intv)
			assert.Equal(t, tc.wantReps, reps)
		})
	}
}

func TestCalculateNextCard_QualitySequence(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	card := newTestCard(t, now)

	var intervals []int
	for _, q := range []int{4, 5, 3, 4, 5} {
		card = calculateNextCard(card, q, now, params)
		intervals = append(intervals, card.Interval)
	}

	assert.Equal(t, []int{1, 6, 16, 39, 96}, intervals)
	assert.Equal(t, 5, card.Repetitions)
	assert.Equal(t, 5, card.TotalReviews)
	assert.Equal(t, 5, card.CorrectCount)
	assert.InDelta(t, 2.56, card.Easiness, 1e-9)
	assert.Equal(t, now.AddDate(0, 0, 96), card.NextReview)
	require.NotNil(t, card.LastReview)
	assert.Equal(t, now, *card.LastReview)
}

func TestCalculateNextCard_IntervalsGrowWhilePassing(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC()

	for run := 0; run < 200; run++ {
		card := newTestCard(t, now)
		prev := 0
		for i := 0; i < 12; i++ {
			q := params.PassThreshold + rng.Intn(params.MaxQuality-params.PassThreshold+1)
			card = calculateNextCard(card, q, now, params)
			require.GreaterOrEqual(t, card.Interval, prev, "run %d step %d", run, i)
			prev = card.Interval
		}
	}
}

func TestCalculateNextCard_FailCountsAttemptOnly(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Now().UTC()
	card := newTestCard(t, now)
	card.Repetitions = 3
	card.Interval = 15

	next := calculateNextCard(card, 1, now, params)

	assert.Equal(t, 0, next.Repetitions)
	assert.Equal(t, 1, next.Interval)
	assert.Equal(t, 1, next.TotalReviews)
	assert.Equal(t, 0, next.CorrectCount)
	assert.Equal(t, 15, card.Interval, "input card must not change")
}

func TestPredictRetention(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	card := newTestCard(t, time.Now())

	assert.Equal(t, 100.0, predictRetention(card, 0, params))

	card.Interval = 10
	card.Easiness = 2.5
	assert.Equal(t, 36.8, predictRetention(card, 10, params))
	assert.Equal(t, 60.7, predictRetention(card, 5, params))

	card.Interval = 0
	assert.Equal(t, 0.0, predictRetention(card, 3, params))
}
