package rating

import (
	"math/rand"
	"testing"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_EqualRatings(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	a, b := Update(1500, 1500, true, params)
	assert.Equal(t, 1516, a)
	assert.Equal(t, 1484, b)
}

func TestUpdate_FavouriteAndUpset(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	a, b := Update(1800, 1200, true, params)
	assert.Less(t, a, 1810)
	assert.Greater(t, a, 1800)
	assert.Less(t, b, 1200)

	a, b = Update(1800, 1200, false, params)
	assert.Greater(t, b, 1225)
	assert.Less(t, a, 1800)
}

func TestUpdate_ZeroSum(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 20000; i++ {
		ra := 400 + rng.Intn(2400)
		rb := 400 + rng.Intn(2400)
		won := rng.Intn(2) == 0

		na, nb := Update(ra, rb, won, params)
		sum := (na - ra) + (nb - rb)
		require.LessOrEqual(t, sum, 1, "ra=%d rb=%d", ra, rb)
		require.GreaterOrEqual(t, sum, -1, "ra=%d rb=%d", ra, rb)
	}
}

func TestUpdate_Fairness(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	for opponent := 1000; opponent <= 2000; opponent += 100 {
		high, _ := Update(1700, opponent, true, params)
		low, _ := Update(1300, opponent, true, params)
		assert.Less(t, high-1700, low-1300, "opponent %d", opponent)
	}
}

func TestUpdate_RespectsFloor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	params.Floor = 100

	a, _ := Update(105, 105, false, params)
	assert.Equal(t, 100, a)
}

func TestDetectTierChange(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	change, ok := DetectTierChange(7, 1190, 1210, at)
	require.True(t, ok)
	assert.Equal(t, domain.TierBronze, change.OldTier)
	assert.Equal(t, domain.TierSilver, change.NewTier)
	assert.Equal(t, domain.RankChangePromote, change.Type)
	assert.Equal(t, at, change.At)

	_, ok = DetectTierChange(7, 1500, 1550, at)
	assert.False(t, ok)

	change, ok = DetectTierChange(7, 1805, 1790, at)
	require.True(t, ok)
	assert.Equal(t, domain.RankChangeDemote, change.Type)
}

func TestDetectTierChange_IffTiersDiffer(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 5000; i++ {
		oldR := rng.Intn(2600)
		newR := oldR + rng.Intn(201) - 100
		change, ok := DetectTierChange(1, oldR, newR, time.Time{})

		differ := domain.TierFor(oldR) != domain.TierFor(newR)
		require.Equal(t, differ, ok, "old=%d new=%d", oldR, newR)
		if ok {
			wantPromote := domain.TierFor(newR).MinRating() > domain.TierFor(oldR).MinRating()
			assert.Equal(t, wantPromote, change.Type == domain.RankChangePromote)
		}
	}
}

func TestSoftReset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1600, SoftReset(2000, 1200, 0.5))
	assert.Equal(t, 1100, SoftReset(1000, 1200, 0.5))
	assert.Equal(t, 1200, SoftReset(1200, 1200, 0.5))
	assert.Equal(t, 1200, SoftReset(2400, 1200, 0))

	// Half points are dropped on both sides of the baseline.
	assert.Equal(t, 1250, SoftReset(1301, 1200, 0.5))
	assert.Equal(t, 1150, SoftReset(1099, 1200, 0.5))
}

func TestParams(t *testing.T) {
	t.Parallel()

	p := NewDefaultParams()
	require.NoError(t, p.Validate())
	assert.True(t, p.IsBot(9001))
	assert.False(t, p.IsBot(8999))

	p.KFactor = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}
