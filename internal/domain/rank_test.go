package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		rating int
		want   RankTier
	}{
		{-50, TierBronze},
		{0, TierBronze},
		{1199, TierBronze},
		{1200, TierSilver},
		{1399, TierSilver},
		{1400, TierGold},
		{1600, TierPlatinum},
		{1800, TierDiamond},
		{1999, TierDiamond},
		{2000, TierMaster},
		{2200, TierGrandmaster},
		{3100, TierGrandmaster},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, TierFor(tc.rating), "rating %d", tc.rating)
	}
}

func TestTierFor_MatchesThresholdRange(t *testing.T) {
	t.Parallel()

	tiers := Tiers()
	for r := 0; r <= 2600; r++ {
		tier := TierFor(r)
		floor := tier.MinRating()
		require.LessOrEqual(t, floor, r)
		for _, next := range tiers {
			if next.MinRating > floor {
				assert.Less(t, r, next.MinRating, "rating %d should sit below the next threshold", r)
				break
			}
		}
	}
}

func TestRankTier_Compare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, TierGold.Compare(TierSilver))
	assert.Equal(t, -1, TierBronze.Compare(TierGrandmaster))
	assert.Equal(t, 0, TierMaster.Compare(TierMaster))
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	_, err := ParseRankTier("wood")
	assert.ErrorIs(t, err, ErrInvalidTier)

	tier, err := ParseRankTier("diamond")
	require.NoError(t, err)
	assert.Equal(t, TierDiamond, tier)

	_, err = ParseRankChangeType("sideways")
	assert.ErrorIs(t, err, ErrInvalidRankChange)

	_, err = ParseSeasonStatus("pending")
	assert.ErrorIs(t, err, ErrInvalidSeasonStatus)

	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyBalanced, s)

	_, err = ParseStrategy("random")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestPlayerRating_RecordResult(t *testing.T) {
	t.Parallel()

	p := NewPlayerRating(1, DefaultRating)
	for _, won := range []bool{true, true, true, false, false, true} {
		p.RecordResult(won)
		assert.GreaterOrEqual(t, p.MaxStreak, p.Streak)
	}

	assert.Equal(t, 4, p.Wins)
	assert.Equal(t, 2, p.Losses)
	assert.Equal(t, 1, p.Streak)
	assert.Equal(t, 3, p.MaxStreak)
}

func TestDefaultReward(t *testing.T) {
	t.Parallel()

	for _, tt := range Tiers() {
		r := DefaultReward("S1", tt.Tier)
		assert.Equal(t, "S1", r.SeasonID)
		assert.Equal(t, tt.Tier, r.Tier)
		assert.Positive(t, r.Coins)
	}
}
