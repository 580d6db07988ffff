package matchmaking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/phrazzld/certquest-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRadius(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		wait time.Duration
		want int
	}{
		{0, 200},
		{9 * time.Second, 200},
		{10 * time.Second, 250},
		{25 * time.Second, 300},
		{60 * time.Second, 500},
		{10 * time.Minute, 500},
		{-time.Second, 200},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, SearchRadius(tc.wait, params), "wait %s", tc.wait)
	}
}

func TestFindOpponent(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	self := &domain.QueueEntry{PlayerID: 1, Rating: 1500, EnqueuedAt: base}
	entries := []*domain.QueueEntry{
		self,
		{PlayerID: 2, Rating: 1750, EnqueuedAt: base},
		{PlayerID: 3, Rating: 1420, EnqueuedAt: base.Add(2 * time.Second)},
		{PlayerID: 4, Rating: 1580, EnqueuedAt: base.Add(time.Second)},
	}

	got := FindOpponent(self, entries, 200)
	require.NotNil(t, got)
	assert.Equal(t, int64(4), got.PlayerID, "equal distance goes to the earlier entry")

	assert.Nil(t, FindOpponent(self, entries, 50))
	assert.Nil(t, FindOpponent(self, []*domain.QueueEntry{self}, 500))
}

func TestFindOpponent_NeverSelf(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 2000; i++ {
		var entries []*domain.QueueEntry
		n := 1 + rng.Intn(8)
		for j := 0; j < n; j++ {
			entries = append(entries, &domain.QueueEntry{PlayerID: int64(j), Rating: 1000 + rng.Intn(1000)})
		}
		self := entries[rng.Intn(n)]
		if got := FindOpponent(self, entries, 500); got != nil {
			require.NotEqual(t, self.PlayerID, got.PlayerID)
		}
	}
}

func TestClosestBot(t *testing.T) {
	t.Parallel()

	bots := []*domain.Bot{
		{ID: 9001, Rating: 1200, Active: true},
		{ID: 9002, Rating: 1450, Active: false},
		{ID: 9003, Rating: 1700, Active: true},
	}

	assert.Equal(t, int64(9003), ClosestBot(1500, bots).ID)
	assert.Equal(t, int64(9001), ClosestBot(1300, bots).ID)
	assert.Nil(t, ClosestBot(1500, []*domain.Bot{{ID: 9009, Active: false}}))
}

func TestQuality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100.0, Quality(0, 0, false))
	assert.Equal(t, 85.0, Quality(100, 10*time.Second, false))
	assert.Equal(t, 85.0, Quality(-100, 10*time.Second, false))
	assert.Equal(t, 10.0, Quality(900, 2*time.Minute, true))
	assert.Equal(t, 50.0, Quality(200, 30*time.Second, true))
}

func TestEstimatedWait(t *testing.T) {
	t.Parallel()

	assert.Zero(t, EstimatedWait(0))
	assert.Equal(t, 25*time.Second, EstimatedWait(1))
	assert.Equal(t, 5*time.Second, EstimatedWait(20))
}

func TestShouldFallBackToBot(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	assert.False(t, ShouldFallBackToBot(29*time.Second, params))
	assert.True(t, ShouldFallBackToBot(30*time.Second, params))
	require.NoError(t, params.Validate())
}
