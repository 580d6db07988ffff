package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/certquest-api/internal/service/pvp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) Sweep(ctx context.Context) (*pvp.SweepResult, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("sweep called without a deadline")
	}
	if c.err != nil {
		return nil, c.err
	}
	return &pvp.SweepResult{Matched: 1}, nil
}

func TestScheduler_RunsRepeatedly(t *testing.T) {
	t.Parallel()
	sw := &countingSweeper{}
	s := New(sw, 20*time.Millisecond, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_KeepsRunningAfterErrors(t *testing.T) {
	t.Parallel()
	sw := &countingSweeper{err: errors.New("db down")}
	s := New(sw, 20*time.Millisecond, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return sw.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Disabled(t *testing.T) {
	t.Parallel()
	sw := &countingSweeper{}
	s := New(sw, 0, nil)

	require.NoError(t, s.Start())
	time.Sleep(50 * time.Millisecond)
	s.Stop()
	assert.Zero(t, sw.calls.Load())
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Parallel()
	sw := &countingSweeper{}
	s := New(sw, time.Minute, nil)

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, int32(1), sw.calls.Load())
}

func TestNew_NilSweeper(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { New(nil, time.Second, nil) })
}
