// Package scheduler runs the background matchmaking sweep on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/phrazzld/certquest-api/internal/service/pvp"
)

// DefaultRunTimeout bounds a single sweep.
const DefaultRunTimeout = 30 * time.Second

// QueueSweeper matches waiting players and purges stale queue entries.
type QueueSweeper interface {
	Sweep(ctx context.Context) (*pvp.SweepResult, error)
}

// Scheduler manages the periodic queue sweep.
type Scheduler struct {
	cron     *gocron.Scheduler
	sweeper  QueueSweeper
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a scheduler that sweeps every interval. A zero interval
// disables the sweep; Start then does nothing.
func New(sweeper QueueSweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if sweeper == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("sweeper cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := DefaultRunTimeout
	if interval > 0 && interval < timeout {
		timeout = interval
	}
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		sweeper:  sweeper,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Start schedules the sweep and returns immediately. The first sweep runs at once.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("queue sweep disabled")
		return nil
	}

	s.cron.SingletonModeAll()
	if _, err := s.cron.Every(s.interval).Do(s.runSweep); err != nil {
		return fmt.Errorf("failed to schedule queue sweep: %w", err)
	}
	s.cron.StartAsync()

	s.logger.Info("queue sweep scheduled", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts the schedule. A sweep already running finishes first.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce performs a single sweep with the scheduler's timeout.
func (s *Scheduler) RunOnce(ctx context.Context) (*pvp.SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.sweeper.Sweep(ctx)
}

func (s *Scheduler) runSweep() {
	res, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Error("queue sweep failed", slog.String("error", err.Error()))
		return
	}
	if res.Matched > 0 || res.Expired > 0 {
		s.logger.Debug("queue sweep",
			slog.Int("matched", res.Matched),
			slog.Int("expired", res.Expired))
	}
}
