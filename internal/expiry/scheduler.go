package expiry

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the sweeper on a cron schedule. Runs never overlap: a
// sweep still in flight skips the next trigger.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	logger  *slog.Logger
}

func NewScheduler(sweeper *Sweeper, logger *slog.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	return &Scheduler{cron: c, sweeper: sweeper, logger: logger}
}

// Start registers the sweep under schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		s.sweeper.Sweep(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("expiry sweep scheduled", "schedule", schedule)
	return nil
}

// Stop halts scheduling and returns a context that closes when any running
// sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
