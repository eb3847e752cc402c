// Package jobs runs flatmate's background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CleanupSchedule is how often the login rate limiter is pruned.
const CleanupSchedule = "@every 5m"

// Sweeper archives stale complaints.
type Sweeper interface {
	RunArchivalSweep(ctx context.Context, now time.Time) (int, error)
}

// Pruner drops expired rate-limit windows.
type Pruner interface {
	Cleanup() int
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	pruner  Pruner
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler registers the archival sweep on schedule and, when pruner is
// non-nil, the rate limiter cleanup. Jobs do not run until Start.
func NewScheduler(sweeper Sweeper, pruner Pruner, schedule string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		pruner:  pruner,
		logger:  logger,
		now:     time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.RunSweep(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("schedule archival sweep %q: %w", schedule, err)
	}

	if pruner != nil {
		if _, err := s.cron.AddFunc(CleanupSchedule, s.prune); err != nil {
			return nil, fmt.Errorf("schedule rate limit cleanup: %w", err)
		}
	}
	return s, nil
}

// RunSweep runs the archival sweep once and returns how many complaints it
// archived. Failures are logged.
func (s *Scheduler) RunSweep(ctx context.Context) int {
	s.logger.Info("[cron] archival sweep starting")
	n, err := s.sweeper.RunArchivalSweep(ctx, s.now())
	if err != nil {
		s.logger.Error("[cron] archival sweep failed", "error", err, "archived", n)
		return n
	}
	s.logger.Info("[cron] archival sweep finished", "archived", n)
	return n
}

func (s *Scheduler) prune() {
	if n := s.pruner.Cleanup(); n > 0 {
		s.logger.Debug("[cron] rate limiter pruned", "removed", n)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}
