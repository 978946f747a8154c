// Package jobs runs the periodic background work of the CRM.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Loader reloads state from the store.
type Loader interface {
	Load(ctx context.Context) error
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler creates a stopped scheduler. Schedules are read in loc.
func NewScheduler(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// ScheduleResync reloads the full state on spec, e.g. "@every 5m" or "*/10 * * * *".
// A reload that fails keeps the previous state; the next run tries again.
func (s *Scheduler) ScheduleResync(spec string, loader Loader, timeout time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		if err := loader.Load(ctx); err != nil {
			s.logger.Warn("resync failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			return
		}
		s.logger.Debug("resync completed", zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule resync %q: %w", spec, err)
	}
	s.logger.Info("resync scheduled", zap.String("schedule", spec))
	return nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}
