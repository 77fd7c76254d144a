// Package jobs implements the background work of the library: overdue
// reminders, the monthly loan report, the inventory consistency check and the
// book-metadata fetch. Each job runs on demand via its trigger endpoint and,
// when configured with an interval, periodically via the Scheduler.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pagekeep/pagekeep/relate"
)

// Scheduler runs registered jobs on per-job intervals until its context is
// cancelled.
type Scheduler struct {
	logger *slog.Logger
	jobs   []scheduledJob
	wg     sync.WaitGroup
}

type scheduledJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewScheduler creates an empty scheduler. The logger defaults when nil.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: defaultLogger(logger)}
}

// Register adds a job with its interval. A non-positive interval disables the
// periodic run; the job stays reachable through its trigger endpoint.
func (s *Scheduler) Register(name string, interval time.Duration, run func(ctx context.Context) error) {
	if interval <= 0 {
		s.logger.Info("periodic run disabled", "job", name)
		return
	}

	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, run: run})
}

// Start launches one goroutine per registered job. The goroutines stop when
// ctx is cancelled; Wait blocks until they have drained.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)

		go func(job scheduledJob) {
			defer s.wg.Done()
			s.runPeriodically(ctx, job)
		}(job)
	}
}

// Wait blocks until all job goroutines have stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runPeriodically(ctx context.Context, job scheduledJob) {
	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	s.logger.Info("job scheduled", "job", job.name, "interval", job.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("job scheduler stopped", "job", job.name)
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job scheduledJob) {
	runID := uuid.NewString()
	start := time.Now()

	s.logger.Info("job started", "job", job.name, "run_id", runID)

	if err := job.run(ctx); err != nil {
		s.logger.Error("job failed",
			"job", job.name, "run_id", runID, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}

	s.logger.Info("job completed",
		"job", job.name, "run_id", runID,
		"duration_ms", time.Since(start).Milliseconds())
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}

func defaultClock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}

	return now
}

func toRelateEntities[E relate.Entity](items []E) []relate.Entity {
	out := make([]relate.Entity, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}

	return out
}
