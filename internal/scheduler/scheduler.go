// Package scheduler runs the periodic pipeline jobs, one ticker per job,
// suppressing overlapping runs of the same job.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/crisiswatch/crisis-event-etl/internal/observability"
)

// Job is a named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives jobs on their intervals until the context is cancelled.
type Scheduler struct {
	clock   clockwork.Clock
	jobs    []Job
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a scheduler. A nil clock means real time.
func New(clock clockwork.Clock, jobs []Job, metrics *observability.Metrics, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, jobs: jobs, metrics: metrics, logger: logger}
}

// Run starts every job, fires each once immediately, and then ticks them on
// their intervals. Blocks until the context is cancelled and all job
// goroutines have returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runJob(ctx, job)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	var running atomic.Bool
	var active sync.WaitGroup

	launch := func() {
		// A tick landing while the previous run is still going is dropped,
		// not queued. The next tick picks the work up again.
		if !running.CompareAndSwap(false, true) {
			s.metrics.SchedulerSkippedTicks.WithLabelValues(job.Name).Inc()
			s.logger.Warn("previous run still active, skipping tick", "job", job.Name)
			return
		}
		active.Add(1)
		go func() {
			defer active.Done()
			defer running.Store(false)
			if err := job.Run(ctx); err != nil {
				s.logger.Error("job run failed", "job", job.Name, "error", err)
			}
		}()
	}

	launch()

	ticker := s.clock.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			active.Wait()
			return
		case <-ticker.Chan():
			launch()
		}
	}
}
