package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisiswatch/crisis-event-etl/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startScheduler(t *testing.T, s *Scheduler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop after cancel")
		}
	})
	return cancel
}

func TestRun_FiresImmediatelyAndOnTicks(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var runs atomic.Int32

	jobs := []Job{{
		Name:     "ingest-test",
		Interval: time.Second,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	}}

	s := New(fc, jobs, observability.NewMetricsForTesting(), discardLogger())
	startScheduler(t, s)

	// Initial launch happens before the first tick.
	require.Eventually(t, func() bool { return runs.Load() >= 1 },
		2*time.Second, 5*time.Millisecond)

	fc.BlockUntil(1)
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return runs.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond, "ticks should keep firing the job")
}

func TestRun_SkipsTickWhileJobActive(t *testing.T) {
	fc := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()

	started := make(chan struct{}, 10)
	release := make(chan struct{})

	jobs := []Job{{
		Name:     "slow-job",
		Interval: time.Second,
		Run: func(ctx context.Context) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}}

	s := New(fc, jobs, metrics, discardLogger())
	startScheduler(t, s)

	// The initial run is now blocked on release.
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial run")
	}

	fc.BlockUntil(1)
	fc.Advance(time.Second)

	skipped := func() float64 {
		return testutil.ToFloat64(metrics.SchedulerSkippedTicks.WithLabelValues("slow-job"))
	}
	require.Eventually(t, func() bool { return skipped() >= 1 },
		2*time.Second, 10*time.Millisecond, "tick during an active run should be skipped")

	// Once released, a later tick runs the job again.
	close(release)
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		select {
		case <-started:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_MultipleJobsIndependent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var fast, slow atomic.Int32

	jobs := []Job{
		{Name: "fast", Interval: time.Second, Run: func(ctx context.Context) error {
			fast.Add(1)
			return nil
		}},
		{Name: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
			slow.Add(1)
			return nil
		}},
	}

	s := New(fc, jobs, observability.NewMetricsForTesting(), discardLogger())
	startScheduler(t, s)

	require.Eventually(t, func() bool { return fast.Load() >= 1 && slow.Load() >= 1 },
		2*time.Second, 5*time.Millisecond, "both jobs fire once at startup")

	fc.BlockUntil(2)
	require.Eventually(t, func() bool {
		fc.Advance(time.Second)
		return fast.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.EqualValues(t, 1, slow.Load(), "the hour job does not fire on second ticks")
}
