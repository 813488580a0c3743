// Package classify drains the backlog of unprocessed events through the
// analysis provider and reconciles the result into a final severity.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

// Analyzer produces a severity judgment for one event.
type Analyzer interface {
	Analyze(ctx context.Context, ev domain.Event) (domain.AnalysisResult, error)
}

// Publisher receives classified events. Optional; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Classifier works through unprocessed events in bounded batches, pausing
// between batches to respect the analysis provider's rate limits.
type Classifier struct {
	store      *store.EventStore
	activity   *store.ActivityLog
	analyzer   Analyzer
	publisher  Publisher
	batchSize  int
	batchPause time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates a classifier. publisher may be nil.
func New(st *store.EventStore, activity *store.ActivityLog, analyzer Analyzer, publisher Publisher, batchSize int, batchPause time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Classifier {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Classifier{
		store:      st,
		activity:   activity,
		analyzer:   analyzer,
		publisher:  publisher,
		batchSize:  batchSize,
		batchPause: batchPause,
		metrics:    metrics,
		logger:     logger,
	}
}

// RunPending drains the current backlog, one batch at a time, until it is
// empty or the context is cancelled.
func (c *Classifier) RunPending(ctx context.Context) error {
	for {
		pending := c.store.ListUnprocessed()
		if len(pending) == 0 {
			return nil
		}
		if len(pending) > c.batchSize {
			pending = pending[:c.batchSize]
		}

		c.runBatch(ctx, pending)

		if err := ctx.Err(); err != nil {
			return err
		}
		if len(c.store.ListUnprocessed()) == 0 {
			return nil
		}
		if err := sleepWithContext(ctx, c.batchPause); err != nil {
			return err
		}
	}
}

// runBatch classifies one batch concurrently. Each event settles on its own:
// a failed analysis still marks the event processed so it cannot wedge the
// backlog, keeping whatever severity it already carries.
func (c *Classifier) runBatch(ctx context.Context, batch []domain.Event) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(batch))

	for _, ev := range batch {
		g.Go(func() error {
			c.classifyOne(gctx, ev)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Classifier) classifyOne(ctx context.Context, ev domain.Event) {
	start := domain.Now()
	result, err := c.analyzer.Analyze(ctx, ev)
	c.metrics.ClassifyDuration.Observe(domain.Now().Sub(start).Seconds())

	if err != nil {
		c.metrics.ClassifyOutcomes.WithLabelValues("failed").Inc()
		c.logger.Error("analysis failed", "event_id", ev.ID, "title", ev.Title, "error", err)

		// Forward progress over completeness: mark it processed so the next
		// pass works on fresh events instead of retrying this one forever.
		c.store.Update(ev.ID, func(e *domain.Event) {
			e.Processed = true
		})
		c.activity.Append("classify", fmt.Sprintf("%s: analysis failed, kept severity", ev.Title), 0)
		return
	}

	cls := domain.Reconcile(result.Severity, result.Evidence, result.Narrative)
	updated, ok := c.store.Update(ev.ID, func(e *domain.Event) {
		score := cls.Score
		e.Processed = true
		e.Severity = &score
		e.Band = cls.Band
		e.HighTriggers = cls.HighTriggers
		if result.Narrative != "" {
			narrative := result.Narrative
			e.Analysis = &narrative
		}
	})
	if !ok {
		c.logger.Warn("classified event vanished from store", "event_id", ev.ID)
		return
	}

	c.metrics.ClassifyOutcomes.WithLabelValues("classified").Inc()
	c.logger.Info("event classified",
		"event_id", ev.ID, "title", ev.Title,
		"severity", cls.Score, "band", cls.Band, "high_triggers", cls.HighTriggers)
	c.activity.Append("classify",
		fmt.Sprintf("%s: severity %d (%s)", ev.Title, cls.Score, cls.Band), cls.Score)

	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, updated); err != nil {
			c.logger.Error("publish failed", "event_id", ev.ID, "error", err)
			return
		}
		c.metrics.EventsPublished.Inc()
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
