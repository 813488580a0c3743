package classify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

type stubAnalyzer struct {
	mu      sync.Mutex
	results map[string]domain.AnalysisResult
	errs    map[string]error
	calls   int
}

func (a *stubAnalyzer) Analyze(_ context.Context, ev domain.Event) (domain.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if err, ok := a.errs[ev.Title]; ok {
		return domain.AnalysisResult{}, err
	}
	return a.results[ev.Title], nil
}

type stubPublisher struct {
	mu        sync.Mutex
	published []domain.Event
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClassifier(st *store.EventStore, analyzer Analyzer, publisher Publisher) *Classifier {
	return New(st, store.NewActivityLog(50), analyzer, publisher, 5, time.Millisecond,
		observability.NewMetricsForTesting(), discardLogger())
}

func TestRunPending_ClassifiesBacklog(t *testing.T) {
	st := store.New()
	flood := st.Create(domain.Event{Title: "Flood Alert", Type: "Flood"})

	analyzer := &stubAnalyzer{results: map[string]domain.AnalysisResult{
		"Flood Alert": {
			Severity: 6,
			Evidence: domain.Evidence{Displaced: 500},
			Narrative: "Classified as medium. Displacement concentrated in " +
				"two districts with shelters holding.",
		},
	}}

	c := newClassifier(st, analyzer, nil)
	require.NoError(t, c.RunPending(context.Background()))

	got, ok := st.Get(flood.ID)
	require.True(t, ok)
	assert.True(t, got.Processed)
	require.NotNil(t, got.Severity)
	assert.Equal(t, 6, *got.Severity)
	assert.Equal(t, domain.BandMedium, got.Band)
	require.NotNil(t, got.Analysis)
	assert.Contains(t, *got.Analysis, "shelters holding")

	assert.Empty(t, st.ListUnprocessed())
}

func TestRunPending_FailureStillMakesProgress(t *testing.T) {
	st := store.New()
	ev := st.Create(domain.Event{Title: "Quake"})

	analyzer := &stubAnalyzer{errs: map[string]error{"Quake": errors.New("rate limited")}}

	c := newClassifier(st, analyzer, nil)
	require.NoError(t, c.RunPending(context.Background()))

	got, ok := st.Get(ev.ID)
	require.True(t, ok)
	assert.True(t, got.Processed, "failed events are not retried forever")
	require.NotNil(t, got.Severity)
	assert.Equal(t, domain.ProvisionalSeverity, *got.Severity, "provisional severity survives the failure")
	assert.Empty(t, got.Band)
}

func TestRunPending_DrainsInBatches(t *testing.T) {
	st := store.New()
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		st.Create(domain.Event{Title: title})
	}

	analyzer := &stubAnalyzer{}
	c := newClassifier(st, analyzer, nil)
	require.NoError(t, c.RunPending(context.Background()))

	assert.Equal(t, 7, analyzer.calls)
	assert.Empty(t, st.ListUnprocessed())
}

func TestRunPending_EmptyBacklog(t *testing.T) {
	st := store.New()
	analyzer := &stubAnalyzer{}
	c := newClassifier(st, analyzer, nil)

	require.NoError(t, c.RunPending(context.Background()))
	assert.Equal(t, 0, analyzer.calls)
}

func TestRunPending_PublishesClassified(t *testing.T) {
	st := store.New()
	st.Create(domain.Event{Title: "Cyclone"})

	analyzer := &stubAnalyzer{results: map[string]domain.AnalysisResult{
		"Cyclone": {
			Severity:  8,
			Evidence:  domain.Evidence{Fatalities: 4, Displaced: 3000},
			Narrative: "High severity landfall.",
		},
	}}
	pub := &stubPublisher{}

	c := newClassifier(st, analyzer, pub)
	require.NoError(t, c.RunPending(context.Background()))

	require.Len(t, pub.published, 1)
	got := pub.published[0]
	assert.True(t, got.Processed)
	assert.Equal(t, domain.BandHigh, got.Band)
	require.NotNil(t, got.Severity)
	assert.Equal(t, 8, *got.Severity)
}

func TestRunPending_PublishFailureKeepsClassification(t *testing.T) {
	st := store.New()
	ev := st.Create(domain.Event{Title: "Cyclone"})

	analyzer := &stubAnalyzer{results: map[string]domain.AnalysisResult{
		"Cyclone": {Severity: 8, Narrative: "High severity landfall."},
	}}
	pub := &stubPublisher{err: errors.New("broker down")}

	c := newClassifier(st, analyzer, pub)
	require.NoError(t, c.RunPending(context.Background()))

	got, ok := st.Get(ev.ID)
	require.True(t, ok)
	assert.True(t, got.Processed, "sink trouble does not undo classification")
}

func TestRunPending_ContextCancelled(t *testing.T) {
	st := store.New()
	st.Create(domain.Event{Title: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := &stubAnalyzer{}
	c := newClassifier(st, analyzer, nil)

	err := c.RunPending(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
