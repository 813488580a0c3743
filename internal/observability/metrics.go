package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion and classification pipeline.
type Metrics struct {
	// Ingestion metrics, labeled by feed source.
	EventsIngested    *prometheus.CounterVec   // labels: source
	DuplicatesSkipped *prometheus.CounterVec   // labels: source
	ItemsSkipped      *prometheus.CounterVec   // labels: source, reason={no_location,unknown_region,stale,malformed}
	FetchErrors       *prometheus.CounterVec   // labels: source
	IngestRunDuration *prometheus.HistogramVec // labels: source

	// Classification metrics.
	ClassifyOutcomes *prometheus.CounterVec // labels: outcome={classified,failed}
	ClassifyDuration prometheus.Histogram

	// Scheduler and sink metrics.
	SchedulerSkippedTicks *prometheus.CounterVec // labels: job
	EventsPublished       prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "events_ingested_total",
			Help:      "Total new events stored, by feed source.",
		}, []string{"source"}),
		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "duplicates_skipped_total",
			Help:      "Total candidate events suppressed as duplicates, by feed source.",
		}, []string{"source"}),
		ItemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "items_skipped_total",
			Help:      "Total feed items dropped before storage, by source and reason.",
		}, []string{"source", "reason"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "fetch_errors_total",
			Help:      "Total feed fetch failures, by source.",
		}, []string{"source"}),
		IngestRunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crisis_etl",
			Name:      "ingest_run_duration_seconds",
			Help:      "Duration of a complete fetch-dedup-store pass for one source.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ClassifyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "classify_outcomes_total",
			Help:      "Classification attempts by outcome.",
		}, []string{"outcome"}),
		ClassifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crisis_etl",
			Name:      "classify_duration_seconds",
			Help:      "Duration of a single event classification including the analysis call.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SchedulerSkippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "scheduler_skipped_ticks_total",
			Help:      "Scheduler ticks skipped because the previous run was still active, by job.",
		}, []string{"job"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crisis_etl",
			Name:      "events_published_total",
			Help:      "Total classified events written to the sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.EventsIngested,
		m.DuplicatesSkipped,
		m.ItemsSkipped,
		m.FetchErrors,
		m.IngestRunDuration,
		m.ClassifyOutcomes,
		m.ClassifyDuration,
		m.SchedulerSkippedTicks,
		m.EventsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EventsIngested:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "events_ingested_total"}, []string{"source"}),
		DuplicatesSkipped:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "duplicates_skipped_total"}, []string{"source"}),
		ItemsSkipped:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "items_skipped_total"}, []string{"source", "reason"}),
		FetchErrors:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "fetch_errors_total"}, []string{"source"}),
		IngestRunDuration:     prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "crisis_etl", Name: "ingest_run_duration_seconds"}, []string{"source"}),
		ClassifyOutcomes:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "classify_outcomes_total"}, []string{"outcome"}),
		ClassifyDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crisis_etl", Name: "classify_duration_seconds"}),
		SchedulerSkippedTicks: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "scheduler_skipped_ticks_total"}, []string{"job"}),
		EventsPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crisis_etl", Name: "events_published_total"}),
	}
}
