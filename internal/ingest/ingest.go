// Package ingest runs the fetch-dedup-store pass for each feed source.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/feed"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

// Ingestor pulls candidates from feed sources, positions them, and stores
// the ones that are not duplicates.
type Ingestor struct {
	store       *store.EventStore
	activity    *store.ActivityLog
	centroids   *domain.Centroids
	dedupWindow time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger

	mu    sync.Mutex
	ready map[string]bool
}

// New creates an ingestor.
func New(st *store.EventStore, activity *store.ActivityLog, centroids *domain.Centroids, dedupWindow time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:       st,
		activity:    activity,
		centroids:   centroids,
		dedupWindow: dedupWindow,
		metrics:     metrics,
		logger:      logger,
		ready:       make(map[string]bool),
	}
}

// RunSource executes one complete pass for a source: fetch candidates newer
// than the lookback cutoff, position each one, and store the non-duplicates
// with a provisional severity. A fetch failure leaves the store untouched.
func (i *Ingestor) RunSource(ctx context.Context, src feed.Source, lookbackDays int) error {
	name := src.Name()
	start := domain.Now()
	cutoff := start.Add(-time.Duration(lookbackDays) * 24 * time.Hour)

	candidates, err := src.Fetch(ctx, cutoff)
	if err != nil {
		i.metrics.FetchErrors.WithLabelValues(name).Inc()
		i.logger.Error("feed fetch failed", "source", name, "error", err)
		i.activity.Append("ingest", fmt.Sprintf("%s: fetch failed: %v", name, err), 0)
		return err
	}

	var stored, duplicates int
	for _, cand := range candidates {
		ev, reason := i.materialize(cand)
		if reason != "" {
			i.metrics.ItemsSkipped.WithLabelValues(name, reason).Inc()
			continue
		}
		if _, inserted := i.store.CreateIfNew(ev, i.dedupWindow); inserted {
			stored++
		} else {
			duplicates++
		}
	}

	i.metrics.EventsIngested.WithLabelValues(name).Add(float64(stored))
	i.metrics.DuplicatesSkipped.WithLabelValues(name).Add(float64(duplicates))
	i.metrics.IngestRunDuration.WithLabelValues(name).Observe(domain.Now().Sub(start).Seconds())

	i.logger.Info("ingest pass complete",
		"source", name, "candidates", len(candidates), "stored", stored, "duplicates", duplicates)
	i.activity.Append("ingest",
		fmt.Sprintf("%s: %d new events, %d duplicates suppressed", name, stored, duplicates), 0)

	i.markReady(name)
	return nil
}

// materialize turns a candidate into a storable event, resolving its
// position. Country-scoped candidates without a known centroid are dropped
// rather than being placed at (0,0).
func (i *Ingestor) materialize(cand domain.Candidate) (domain.Event, string) {
	lat, lon := cand.Lat, cand.Lon
	if !cand.HasCoords {
		if cand.LocationName == "" {
			return domain.Event{}, feed.SkipNoLocation
		}
		g, ok := i.centroids.Resolve(cand.LocationName)
		if !ok {
			i.logger.Debug("unknown region, dropping candidate",
				"source", cand.Source, "location", cand.LocationName)
			return domain.Event{}, feed.SkipUnknownRegion
		}
		lat, lon = g.Lat, g.Lon
	}
	lat, lon = domain.Jitter(lat, lon, cand.IdentityKey)

	severity := domain.ProvisionalSeverity
	return domain.Event{
		Type:        cand.Type,
		Title:       cand.Title,
		Description: cand.Description,
		Lat:         lat,
		Lon:         lon,
		OccurredAt:  cand.OccurredAt,
		Source:      cand.Source,
		RegionKey:   cand.RegionKey,
		Severity:    &severity,
		Raw:         cand.Raw,
	}, ""
}

func (i *Ingestor) markReady(source string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ready[source] = true
}

// Ready reports whether every listed source has completed at least one
// successful pass since startup.
func (i *Ingestor) Ready(sources ...string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, s := range sources {
		if !i.ready[s] {
			return false
		}
	}
	return true
}
