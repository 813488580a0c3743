// Command backfill runs a one-shot ingestion pass against the live feeds
// and writes the resulting events to a JSON file. It uses the actual ingest
// and domain packages so the output matches real pipeline behavior, which
// makes it useful both for seeding an environment and for refreshing test
// fixtures.
//
// Usage:
//
//	go run ./cmd/backfill -source all -lookback 7 -out data/events.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/config"
	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/feed"
	"github.com/crisiswatch/crisis-event-etl/internal/ingest"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	source := flag.String("source", "all", "feed to pull: eonet, reliefweb, gdacs, or all")
	lookback := flag.Int("lookback", 7, "lookback window in days")
	out := flag.String("out", "", "output path for the events JSON file")
	timeout := flag.Duration("timeout", 30*time.Second, "per-feed fetch timeout")
	quiet := flag.Bool("quiet", false, "suppress per-source progress logging")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *quiet {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	metrics := observability.NewMetricsForTesting()

	centroids := domain.NewCentroids()
	if cfg.CentroidsFile != "" {
		if err := centroids.LoadOverrides(cfg.CentroidsFile); err != nil {
			return fmt.Errorf("loading centroid overrides: %w", err)
		}
	}

	eventStore := store.New()
	ingestor := ingest.New(eventStore, store.NewActivityLog(cfg.ActivityLogSize),
		centroids, cfg.DedupWindow, metrics, logger)

	sources := map[string]feed.Source{
		"eonet":     feed.NewEONET(cfg.EONETURL, *lookback, *timeout, metrics, logger),
		"reliefweb": feed.NewReliefWeb(cfg.ReliefWebURL, *timeout, metrics, logger),
		"gdacs":     feed.NewGDACS(cfg.GDACSURL, *timeout, metrics, logger),
	}

	var selected []feed.Source
	if *source == "all" {
		for _, s := range sources {
			selected = append(selected, s)
		}
	} else {
		s, ok := sources[*source]
		if !ok {
			return fmt.Errorf("unknown source %q", *source)
		}
		selected = []feed.Source{s}
	}

	ctx := context.Background()
	for _, s := range selected {
		if err := ingestor.RunSource(ctx, s, *lookback); err != nil {
			return fmt.Errorf("ingesting %s: %w", s.Name(), err)
		}
	}

	events := eventStore.List()
	if err := writeJSON(*out, events); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}

	log.Printf("wrote %d events: %s", len(events), *out)
	printStats(eventStore.Stats())
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(st store.Stats) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", st.Total)
	fmt.Printf("By source:")
	for source, n := range st.BySource {
		fmt.Printf(" %s=%d", source, n)
	}
	fmt.Println()
	fmt.Printf("By type:")
	for typ, n := range st.ByType {
		fmt.Printf(" %s=%d", typ, n)
	}
	fmt.Println()
}
