package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/crisiswatch/crisis-event-etl/internal/adapter/gemini"
	"github.com/crisiswatch/crisis-event-etl/internal/adapter/httpapi"
	kafkaadapter "github.com/crisiswatch/crisis-event-etl/internal/adapter/kafka"
	"github.com/crisiswatch/crisis-event-etl/internal/classify"
	"github.com/crisiswatch/crisis-event-etl/internal/config"
	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/feed"
	"github.com/crisiswatch/crisis-event-etl/internal/ingest"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
	"github.com/crisiswatch/crisis-event-etl/internal/scheduler"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

// readiness gates /readyz on every feed completing an initial pass.
type readiness struct {
	ingestor *ingest.Ingestor
	sources  []string
}

func (r readiness) CheckReadiness(context.Context) error {
	if !r.ingestor.Ready(r.sources...) {
		return errors.New("feeds have not completed an initial pass")
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	centroids := domain.NewCentroids()
	if cfg.CentroidsFile != "" {
		if err := centroids.LoadOverrides(cfg.CentroidsFile); err != nil {
			logger.Error("failed to load centroid overrides", "path", cfg.CentroidsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("centroid overrides loaded", "path", cfg.CentroidsFile)
	}

	eventStore := store.New()
	activity := store.NewActivityLog(cfg.ActivityLogSize)

	ingestor := ingest.New(eventStore, activity, centroids, cfg.DedupWindow, metrics, logger)

	eonet := feed.NewEONET(cfg.EONETURL, cfg.EONETLookbackDays, cfg.FetchTimeout, metrics, logger)
	reliefWeb := feed.NewReliefWeb(cfg.ReliefWebURL, cfg.FetchTimeout, metrics, logger)
	gdacs := feed.NewGDACS(cfg.GDACSURL, cfg.FetchTimeout, metrics, logger)

	jobs := []scheduler.Job{
		{Name: eonet.Name(), Interval: cfg.EONETInterval, Run: func(ctx context.Context) error {
			return ingestor.RunSource(ctx, eonet, cfg.EONETLookbackDays)
		}},
		{Name: reliefWeb.Name(), Interval: cfg.ReliefWebInterval, Run: func(ctx context.Context) error {
			return ingestor.RunSource(ctx, reliefWeb, cfg.ReliefWebLookback)
		}},
		{Name: gdacs.Name(), Interval: cfg.GDACSInterval, Run: func(ctx context.Context) error {
			return ingestor.RunSource(ctx, gdacs, cfg.GDACSLookbackDays)
		}},
	}

	// Classified events go to Kafka when a sink is configured
	// (feature-flagged via KAFKA_ENABLED).
	var publisher classify.Publisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka sink disabled")
	}

	// Severity analysis is feature-flagged via GEMINI_ENABLED / GEMINI_API_KEY.
	// Without it, events keep their provisional severity.
	if cfg.GeminiEnabled {
		analyzer := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTimeout, logger)
		classifier := classify.New(eventStore, activity, analyzer, publisher,
			cfg.ClassifyBatchSize, cfg.ClassifyBatchPause, metrics, logger)
		jobs = append(jobs, scheduler.Job{
			Name:     "classify",
			Interval: cfg.ClassifyInterval,
			Run:      classifier.RunPending,
		})
		logger.Info("gemini analysis enabled", "model", cfg.GeminiModel, "batch_size", cfg.ClassifyBatchSize)
	} else {
		logger.Info("gemini analysis disabled")
	}

	sched := scheduler.New(nil, jobs, metrics, logger)

	ready := readiness{
		ingestor: ingestor,
		sources:  []string{eonet.Name(), reliefWeb.Name(), gdacs.Name()},
	}
	srv := httpapi.NewServer(cfg.HTTPAddr, eventStore, activity, ready, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the periodic pipeline.
	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before the shutdown deadline")
	}

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
