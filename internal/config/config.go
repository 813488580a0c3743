package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed ingestion.
	EONETURL          string
	ReliefWebURL      string
	GDACSURL          string
	LookbackDays      int
	EONETLookbackDays int
	ReliefWebLookback int
	GDACSLookbackDays int
	DedupWindow       time.Duration
	FetchTimeout      time.Duration
	CentroidsFile     string
	ActivityLogSize   int

	// Scheduler intervals.
	EONETInterval     time.Duration
	ReliefWebInterval time.Duration
	GDACSInterval     time.Duration
	ClassifyInterval  time.Duration

	// Classification.
	ClassifyBatchSize  int
	ClassifyBatchPause time.Duration

	// Gemini analysis configuration.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiEnabled bool
	GeminiTimeout time.Duration

	// Optional Kafka sink for classified events.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	dedupWindow, err := parseDuration("DEDUP_WINDOW", "24h")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	eonetInterval, err := parseDuration("EONET_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	reliefWebInterval, err := parseDuration("RELIEFWEB_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}
	gdacsInterval, err := parseDuration("GDACS_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}
	classifyInterval, err := parseDuration("CLASSIFY_INTERVAL", "2m")
	if err != nil {
		return nil, err
	}
	classifyPause, err := parseDuration("CLASSIFY_BATCH_PAUSE", "2s")
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parseDuration("GEMINI_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	lookback, err := parsePositiveInt("LOOKBACK_DAYS", 30)
	if err != nil {
		return nil, err
	}
	batchSize, err := parsePositiveInt("CLASSIFY_BATCH_SIZE", 5)
	if err != nil {
		return nil, err
	}
	activitySize, err := parsePositiveInt("ACTIVITY_LOG_SIZE", 200)
	if err != nil {
		return nil, err
	}

	// Per-source lookback falls back to the global value.
	eonetLookback, err := parsePositiveInt("EONET_LOOKBACK_DAYS", lookback)
	if err != nil {
		return nil, err
	}
	reliefWebLookback, err := parsePositiveInt("RELIEFWEB_LOOKBACK_DAYS", lookback)
	if err != nil {
		return nil, err
	}
	gdacsLookback, err := parsePositiveInt("GDACS_LOOKBACK_DAYS", lookback)
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiEnabled := geminiKey != ""
	if v := os.Getenv("GEMINI_ENABLED"); v != "" {
		geminiEnabled = v == "true"
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		EONETURL:          envOrDefault("EONET_URL", "https://eonet.gsfc.nasa.gov/api/v3/events"),
		ReliefWebURL:      envOrDefault("RELIEFWEB_URL", "https://api.reliefweb.int/v1/disasters"),
		GDACSURL:          envOrDefault("GDACS_URL", "https://www.gdacs.org/gdacsapi/api/events/geteventlist/MAP"),
		LookbackDays:      lookback,
		EONETLookbackDays: eonetLookback,
		ReliefWebLookback: reliefWebLookback,
		GDACSLookbackDays: gdacsLookback,
		DedupWindow:       dedupWindow,
		FetchTimeout:      fetchTimeout,
		CentroidsFile:     os.Getenv("CENTROIDS_FILE"),
		ActivityLogSize:   activitySize,

		EONETInterval:     eonetInterval,
		ReliefWebInterval: reliefWebInterval,
		GDACSInterval:     gdacsInterval,
		ClassifyInterval:  classifyInterval,

		ClassifyBatchSize:  batchSize,
		ClassifyBatchPause: classifyPause,

		GeminiAPIKey:  geminiKey,
		GeminiModel:   envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEnabled: geminiEnabled,
		GeminiTimeout: geminiTimeout,

		KafkaBrokers:   kafkaBrokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "classified-crisis-events"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.GeminiEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
