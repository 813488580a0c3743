package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
)

const eonetSource = "eonet"

// EONET pulls natural events from NASA's EONET v3 API. EONET items carry
// point coordinates directly, so no centroid resolution is needed.
type EONET struct {
	baseURL      string
	lookbackDays int
	httpClient   *http.Client
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// NewEONET creates the EONET adapter.
func NewEONET(baseURL string, lookbackDays int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *EONET {
	return &EONET{
		baseURL:      baseURL,
		lookbackDays: lookbackDays,
		httpClient:   &http.Client{Timeout: timeout},
		metrics:      metrics,
		logger:       logger,
	}
}

func (e *EONET) Name() string { return eonetSource }

// Fetch requests events within the lookback window. The days parameter
// bounds the response server-side; the cutoff filter below is what the
// pipeline actually trusts.
func (e *EONET) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Candidate, error) {
	params := url.Values{
		"days":   {strconv.Itoa(e.lookbackDays)},
		"status": {"open"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Source: eonetSource, Err: err}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: eonetSource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Source: eonetSource, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var payload eonetResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Source: eonetSource, Err: fmt.Errorf("decode response: %w", err)}
	}

	candidates := make([]domain.Candidate, 0, len(payload.Events))
	for _, item := range payload.Events {
		cand, reason := e.normalize(item, cutoff)
		if reason != "" {
			e.metrics.ItemsSkipped.WithLabelValues(eonetSource, reason).Inc()
			if reason == SkipMalformed {
				e.logger.Debug("skipping malformed eonet event", "id", item.ID)
			}
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// normalize maps one EONET event onto a candidate, or returns a skip reason.
func (e *EONET) normalize(item eonetEvent, cutoff time.Time) (domain.Candidate, string) {
	if item.Title == "" || len(item.Categories) == 0 || len(item.Geometry) == 0 {
		return domain.Candidate{}, SkipMalformed
	}

	// The first geometry entry is the event origin; later entries track
	// movement for long-running events like wildfires and storms.
	geo := item.Geometry[0]
	occurredAt, err := time.Parse(time.RFC3339, geo.Date)
	if err != nil {
		return domain.Candidate{}, SkipMalformed
	}
	if occurredAt.Before(cutoff) {
		return domain.Candidate{}, SkipStale
	}
	if len(geo.Coordinates) != 2 {
		return domain.Candidate{}, SkipNoLocation
	}

	raw, _ := json.Marshal(item)
	return domain.Candidate{
		Source:      eonetSource,
		Type:        item.Categories[0].Title,
		Title:       item.Title,
		Description: item.Description,
		OccurredAt:  occurredAt,
		HasCoords:   true,
		// EONET geometry is GeoJSON order: lon first.
		Lon:         geo.Coordinates[0],
		Lat:         geo.Coordinates[1],
		IdentityKey: domain.DedupKey(item.Title, ""),
		Raw:         raw,
	}, ""
}

// EONET v3 response types.

type eonetResponse struct {
	Events []eonetEvent `json:"events"`
}

type eonetEvent struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Categories  []eonetCategory `json:"categories"`
	Geometry    []eonetGeometry `json:"geometry"`
}

type eonetCategory struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type eonetGeometry struct {
	Date        string    `json:"date"`
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}
