package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/observability"
)

const gdacsSource = "gdacs"

// gdacsEventTypes maps GDACS two-letter event codes onto readable type
// labels. Unlisted codes pass through as-is rather than being dropped.
var gdacsEventTypes = map[string]string{
	"EQ": "Earthquake",
	"TC": "Tropical Cyclone",
	"FL": "Flood",
	"VO": "Volcano",
	"WF": "Wildfire",
	"DR": "Drought",
	"TS": "Tsunami",
}

// GDACS pulls alert events from the Global Disaster Alert and Coordination
// System. The API returns GeoJSON, so items carry point coordinates.
type GDACS struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewGDACS creates the GDACS adapter.
func NewGDACS(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *GDACS {
	return &GDACS{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

func (g *GDACS) Name() string { return gdacsSource }

func (g *GDACS) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL, nil)
	if err != nil {
		return nil, &FetchError{Source: gdacsSource, Err: err}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: gdacsSource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Source: gdacsSource, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var payload gdacsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Source: gdacsSource, Err: fmt.Errorf("decode response: %w", err)}
	}

	candidates := make([]domain.Candidate, 0, len(payload.Features))
	for _, feature := range payload.Features {
		cand, reason := g.normalize(feature, cutoff)
		if reason != "" {
			g.metrics.ItemsSkipped.WithLabelValues(gdacsSource, reason).Inc()
			if reason == SkipMalformed {
				g.logger.Debug("skipping malformed gdacs feature", "event_id", feature.Properties.EventID)
			}
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (g *GDACS) normalize(feature gdacsFeature, cutoff time.Time) (domain.Candidate, string) {
	p := feature.Properties
	title := p.Name
	if title == "" {
		title = p.EventName
	}
	if title == "" || p.FromDate == "" {
		return domain.Candidate{}, SkipMalformed
	}

	occurredAt, err := parseGDACSTime(p.FromDate)
	if err != nil {
		return domain.Candidate{}, SkipMalformed
	}
	if occurredAt.Before(cutoff) {
		return domain.Candidate{}, SkipStale
	}
	if feature.Geometry.Type != "Point" || len(feature.Geometry.Coordinates) != 2 {
		return domain.Candidate{}, SkipNoLocation
	}

	eventType := p.EventType
	if label, ok := gdacsEventTypes[eventType]; ok {
		eventType = label
	}

	raw, _ := json.Marshal(feature)
	return domain.Candidate{
		Source:      gdacsSource,
		Type:        eventType,
		Title:       title,
		Description: p.Description,
		RegionKey:   p.Country,
		OccurredAt:  occurredAt,
		HasCoords:   true,
		Lon:         feature.Geometry.Coordinates[0],
		Lat:         feature.Geometry.Coordinates[1],
		IdentityKey: domain.DedupKey(title, p.Country),
		Raw:         raw,
	}, ""
}

// parseGDACSTime accepts the timestamp shapes GDACS has been seen to emit:
// RFC 3339 and the same without a zone suffix (treated as UTC).
func parseGDACSTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}

// GDACS GeoJSON response types.

type gdacsResponse struct {
	Features []gdacsFeature `json:"features"`
}

type gdacsFeature struct {
	Properties gdacsProperties `json:"properties"`
	Geometry   gdacsGeometry   `json:"geometry"`
}

type gdacsProperties struct {
	EventID     json.Number `json:"eventid"`
	EventType   string      `json:"eventtype"`
	EventName   string      `json:"eventname"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	AlertLevel  string      `json:"alertlevel"`
	Country     string      `json:"country"`
	FromDate    string      `json:"fromdate"`
	ToDate      string      `json:"todate"`
}

type gdacsGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}
