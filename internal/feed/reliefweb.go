package feed

import (
	"bytes"
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

const reliefWebSource = "reliefweb"

// maxCountryFanOut caps how many per-country candidates one disaster report
// expands into. Reports spanning more countries keep the first entries in
// provider order, primary country first.
const maxCountryFanOut = 5

// ReliefWeb pulls humanitarian disaster reports from the ReliefWeb API.
// Reports are country-scoped, so each one fans out into per-country
// candidates positioned at the country centroid.
type ReliefWeb struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewReliefWeb creates the ReliefWeb adapter.
func NewReliefWeb(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *ReliefWeb {
	return &ReliefWeb{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

func (r *ReliefWeb) Name() string { return reliefWebSource }

func (r *ReliefWeb) Fetch(ctx context.Context, cutoff time.Time) ([]domain.Candidate, error) {
	body, err := json.Marshal(reliefWebQuery{
		Limit: 100,
		Filter: reliefWebFilter{
			Field: "date.created",
			Value: reliefWebRange{From: cutoff.UTC().Format(time.RFC3339)},
		},
		Fields: reliefWebFields{
			Include: []string{"name", "description", "date.created", "country", "primary_type"},
		},
		Sort: []string{"date.created:desc"},
	})
	if err != nil {
		return nil, &FetchError{Source: reliefWebSource, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"?appname=crisiswatch", bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Source: reliefWebSource, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: reliefWebSource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{Source: reliefWebSource, Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody)}
	}

	var payload reliefWebResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Source: reliefWebSource, Err: fmt.Errorf("decode response: %w", err)}
	}

	var candidates []domain.Candidate
	for _, item := range payload.Data {
		candidates = append(candidates, r.normalize(item, cutoff)...)
	}
	return candidates, nil
}

func (r *ReliefWeb) normalize(item reliefWebItem, cutoff time.Time) []domain.Candidate {
	f := item.Fields
	if f.Name == "" || f.Date.Created == "" {
		r.metrics.ItemsSkipped.WithLabelValues(reliefWebSource, SkipMalformed).Inc()
		return nil
	}
	occurredAt, err := time.Parse(time.RFC3339, f.Date.Created)
	if err != nil {
		r.metrics.ItemsSkipped.WithLabelValues(reliefWebSource, SkipMalformed).Inc()
		return nil
	}
	if occurredAt.Before(cutoff) {
		r.metrics.ItemsSkipped.WithLabelValues(reliefWebSource, SkipStale).Inc()
		return nil
	}
	if len(f.Country) == 0 {
		r.metrics.ItemsSkipped.WithLabelValues(reliefWebSource, SkipNoLocation).Inc()
		return nil
	}

	countries := orderCountries(f.Country)
	if len(countries) > maxCountryFanOut {
		r.logger.Debug("capping country fan-out",
			"report", f.Name, "countries", len(countries), "cap", maxCountryFanOut)
		countries = countries[:maxCountryFanOut]
	}

	raw, _ := json.Marshal(item)
	out := make([]domain.Candidate, 0, len(countries))
	for _, country := range countries {
		title := fmt.Sprintf("%s - %s", f.Name, country)
		out = append(out, domain.Candidate{
			Source:       reliefWebSource,
			Type:         f.PrimaryType.Name,
			Title:        title,
			Description:  f.Description,
			RegionKey:    country,
			OccurredAt:   occurredAt,
			LocationName: country,
			IdentityKey:  domain.DedupKey(title, country),
			Raw:          raw,
		})
	}
	return out
}

// orderCountries puts the primary country first, keeping provider order
// for the rest.
func orderCountries(countries []reliefWebCountry) []string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		if c.Primary {
			out = append(out, c.Name)
		}
	}
	for _, c := range countries {
		if !c.Primary {
			out = append(out, c.Name)
		}
	}
	return out
}

// ReliefWeb API request and response types.

type reliefWebQuery struct {
	Limit  int             `json:"limit"`
	Filter reliefWebFilter `json:"filter"`
	Fields reliefWebFields `json:"fields"`
	Sort   []string        `json:"sort"`
}

type reliefWebFilter struct {
	Field string         `json:"field"`
	Value reliefWebRange `json:"value"`
}

type reliefWebRange struct {
	From string `json:"from"`
}

type reliefWebFields struct {
	Include []string `json:"include"`
}

type reliefWebResponse struct {
	Data []reliefWebItem `json:"data"`
}

type reliefWebItem struct {
	ID     json.Number        `json:"id"`
	Fields reliefWebItemField `json:"fields"`
}

type reliefWebItemField struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Date        reliefWebDate      `json:"date"`
	Country     []reliefWebCountry `json:"country"`
	PrimaryType reliefWebType      `json:"primary_type"`
}

type reliefWebDate struct {
	Created string `json:"created"`
}

type reliefWebCountry struct {
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

type reliefWebType struct {
	Name string `json:"name"`
}
