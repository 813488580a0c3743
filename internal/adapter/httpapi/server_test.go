package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
	"github.com/crisiswatch/crisis-event-etl/internal/store"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

func alwaysReady() readyFunc {
	return func(context.Context) error { return nil }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

func testServer(st *store.EventStore, activity *store.ActivityLog, ready ReadinessChecker) *Server {
	if st == nil {
		st = store.New()
	}
	if activity == nil {
		activity = store.NewActivityLog(50)
	}
	return NewServer(":0", st, activity, ready, discardLogger())
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, testServer(nil, nil, alwaysReady()), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := doRequest(t, testServer(nil, nil, alwaysReady()), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		notReady := readyFunc(func(context.Context) error {
			return errors.New("feeds have not completed a pass")
		})
		rec := doRequest(t, testServer(nil, nil, notReady), "/readyz")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "not ready")
	})
}

func TestListEvents(t *testing.T) {
	st := store.New()
	high := st.Create(domain.Event{Title: "Major Quake", Severity: intPtr(9), Processed: true})
	st.Create(domain.Event{Title: "Minor Flood", Severity: intPtr(2)})

	s := testServer(st, nil, alwaysReady())

	t.Run("all events in display order", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Events []domain.Event `json:"events"`
			Count  int            `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 2, body.Count)
		assert.Equal(t, "Major Quake", body.Events[0].Title)
	})

	t.Run("processed filter", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events?processed=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Events []domain.Event `json:"events"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Events, 1)
		assert.Equal(t, high.ID, body.Events[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events?limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
	})

	t.Run("bad filter", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events?processed=maybe")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetEvent(t *testing.T) {
	st := store.New()
	ev := st.Create(domain.Event{Title: "Wildfire - Alberta, Canada"})
	s := testServer(st, nil, alwaysReady())

	t.Run("found", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events/"+ev.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, "Wildfire - Alberta, Canada", got.Title)
	})

	t.Run("missing", func(t *testing.T) {
		rec := doRequest(t, s, "/api/events/no-such-id")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStats(t *testing.T) {
	st := store.New()
	st.Create(domain.Event{Title: "A", Source: "eonet", Type: "Wildfires"})
	st.Create(domain.Event{Title: "B", Source: "gdacs", Type: "Flood"})

	rec := doRequest(t, testServer(st, nil, alwaysReady()), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 2, got.Unprocessed)
	assert.Equal(t, map[string]int{"eonet": 1, "gdacs": 1}, got.BySource)
}

func TestActivity(t *testing.T) {
	activity := store.NewActivityLog(50)
	activity.Append("ingest", "eonet: 3 new events, 1 duplicates suppressed", 0)
	activity.Append("classify", "Flood Alert: severity 6 (medium)", 6)

	s := testServer(nil, activity, alwaysReady())

	t.Run("newest first", func(t *testing.T) {
		rec := doRequest(t, s, "/api/activity")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Activity []store.ActivityEntry `json:"activity"`
			Count    int                   `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 2, body.Count)
		assert.Equal(t, "classify", body.Activity[0].Kind)
		assert.Equal(t, 6, body.Activity[0].Severity)
	})

	t.Run("limit", func(t *testing.T) {
		rec := doRequest(t, s, "/api/activity?limit=1")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := doRequest(t, s, "/api/activity?limit=-2")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, testServer(nil, nil, alwaysReady()), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
