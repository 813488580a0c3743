//go:build gemini

package gemini

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

// These tests hit the real Gemini API and require a valid GEMINI_API_KEY env var.
// Run with: go test -tags=gemini ./internal/adapter/gemini/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Fatal("GEMINI_API_KEY must be set to run smoke tests")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return NewClient(key, model, 30*time.Second, discardLogger())
}

func TestSmoke_Analyze(t *testing.T) {
	c := smokeClient(t)

	result, err := c.Analyze(context.Background(), domain.Event{
		ID:          "smoke-1",
		Title:       "Magnitude 7.2 Earthquake - Mindanao, Philippines",
		Description: "Strong shaking reported across the region, several buildings collapsed, thousands evacuated.",
		Type:        "Earthquake",
		Lat:         7.1,
		Lon:         125.5,
		OccurredAt:  time.Now().Add(-6 * time.Hour),
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Severity, 1.0)
	assert.LessOrEqual(t, result.Severity, 10.0)
	assert.NotEmpty(t, result.Narrative)
}
