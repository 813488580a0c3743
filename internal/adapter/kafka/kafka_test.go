package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 6, 12, 15, 10, 0, 0, time.UTC)
	severity := 8
	ev := domain.Event{
		ID:         "evt-1",
		Type:       "Tropical Cyclone",
		Title:      "Tropical Cyclone Freddy - Mozambique",
		Lat:        -18.7,
		Lon:        35.5,
		Processed:  true,
		Severity:   &severity,
		Band:       domain.BandHigh,
		UpdatedAt:  now,
		OccurredAt: now.Add(-36 * time.Hour),
	}

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("evt-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"severity_band":"high"`)
	assert.Contains(t, string(msg.Value), `"severity":8`)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("Tropical Cyclone"), msg.Headers[0].Value)
	assert.Equal(t, "severity", msg.Headers[1].Key)
	assert.Equal(t, []byte("8"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_UnscoredEvent(t *testing.T) {
	msg, err := serializeToMessage(domain.Event{ID: "evt-2", Type: "Flood"})
	require.NoError(t, err)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, []byte("0"), msg.Headers[1].Value)
}
