package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func existingEvent(title, region string, at time.Time) Event {
	return Event{Title: title, RegionKey: region, OccurredAt: at}
}

func TestIsDuplicate_Window(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		offset   time.Duration
		expected bool
	}{
		{"same instant", 0, true},
		{"8 hours apart", 8 * time.Hour, true},
		{"just inside the window", 23*time.Hour + 59*time.Minute, true},
		{"just outside the window", 24*time.Hour + 1*time.Minute, false},
		{"exactly at the window", 24 * time.Hour, false},
		{"candidate earlier than existing", -8 * time.Hour, true},
		{"a week apart", 7 * 24 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := []Event{existingEvent("Flood Alert", "", base)}
			got := IsDuplicate("Flood Alert", "", base.Add(tt.offset), DefaultDedupWindow, existing)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsDuplicate_TitleNormalization(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	existing := []Event{existingEvent("flood alert", "", base.Add(20*time.Hour))}

	assert.True(t, IsDuplicate("Flood Alert", "", base, DefaultDedupWindow, existing),
		"case-insensitive match")
	assert.True(t, IsDuplicate("  Flood Alert  ", "", base, DefaultDedupWindow, existing),
		"whitespace-trimmed match")
	assert.False(t, IsDuplicate("Flood Alerts", "", base, DefaultDedupWindow, existing),
		"no fuzzy matching: a one-character difference is a distinct event")
}

func TestIsDuplicate_RegionComposite(t *testing.T) {
	base := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	existing := []Event{existingEvent("Tropical Cyclone", "Mozambique", base)}

	assert.True(t, IsDuplicate("Tropical Cyclone", "Mozambique", base.Add(time.Hour), DefaultDedupWindow, existing))
	assert.True(t, IsDuplicate("tropical cyclone", "MOZAMBIQUE", base.Add(time.Hour), DefaultDedupWindow, existing))
	assert.False(t, IsDuplicate("Tropical Cyclone", "Malawi", base.Add(time.Hour), DefaultDedupWindow, existing),
		"same title in a different region is a distinct event")
	assert.False(t, IsDuplicate("Tropical Cyclone", "", base.Add(time.Hour), DefaultDedupWindow, existing),
		"region-scoped event does not match a region-less candidate")
}

func TestIsDuplicate_CustomWindow(t *testing.T) {
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	existing := []Event{existingEvent("Flood Alert", "", base)}

	assert.False(t, IsDuplicate("Flood Alert", "", base.Add(2*time.Hour), time.Hour, existing))
	assert.True(t, IsDuplicate("Flood Alert", "", base.Add(30*time.Minute), time.Hour, existing))

	// Non-positive window falls back to the default.
	assert.True(t, IsDuplicate("Flood Alert", "", base.Add(8*time.Hour), 0, existing))
}

func TestIsDuplicate_EmptyCollection(t *testing.T) {
	assert.False(t, IsDuplicate("Anything", "", time.Now(), DefaultDedupWindow, nil))
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "flood alert", DedupKey("  Flood Alert ", ""))
	assert.Equal(t, "flood alert|kenya", DedupKey("Flood Alert", " Kenya"))
}
