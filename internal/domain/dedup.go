package domain

import (
	"strings"
	"time"
)

// DefaultDedupWindow is the fixed time window for duplicate suppression.
// The window is deliberately provider-agnostic; it is configurable rather
// than varied per provider.
const DefaultDedupWindow = 24 * time.Hour

// DedupKey normalizes a title and region into the composite matching key:
// case-insensitive, whitespace-trimmed exact equality only. Sources without
// region scoping pass an empty region.
func DedupKey(title, regionKey string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	r := strings.ToLower(strings.TrimSpace(regionKey))
	if r == "" {
		return t
	}
	return t + "|" + r
}

// IsDuplicate reports whether a candidate duplicates any existing event:
// same dedup key and occurrence timestamps strictly less than window apart.
// Pure read-only query; the caller owns atomicity of check-then-insert.
func IsDuplicate(title, regionKey string, occurredAt time.Time, window time.Duration, existing []Event) bool {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	key := DedupKey(title, regionKey)
	for i := range existing {
		if DedupKey(existing[i].Title, existing[i].RegionKey) != key {
			continue
		}
		delta := occurredAt.Sub(existing[i].OccurredAt)
		if delta < 0 {
			delta = -delta
		}
		if delta < window {
			return true
		}
	}
	return false
}
