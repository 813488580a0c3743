// Package feed contains the provider adapters that pull raw disaster data
// and normalize it into candidate events. Each adapter owns its provider's
// wire format; nothing provider-specific leaks past the Candidate type.
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

// Source is a single upstream disaster feed.
type Source interface {
	// Name is the stable source label used in metrics, logs, and stored events.
	Name() string

	// Fetch pulls current items and returns candidates with an occurrence
	// time at or after cutoff. Items the adapter cannot normalize are
	// counted and dropped, never returned as errors.
	Fetch(ctx context.Context, cutoff time.Time) ([]domain.Candidate, error)
}

// Skip reasons reported alongside fetch results.
const (
	SkipNoLocation    = "no_location"
	SkipUnknownRegion = "unknown_region"
	SkipStale         = "stale"
	SkipMalformed     = "malformed"
)

// FetchError wraps a provider failure with its source label so callers can
// attribute it without string matching.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
