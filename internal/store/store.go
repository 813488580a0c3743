// Package store keeps the canonical event collection in memory behind a
// mutex. Duplicate checking and insertion happen under one lock so two
// adapters racing on the same event cannot both insert it.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

// EventStore is a thread-safe in-memory event collection.
type EventStore struct {
	mu     sync.Mutex
	events map[string]domain.Event
}

// New creates an empty store.
func New() *EventStore {
	return &EventStore{events: make(map[string]domain.Event)}
}

// Create inserts an event unconditionally, assigning its identifier and
// bookkeeping timestamps. A nil severity gets the provisional placeholder.
func (s *EventStore) Create(ev domain.Event) domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ev)
}

// CreateIfNew inserts the event unless it duplicates an existing one within
// the window. The duplicate check and the insert run under the same lock.
// Returns the stored event and true on insert, or the zero event and false
// when suppressed.
func (s *EventStore) CreateIfNew(ev domain.Event, window time.Duration) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		existing = append(existing, e)
	}
	if domain.IsDuplicate(ev.Title, ev.RegionKey, ev.OccurredAt, window, existing) {
		return domain.Event{}, false
	}
	return s.insert(ev), true
}

func (s *EventStore) insert(ev domain.Event) domain.Event {
	now := domain.Now()
	ev.ID = uuid.NewString()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	if ev.Severity == nil {
		sev := domain.ProvisionalSeverity
		ev.Severity = &sev
	}
	s.events[ev.ID] = ev
	return ev
}

// Get returns the event with the given identifier.
func (s *EventStore) Get(id string) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	return ev, ok
}

// Update applies a mutation to the stored event under the lock and bumps
// UpdatedAt. Returns the updated event, or false if the id is unknown.
func (s *EventStore) Update(id string, apply func(*domain.Event)) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return domain.Event{}, false
	}
	apply(&ev)
	ev.ID = id
	ev.UpdatedAt = domain.Now()
	s.events[id] = ev
	return ev, true
}

// List returns all events in display order: processed events first, then
// higher severity, ties broken by most recent occurrence, then by
// identifier for stability.
func (s *EventStore) List() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Processed != out[j].Processed {
			return out[i].Processed
		}
		si, sj := severityOf(out[i]), severityOf(out[j])
		if si != sj {
			return si > sj
		}
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListUnprocessed returns events awaiting classification, oldest first so
// the backlog drains in arrival order.
func (s *EventStore) ListUnprocessed() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, 0)
	for _, ev := range s.events {
		if !ev.Processed {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func severityOf(ev domain.Event) int {
	if ev.Severity == nil {
		return 0
	}
	return *ev.Severity
}

// Stats is an aggregate snapshot of the collection.
type Stats struct {
	Total       int            `json:"total"`
	Processed   int            `json:"processed"`
	Unprocessed int            `json:"unprocessed"`
	ByBand      map[string]int `json:"by_band"`
	BySource    map[string]int `json:"by_source"`
	ByType      map[string]int `json:"by_type"`
}

// Stats computes the aggregate snapshot under the lock.
func (s *EventStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		ByBand:   make(map[string]int),
		BySource: make(map[string]int),
		ByType:   make(map[string]int),
	}
	for _, ev := range s.events {
		st.Total++
		if ev.Processed {
			st.Processed++
		} else {
			st.Unprocessed++
		}
		if ev.Band != "" {
			st.ByBand[string(ev.Band)]++
		}
		st.BySource[ev.Source]++
		st.ByType[ev.Type]++
	}
	return st
}
