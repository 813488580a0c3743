package store

import (
	"sync"
	"time"

	"github.com/crisiswatch/crisis-event-etl/internal/domain"
)

// ActivityEntry is a single line in the pipeline activity feed.
type ActivityEntry struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	Severity int       `json:"severity,omitempty"`
}

// ActivityLog is a bounded ring of recent pipeline activity. Once full, new
// entries displace the oldest.
type ActivityLog struct {
	mu      sync.Mutex
	entries []ActivityEntry
	next    int
	full    bool
}

// NewActivityLog creates a ring holding at most capacity entries.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &ActivityLog{entries: make([]ActivityEntry, capacity)}
}

// Append records an activity line. Severity 0 means not applicable.
func (l *ActivityLog) Append(kind, message string, severity int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = ActivityEntry{
		At:       domain.Now(),
		Kind:     kind,
		Message:  message,
		Severity: severity,
	}
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Tail returns up to n entries, newest first.
func (l *ActivityLog) Tail(n int) []ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.next
	if l.full {
		size = len(l.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]ActivityEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}
