package tasks

import (
	"sync"

	"github.com/desertthunder/removarr/internal/models"
)

// DefaultActivityCapacity is the number of records kept when no capacity is configured.
const DefaultActivityCapacity = 400

// ActivityLog is a bounded, most-recent-first ring of reconciliation records.
// Add and List are safe for concurrent use; each Add is one atomic record.
type ActivityLog struct {
	mu    sync.Mutex
	items []models.ActivityEntry
	head  int // index of the next write
	size  int
}

// NewActivityLog creates a log holding at most capacity records.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &ActivityLog{items: make([]models.ActivityEntry, capacity)}
}

// Add records entry, evicting the oldest record when full.
func (l *ActivityLog) Add(entry models.ActivityEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items[l.head] = entry
	l.head = (l.head + 1) % len(l.items)
	if l.size < len(l.items) {
		l.size++
	}
}

// List returns a copy of the records, most recent first.
func (l *ActivityLog) List() []models.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.ActivityEntry, 0, l.size)
	for i := 1; i <= l.size; i++ {
		idx := (l.head - i + len(l.items)) % len(l.items)
		out = append(out, l.items[idx])
	}
	return out
}

// Len returns the number of records held.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Cap returns the configured capacity.
func (l *ActivityLog) Cap() int {
	return len(l.items)
}
