// Package logring implements the hub's bounded in-memory log (spec.md §4.1):
// a fixed-capacity ring of the most recent events, read by the dashboard.
package logring

import (
	"sync"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

const DefaultCapacity = 100

// Ring is a fixed-capacity, append-only, tail-readable log buffer. Append is
// total: once size exceeds capacity the oldest entry is dropped. Appenders
// never await inside the critical section.
type Ring struct {
	mu       sync.Mutex
	entries  []domain.LogEntry
	capacity int
	clock    ports.Clock
}

func New(capacity int, clock ports.Clock) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		entries:  make([]domain.LogEntry, 0, capacity),
		capacity: capacity,
		clock:    clock,
	}
}

func (r *Ring) Append(level domain.Level, message string) {
	entry := domain.LogEntry{
		Timestamp: r.clock.Now(),
		Level:     level,
		Message:   message,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	if over := len(r.entries) - r.capacity; over > 0 {
		r.entries = r.entries[over:]
	}
}

// Tail returns a snapshot of the n most recently appended entries, oldest
// first. Callers never observe a partially-written entry.
func (r *Ring) Tail(n int) []domain.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > len(r.entries) {
		n = len(r.entries)
	}

	start := len(r.entries) - n
	out := make([]domain.LogEntry, n)
	copy(out, r.entries[start:])
	return out
}

var _ ports.LogRing = (*Ring)(nil)
