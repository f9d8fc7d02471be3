// Package registry implements the hub's Registry (spec.md §4.1): the
// authoritative map from service name to ServiceRecord. Grounded on the
// teacher's adapter/registry/memory_registry.go, which wraps an xsync.Map
// with a coarse RWMutex for operations that must observe-then-mutate
// multiple keys together.
package registry

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

// Memory is an in-memory Registry. Non-goal per spec.md: no persistence, a
// restart empties it.
type Memory struct {
	services *xsync.Map[string, *domain.ServiceRecord]
	mu       sync.RWMutex
}

func New() *Memory {
	return &Memory{
		services: xsync.NewMap[string, *domain.ServiceRecord](),
	}
}

// Upsert inserts rec as a first registration, or - if a record with the
// same name already exists - refreshes LastSeen/Endpoints/Status in place
// and reports isHeartbeat=true while preserving the original RegisteredAt,
// matching the legacy hub's re-registration semantics (main.py's
// is_reregistration check).
func (m *Memory) Upsert(rec *domain.ServiceRecord) (*domain.ServiceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.services.Load(rec.Name)
	if !ok {
		stored := rec.Clone()
		m.services.Store(rec.Name, stored)
		return stored, false
	}

	existing.Endpoints = rec.Endpoints
	existing.InternalURL = rec.InternalURL
	existing.LastSeen = rec.LastSeen
	existing.Status = domain.StatusActive
	existing.MarkedStaleAt = time.Time{}
	return existing.Clone(), true
}

func (m *Memory) Get(name string) (*domain.ServiceRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.services.Load(name)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (m *Memory) List() []*domain.ServiceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.ServiceRecord, 0, m.services.Size())
	m.services.Range(func(_ string, rec *domain.ServiceRecord) bool {
		out = append(out, rec.Clone())
		return true
	})
	return out
}

func (m *Memory) Evict(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services.Delete(name)
}

func (m *Memory) MarkStale(name string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.services.Load(name); ok {
		rec.Status = domain.StatusStale
		rec.MarkedStaleAt = at
	}
}

func (m *Memory) Revive(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.services.Load(name); ok {
		rec.Status = domain.StatusActive
		rec.MarkedStaleAt = time.Time{}
	}
}

var _ ports.Registry = (*Memory)(nil)
