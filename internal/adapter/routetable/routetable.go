// Package routetable implements the hub's Route Table (spec.md §4.1): the
// mutable map from (method, public path) to an installed Route. Concurrent
// map usage follows the same xsync.Map pattern as the teacher's
// adapter/registry/memory_registry.go.
package routetable

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

// Memory is an in-memory RouteTable.
type Memory struct {
	routes      *xsync.Map[domain.RouteKey, *domain.Route]
	byService   map[string][]domain.RouteKey
	byServiceMu sync.Mutex
}

func New() *Memory {
	return &Memory{
		routes:    xsync.NewMap[domain.RouteKey, *domain.Route](),
		byService: make(map[string][]domain.RouteKey),
	}
}

func (m *Memory) Install(route *domain.Route) {
	m.routes.Store(route.Key, route)

	m.byServiceMu.Lock()
	defer m.byServiceMu.Unlock()
	keys := m.byService[route.ServiceName]
	for _, k := range keys {
		if k == route.Key {
			return
		}
	}
	m.byService[route.ServiceName] = append(keys, route.Key)
}

func (m *Memory) Lookup(key domain.RouteKey) (*domain.Route, bool) {
	return m.routes.Load(key)
}

func (m *Memory) RemoveByService(serviceName string) {
	m.byServiceMu.Lock()
	keys := m.byService[serviceName]
	delete(m.byService, serviceName)
	m.byServiceMu.Unlock()

	for _, k := range keys {
		m.routes.Delete(k)
	}
}

func (m *Memory) RoutesForService(serviceName string) []*domain.Route {
	m.byServiceMu.Lock()
	keys := append([]domain.RouteKey(nil), m.byService[serviceName]...)
	m.byServiceMu.Unlock()

	out := make([]*domain.Route, 0, len(keys))
	for _, k := range keys {
		if r, ok := m.routes.Load(k); ok {
			out = append(out, r)
		}
	}
	return out
}

var _ ports.RouteTable = (*Memory)(nil)
