// Package reaper implements the hub's Reaper (spec.md §4.1/§4.7): the
// background sweep that marks services stale after stale_after and evicts
// them (together with their routes and breaker state) after remove_after.
// Grounded on original_source/main.py's check_and_update_service_statuses,
// reshaped as a pure Sweep function plus a ticking Run loop in the style of
// the teacher's background goroutines (e.g. the health checker's own
// ticker-driven loop in adapter/health/checker.go).
package reaper

import (
	"context"
	"time"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

// Reaper periodically sweeps the Registry, staling and evicting services
// whose heartbeat has lapsed.
type Reaper struct {
	registry    ports.Registry
	routeTable  ports.RouteTable
	breakers    ports.BreakerTable
	logRing     ports.LogRing
	clock       ports.Clock
	staleAfter  time.Duration
	removeAfter time.Duration
	interval    time.Duration
}

func New(registry ports.Registry, routeTable ports.RouteTable, breakers ports.BreakerTable, logRing ports.LogRing, clock ports.Clock, staleAfter, removeAfter, interval time.Duration) *Reaper {
	return &Reaper{
		registry:    registry,
		routeTable:  routeTable,
		breakers:    breakers,
		logRing:     logRing,
		clock:       clock,
		staleAfter:  staleAfter,
		removeAfter: removeAfter,
		interval:    interval,
	}
}

// Sweep is the pure decision function: given "now", it stales services whose
// last heartbeat is older than staleAfter but younger than removeAfter, and
// evicts (Registry, Route Table, Breaker Table) services older than
// removeAfter. Calling Sweep twice with no intervening heartbeat yields an
// empty second result - spec.md §8's reaper idempotence property - because
// a removed service no longer appears in registry.List() and an already
// stale service is not staled again.
func (r *Reaper) Sweep(now time.Time) (staled, removed []string) {
	for _, rec := range r.registry.List() {
		age := now.Sub(rec.LastSeen)

		switch {
		case age > r.removeAfter:
			for _, route := range r.routeTable.RoutesForService(rec.Name) {
				r.breakers.Remove(route.BreakerKey)
			}
			r.routeTable.RemoveByService(rec.Name)
			r.registry.Evict(rec.Name)
			removed = append(removed, rec.Name)

		case age > r.staleAfter:
			if !rec.IsStale() {
				r.registry.MarkStale(rec.Name, now)
				staled = append(staled, rec.Name)
			}

		default:
			if rec.IsStale() {
				r.registry.Revive(rec.Name)
			}
		}
	}
	return staled, removed
}

// Run ticks Sweep at the configured interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staled, removed := r.Sweep(r.clock.Now())
			for _, name := range staled {
				r.logRing.Append(domain.LevelWarning, "service marked stale: "+name)
			}
			for _, name := range removed {
				r.logRing.Append(domain.LevelWarning, "service removed: "+name)
			}
		}
	}
}
