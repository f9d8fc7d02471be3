// BackgroundMonitor reproduces the legacy hub's periodic_health_checks: an
// independent sweep over every active service, logging WARNING on failure.
// It is distinct from the inline probe the Dispatcher runs before every
// forward - it never gates traffic and never touches a Breaker, it exists
// purely to keep a health trail in the Log Ring between requests.
package health

import (
	"context"
	"time"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
)

// DefaultInterval matches the legacy hub's asyncio.sleep(60) cadence.
const DefaultInterval = 60 * time.Second

// BackgroundMonitor periodically probes every active registered service,
// independent of any in-flight dispatch.
type BackgroundMonitor struct {
	registry ports.Registry
	prober   ports.HealthProber
	logRing  ports.LogRing
	clock    ports.Clock
	interval time.Duration
}

func NewBackgroundMonitor(registry ports.Registry, prober ports.HealthProber, logRing ports.LogRing, clock ports.Clock, interval time.Duration) *BackgroundMonitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &BackgroundMonitor{
		registry: registry,
		prober:   prober,
		logRing:  logRing,
		clock:    clock,
		interval: interval,
	}
}

// Sweep probes every active service once, logging a WARNING per failure.
// It never mutates Registry status (that is the Reaper's job alone) and
// never records a Breaker failure.
func (m *BackgroundMonitor) Sweep(ctx context.Context) {
	for _, rec := range m.registry.List() {
		if rec.IsStale() {
			continue
		}
		if !m.prober.Probe(ctx, rec.InternalURL) {
			m.logRing.Append(domain.LevelWarning, "service "+rec.Name+" failed periodic health check")
		}
	}
}

// Run ticks Sweep at the configured interval until ctx is cancelled.
func (m *BackgroundMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}
