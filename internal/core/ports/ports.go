package ports

import (
	"context"
	"io"
	"time"

	"github.com/thushan/hub/internal/core/domain"
)

// Clock isolates wall-clock reads so staleness, eviction and backoff
// decisions are deterministic in tests. Nothing outside an adapter/clock
// implementation should call time.Now() directly.
type Clock interface {
	Now() time.Time
}

// LogRing is the bounded, append-only, tail-readable log sink owned by the
// core. Console/file logging via the StyledLogger is a side-observer, not a
// correctness dependency.
type LogRing interface {
	Append(level domain.Level, message string)
	Tail(n int) []domain.LogEntry
}

// Registry is the authoritative mapping from service name to ServiceRecord.
type Registry interface {
	// Upsert inserts or refreshes a record, returning the stored record and
	// whether this was a first registration (false) or a heartbeat (true).
	Upsert(rec *domain.ServiceRecord) (stored *domain.ServiceRecord, isHeartbeat bool)
	Get(name string) (*domain.ServiceRecord, bool)
	List() []*domain.ServiceRecord
	Evict(name string)
	// MarkStale/Revive mutate status in place; used by the Reaper.
	MarkStale(name string, at time.Time)
	Revive(name string)
}

// RouteTable is the mutable mapping from (method, publicPath) to Route.
type RouteTable interface {
	Install(route *domain.Route)
	Lookup(key domain.RouteKey) (*domain.Route, bool)
	RemoveByService(serviceName string)
	RoutesForService(serviceName string) []*domain.Route
}

// BreakerTable lazily creates and looks up per-route Breakers.
type BreakerTable interface {
	Get(key domain.BreakerKey) Breaker
	Remove(key domain.BreakerKey)
}

// Breaker is the per-route circuit breaker state machine, see spec.md §4.2.
type Breaker interface {
	CanExecute(now time.Time) bool
	RecordSuccess()
	RecordFailure(now time.Time)
	Snapshot(now time.Time) domain.BreakerSnapshot
}

// HealthProber performs a one-shot reachability check against an upstream.
// It never mutates breaker state and never counts toward the breaker.
type HealthProber interface {
	Probe(ctx context.Context, baseURL string) bool
}

// ForwardRequest is the Forwarder's input.
type ForwardRequest struct {
	UpstreamURL    string
	EndpointPath   string
	Method         domain.Method
	Body           io.Reader
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxRetries     int
}

// ForwardResponse is the Forwarder's successful result.
type ForwardResponse struct {
	StatusCode int
	Header     map[string][]string
	// JSONBody holds the decoded JSON result when the upstream answers with
	// an application/json content type; TextBody holds the raw body
	// otherwise. Exactly one of the two is populated.
	JSONBody interface{}
	TextBody string
	IsJSON   bool
}

// Forwarder executes an outbound call against an upstream with bounded
// retries and exponential backoff plus jitter, per spec.md §4.4.
type Forwarder interface {
	Forward(ctx context.Context, req ForwardRequest) (*ForwardResponse, error)
}
