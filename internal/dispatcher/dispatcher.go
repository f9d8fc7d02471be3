// Package dispatcher implements the hub's Dispatcher (spec.md §4.5): the
// per-request orchestration of Health Prober -> Circuit Breaker ->
// Forwarder for a dynamically installed route. Grounded on the teacher's
// adapter/proxy/sherpa/service.go ProxyRequestToEndpointsLegacy control
// flow (structured logging around each stage; Dispatch does not recover
// panics), reshaped
// around the legacy hub's one-upstream-per-route model rather than Olla's
// multi-endpoint failover.
package dispatcher

import (
	"context"
	"fmt"
	"io"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/internal/util"
)

// Envelope is the JSON shape the Dispatcher returns to the caller: either
// the upstream's passthrough body, or one of the synthetic error envelopes
// of spec.md §4.5/§9.
type Envelope struct {
	StatusCode int
	JSONBody   interface{}
	TextBody   string
	IsJSON     bool
}

// Dispatcher serves inbound proxy requests against installed Routes.
type Dispatcher struct {
	routeTable ports.RouteTable
	breakers   ports.BreakerTable
	prober     ports.HealthProber
	forwarder  ports.Forwarder
	clock      ports.Clock
	log        *logger.StyledLogger

	// legacyErrorStatus, when true, returns HTTP 200 for every synthetic
	// error envelope, matching the legacy hub's FastAPI surface. See
	// SPEC_FULL.md's Open Question decision; false returns the
	// transport-appropriate status instead.
	legacyErrorStatus bool
}

func New(routeTable ports.RouteTable, breakers ports.BreakerTable, prober ports.HealthProber, forwarder ports.Forwarder, clock ports.Clock, log *logger.StyledLogger, legacyErrorStatus bool) *Dispatcher {
	return &Dispatcher{
		routeTable:        routeTable,
		breakers:          breakers,
		prober:            prober,
		forwarder:         forwarder,
		clock:             clock,
		log:               log,
		legacyErrorStatus: legacyErrorStatus,
	}
}

// ErrRouteNotFound distinguishes the one case the Dispatcher does not wrap
// in a synthetic envelope: an unknown public path returns the
// transport-standard 404, per spec.md §4.5 step 1 and §7's NotFound kind.
var ErrRouteNotFound = domain.ErrRouteNotFound

// Dispatch serves one inbound request matching key, with body (nil for
// GET/DELETE). It never returns a transport-level error except
// ErrRouteNotFound / ctx cancellation; every upstream/health/breaker
// failure is translated into an Envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, key domain.RouteKey, body io.Reader) (*Envelope, error) {
	route, ok := d.routeTable.Lookup(key)
	if !ok {
		return nil, ErrRouteNotFound
	}

	requestID := util.GenerateRequestID()
	log := d.log.With("service", route.ServiceName, "route", key.String(), "request_id", requestID)

	b := d.breakers.Get(route.BreakerKey)
	now := d.clock.Now()

	if !b.CanExecute(now) {
		snap := b.Snapshot(now)
		log.WarnWithService("circuit breaker open, rejecting request for", route.ServiceName)
		return d.errorEnvelope(map[string]interface{}{
			"error":           "Service temporarily unavailable",
			"circuit_breaker": "open",
			"retry_after":     int(snap.CoolDown.Seconds()),
		}), nil
	}

	if !d.prober.Probe(ctx, route.UpstreamURL) {
		b.RecordFailure(d.clock.Now())
		log.WarnWithService("health check failed for", route.ServiceName)
		return d.errorEnvelope(map[string]interface{}{
			"error":   "Service health check failed",
			"service": route.ServiceName,
		}), nil
	}

	resp, err := d.forwarder.Forward(ctx, ports.ForwardRequest{
		UpstreamURL:    route.UpstreamURL,
		EndpointPath:   route.EndpointPath,
		Method:         route.Method,
		Body:           body,
		ConnectTimeout: route.ConnectTimeout,
		ReadTimeout:    route.ReadTimeout,
		MaxRetries:     route.MaxRetries,
	})
	if err != nil {
		if ctx.Err() != nil {
			// caller cancellation is not an upstream failure, per spec.md §5
			return nil, ctx.Err()
		}
		b.RecordFailure(d.clock.Now())
		log.ErrorWithService(fmt.Sprintf("forwarding failed: %v, for", err), route.ServiceName)
		return d.errorEnvelope(map[string]interface{}{
			"error":   "Internal service error",
			"details": err.Error(),
		}), nil
	}

	b.RecordSuccess()
	log.InfoWithService("forwarded request to", route.ServiceName)

	return &Envelope{
		StatusCode: resp.StatusCode,
		JSONBody:   resp.JSONBody,
		TextBody:   resp.TextBody,
		IsJSON:     resp.IsJSON,
	}, nil
}

// errorEnvelope builds one of the synthetic error envelopes of spec.md
// §4.5/§9. Unlike /register's response, these carry no "status" field,
// matching original_source/main.py's route_handler exactly.
func (d *Dispatcher) errorEnvelope(body map[string]interface{}) *Envelope {
	status := 503
	if d.legacyErrorStatus {
		status = 200
	}
	return &Envelope{StatusCode: status, JSONBody: body, IsJSON: true}
}
