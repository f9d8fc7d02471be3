package dispatcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thushan/hub/internal/adapter/breaker"
	"github.com/thushan/hub/internal/adapter/clock"
	"github.com/thushan/hub/internal/adapter/routetable"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/theme"
)

type fakeProber struct {
	healthy bool
}

func (f *fakeProber) Probe(ctx context.Context, baseURL string) bool { return f.healthy }

type fakeForwarder struct {
	resp *ports.ForwardResponse
	err  error
}

func (f *fakeForwarder) Forward(ctx context.Context, req ports.ForwardRequest) (*ports.ForwardResponse, error) {
	return f.resp, f.err
}

func testLogger() *logger.StyledLogger {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger.NewStyledLogger(base, theme.Default(), nil)
}

func installRoute(rt *routetable.Memory, service string) domain.RouteKey {
	key := domain.RouteKey{Method: domain.MethodPost, PublicPath: "/orders/do"}
	rt.Install(&domain.Route{
		Key:            key,
		ServiceName:    service,
		UpstreamURL:    "http://upstream.internal",
		EndpointPath:   "/do",
		Method:         domain.MethodPost,
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		MaxRetries:     1,
		BreakerKey:     domain.NewBreakerKey(service, "/do"),
	})
	return key
}

func TestDispatchRouteNotFound(t *testing.T) {
	rt := routetable.New()
	bt := breaker.NewTable(5, time.Minute)
	d := New(rt, bt, &fakeProber{healthy: true}, &fakeForwarder{}, clock.NewSystem(), testLogger(), true)

	_, err := d.Dispatch(context.Background(), domain.RouteKey{Method: domain.MethodGet, PublicPath: "/nope"}, nil)
	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}

func TestDispatchBreakerOpenReturnsEnvelope(t *testing.T) {
	rt := routetable.New()
	key := installRoute(rt, "orders")
	bt := breaker.NewTable(1, time.Minute)
	bt.Get(domain.NewBreakerKey("orders", "/do")).RecordFailure(time.Now())

	d := New(rt, bt, &fakeProber{healthy: true}, &fakeForwarder{}, clock.NewSystem(), testLogger(), true)

	env, err := d.Dispatch(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, env.StatusCode)
	body := env.JSONBody.(map[string]interface{})
	assert.Equal(t, "open", body["circuit_breaker"])
}

func TestDispatchHealthCheckFailureRecordsBreakerFailure(t *testing.T) {
	rt := routetable.New()
	key := installRoute(rt, "orders")
	bt := breaker.NewTable(5, time.Minute)

	d := New(rt, bt, &fakeProber{healthy: false}, &fakeForwarder{}, clock.NewSystem(), testLogger(), true)

	env, err := d.Dispatch(context.Background(), key, nil)
	require.NoError(t, err)
	body := env.JSONBody.(map[string]interface{})
	assert.Equal(t, "Service health check failed", body["error"])

	snap := bt.Get(domain.NewBreakerKey("orders", "/do")).Snapshot(time.Now())
	assert.Equal(t, 1, snap.FailureCount)
}

func TestDispatchForwarderSuccessRecordsBreakerSuccess(t *testing.T) {
	rt := routetable.New()
	key := installRoute(rt, "orders")
	bt := breaker.NewTable(5, time.Minute)
	b := bt.Get(domain.NewBreakerKey("orders", "/do"))
	b.RecordFailure(time.Now())

	fwd := &fakeForwarder{resp: &ports.ForwardResponse{StatusCode: 200, JSONBody: map[string]interface{}{"ok": true}, IsJSON: true}}
	d := New(rt, bt, &fakeProber{healthy: true}, fwd, clock.NewSystem(), testLogger(), true)

	env, err := d.Dispatch(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, env.StatusCode)
	assert.True(t, env.IsJSON)

	snap := b.Snapshot(time.Now())
	assert.Equal(t, 0, snap.FailureCount)
}

func TestDispatchForwarderErrorReturnsInternalEnvelope(t *testing.T) {
	rt := routetable.New()
	key := installRoute(rt, "orders")
	bt := breaker.NewTable(5, time.Minute)

	fwd := &fakeForwarder{err: errors.New("connection refused")}
	d := New(rt, bt, &fakeProber{healthy: true}, fwd, clock.NewSystem(), testLogger(), false)

	env, err := d.Dispatch(context.Background(), key, nil)
	require.NoError(t, err)
	assert.Equal(t, 503, env.StatusCode)
	body := env.JSONBody.(map[string]interface{})
	assert.Equal(t, "Internal service error", body["error"])
}
