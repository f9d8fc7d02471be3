package registrar

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thushan/hub/internal/adapter/breaker"
	"github.com/thushan/hub/internal/adapter/clock"
	"github.com/thushan/hub/internal/adapter/logring"
	"github.com/thushan/hub/internal/adapter/reaper"
	"github.com/thushan/hub/internal/adapter/registry"
	"github.com/thushan/hub/internal/adapter/routetable"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/theme"
)

func newTestRegistrar(t *testing.T) (*Registrar, *registry.Memory, *routetable.Memory) {
	t.Helper()
	reg := registry.New()
	rt := routetable.New()
	bt := breaker.NewTable(5, time.Minute)
	ring := logring.New(10, clock.NewSystem())
	fake := clock.NewFake(time.Now())
	r := reaper.New(reg, rt, bt, ring, fake, 15*time.Minute, time.Hour, time.Minute)

	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := logger.NewStyledLogger(base, theme.Default(), ring)

	return New(reg, rt, r, fake, log), reg, rt
}

func sampleRegistration() Registration {
	return Registration{
		Name:        "orders",
		InternalURL: "http://orders.internal:8080",
		Endpoints: []EndpointInput{
			{Path: "/do", Method: "POST"},
			{Path: "/status", Method: "GET"},
		},
	}
}

func TestRegisterFirstTimeInstallsRoutes(t *testing.T) {
	r, reg, rt := newTestRegistrar(t)

	result, err := r.Register(sampleRegistration())
	require.NoError(t, err)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 2, result.RoutesCreated)

	rec, ok := reg.Get("orders")
	require.True(t, ok)
	assert.Equal(t, domain.StatusActive, rec.Status)

	routes := rt.RoutesForService("orders")
	assert.Len(t, routes, 2)
}

func TestRegisterHeartbeatDoesNotReinstallRoutes(t *testing.T) {
	r, _, rt := newTestRegistrar(t)

	_, err := r.Register(sampleRegistration())
	require.NoError(t, err)

	result, err := r.Register(sampleRegistration())
	require.NoError(t, err)
	assert.Equal(t, 0, result.RoutesCreated)
	assert.Len(t, rt.RoutesForService("orders"), 2)
}

func TestRegisterHeartbeatPreservesRegisteredAt(t *testing.T) {
	r, reg, _ := newTestRegistrar(t)

	first, err := r.Register(sampleRegistration())
	require.NoError(t, err)
	firstRegisteredAt := first.Service.RegisteredAt

	time.Sleep(time.Millisecond)
	second, err := r.Register(sampleRegistration())
	require.NoError(t, err)

	assert.Equal(t, firstRegisteredAt, second.Service.RegisteredAt)
	assert.True(t, second.Service.LastSeen.After(firstRegisteredAt) || second.Service.LastSeen.Equal(firstRegisteredAt))

	rec, ok := reg.Get("orders")
	require.True(t, ok)
	assert.Equal(t, firstRegisteredAt, rec.RegisteredAt)
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r, _, _ := newTestRegistrar(t)

	reg := sampleRegistration()
	reg.Name = "  "

	_, err := r.Register(reg)
	assert.Error(t, err)
}

func TestRegisterRejectsEndpointPathWithoutLeadingSlash(t *testing.T) {
	r, _, _ := newTestRegistrar(t)

	reg := sampleRegistration()
	reg.Endpoints[0].Path = "do"

	_, err := r.Register(reg)
	assert.Error(t, err)
}

func TestRegisterIsIdempotentOnRepeatedIdenticalCalls(t *testing.T) {
	r, reg, rt := newTestRegistrar(t)

	_, err := r.Register(sampleRegistration())
	require.NoError(t, err)
	_, err = r.Register(sampleRegistration())
	require.NoError(t, err)

	rec, ok := reg.Get("orders")
	require.True(t, ok)
	assert.Len(t, rec.Endpoints, 2)
	assert.Len(t, rt.RoutesForService("orders"), 2, "repeated registration must not install duplicate routes")
}
