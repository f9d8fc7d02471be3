package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/hub/internal/adapter/clock"
	"github.com/thushan/hub/internal/adapter/logring"
	"github.com/thushan/hub/internal/config"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/theme"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Port = 0

	clk := clock.NewSystem()
	ring := logring.New(cfg.Hub.MaxLogs, clk)
	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	styled := logger.NewStyledLogger(base, theme.Default(), ring)

	a, err := New(cfg, styled, ring)
	require.NoError(t, err)
	return a
}

func TestRegisterThenDynamicDispatch(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	}))
	defer upstream.Close()

	a := newTestApplication(t)
	mux := a.buildMux()

	regBody, _ := json.Marshal(map[string]interface{}{
		"name":         "orders",
		"internal_url": upstream.URL,
		"endpoints": []map[string]interface{}{
			{"path": "/checkout", "method": "POST"},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(regBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var regResp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &regResp))
	assert.Equal(t, "success", regResp["status"])
	assert.EqualValues(t, 1, regResp["routes_created"])

	dispatchReq := httptest.NewRequest(http.MethodPost, "/orders/checkout", bytes.NewReader([]byte(`{}`)))
	dispatchRec := httptest.NewRecorder()
	mux.ServeHTTP(dispatchRec, dispatchReq)

	require.Equal(t, http.StatusOK, dispatchRec.Code)
	var dispatchResp map[string]interface{}
	require.NoError(t, json.Unmarshal(dispatchRec.Body.Bytes(), &dispatchResp))
	assert.Equal(t, "ok", dispatchResp["result"])
}

func TestDynamicDispatchUnknownRouteIs404(t *testing.T) {
	a := newTestApplication(t)
	mux := a.buildMux()

	req := httptest.NewRequest(http.MethodGet, "/no-such-service/anything", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardReportsRegisteredService(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	a := newTestApplication(t)
	mux := a.buildMux()

	regBody, _ := json.Marshal(map[string]interface{}{
		"name":         "billing",
		"internal_url": upstream.URL,
		"endpoints": []map[string]interface{}{
			{"path": "/charge", "method": "POST"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(regBody))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	dashReq := httptest.NewRequest(http.MethodGet, "/", nil)
	dashRec := httptest.NewRecorder()
	mux.ServeHTTP(dashRec, dashReq)
	require.Equal(t, http.StatusOK, dashRec.Code)

	var dash map[string]interface{}
	require.NoError(t, json.Unmarshal(dashRec.Body.Bytes(), &dash))
	assert.Equal(t, "running", dash["hub_status"])

	services := dash["services"].(map[string]interface{})
	assert.EqualValues(t, 1, services["total_count"])
	active := services["active"].(map[string]interface{})
	_, ok := active["billing"]
	assert.True(t, ok)
}

func TestRegisterRejectsMissingName(t *testing.T) {
	a := newTestApplication(t)
	mux := a.buildMux()

	body, _ := json.Marshal(map[string]interface{}{
		"internal_url": "http://x",
		"endpoints":    []map[string]interface{}{{"path": "/a"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
}
