package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/dispatcher"
	"github.com/thushan/hub/internal/registrar"
)

var handlerJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const ContentTypeJSON = "application/json"
const ContentTypeHeader = "Content-Type"

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(status)
	_ = handlerJSON.NewEncoder(w).Encode(body)
}

// handleRegister serves POST /register, per spec.md §4.6. The legacy
// surface returns 200 for both success and handled validation/internal
// errors, embedding "status":"error" in the body instead of using an HTTP
// error status - reproduced here literally.
func (a *Application) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reg registrar.Registration
	if err := handlerJSON.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "error",
			"message": "invalid request body: " + err.Error(),
		})
		return
	}

	result, err := a.registrar.Register(reg)
	if err != nil {
		a.log.Warn("registration rejected", "service", reg.Name, "error", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         result.Status,
		"message":        result.Message,
		"service":        serviceToWire(result.Service),
		"routes_created": result.RoutesCreated,
		"status_changes": map[string]interface{}{
			"staled":  result.StatusChanges.Staled,
			"removed": result.StatusChanges.Removed,
		},
	})
}

// handleDashboard serves GET /, per spec.md §6.
func (a *Application) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := a.clock.Now()
	staled, removed := a.reaper.Sweep(now)

	records := a.registry.List()
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	active := map[string]interface{}{}
	stale := map[string]interface{}{}
	for _, rec := range records {
		if rec.IsStale() {
			stale[rec.Name] = serviceToWire(rec)
		} else {
			active[rec.Name] = serviceToWire(rec)
		}
	}

	entries := a.logRing.Tail(20)
	logs := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, map[string]interface{}{
			"timestamp": e.Timestamp.Format(time.RFC3339),
			"level":     string(e.Level),
			"message":   e.Message,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hub_status": "running",
		"mode":       "service_registration_with_heartbeat",
		"services": map[string]interface{}{
			"active":       active,
			"stale":        stale,
			"total_count":  len(records),
			"active_count": len(active),
			"stale_count":  len(stale),
		},
		"heartbeat_info": a.heartbeatInfo(),
		"logs":           logs,
		"status_changes": map[string]interface{}{
			"staled":  staled,
			"removed": removed,
		},
		"endpoints": map[string]string{
			"register":  "POST /register - Register a service (also used for heartbeat)",
			"dashboard": "GET / - View this dashboard",
		},
	})
}

// handleDynamic is the single fallback handler serving every installed
// dynamic route, per spec.md §9's "dynamic route installation" design note:
// a mutable routing table consulted per request, no per-route handler
// objects.
func (a *Application) handleDynamic(w http.ResponseWriter, r *http.Request) {
	method := domain.Method(r.Method)

	var body io.Reader
	if method.HasBody() && r.Body != nil {
		raw, readErr := io.ReadAll(r.Body)
		if readErr == nil && len(raw) > 0 {
			var decoded interface{}
			preview := truncateText(string(raw))
			if handlerJSON.Unmarshal(raw, &decoded) == nil {
				preview = truncateBody(decoded)
			}
			a.log.Info("route called", "method", string(method), "path", r.URL.Path, "body", preview)
			body = bytes.NewReader(raw)
		}
	}
	if body == nil {
		a.log.Info("route called", "method", string(method), "path", r.URL.Path)
	}

	key := domain.RouteKey{Method: method, PublicPath: r.URL.Path}

	envelope, err := a.dispatcher.Dispatch(r.Context(), key, body)
	if err != nil {
		if errors.Is(err, dispatcher.ErrRouteNotFound) {
			http.NotFound(w, r)
			return
		}
		if errors.Is(err, context.Canceled) {
			// caller hung up; nothing to write (spec.md §5: not an upstream failure).
			return
		}
		writeJSON(w, http.StatusGatewayTimeout, map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	if envelope.IsJSON {
		writeJSON(w, envelope.StatusCode, envelope.JSONBody)
		return
	}

	w.Header().Set(ContentTypeHeader, "text/plain")
	w.WriteHeader(envelope.StatusCode)
	_, _ = w.Write([]byte(envelope.TextBody))
}

func serviceToWire(rec *domain.ServiceRecord) map[string]interface{} {
	endpoints := make([]map[string]interface{}, 0, len(rec.Endpoints))
	for _, ep := range rec.Endpoints {
		endpoints = append(endpoints, map[string]interface{}{
			"path":            ep.Path,
			"method":          string(ep.Method),
			"description":     ep.Description,
			"input_schema":    ep.InputSchema,
			"connect_timeout": int(ep.ConnectTimeout.Seconds()),
			"read_timeout":    int(ep.ReadTimeout.Seconds()),
			"max_retries":     ep.MaxRetries,
		})
	}

	out := map[string]interface{}{
		"name":          rec.Name,
		"internal_url":  rec.InternalURL,
		"endpoints":     endpoints,
		"registered_at": rec.RegisteredAt.Format(time.RFC3339),
		"last_seen":     rec.LastSeen.Format(time.RFC3339),
		"status":        string(rec.Status),
	}
	if !rec.MarkedStaleAt.IsZero() {
		out["marked_stale_at"] = rec.MarkedStaleAt.Format(time.RFC3339)
	}
	return out
}
