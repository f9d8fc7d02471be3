// Package registrar implements the hub's Registration API (spec.md §4.6):
// validating an inbound ServiceRegistration, upserting it into the
// Registry, and - on first registration only - installing its Routes.
// Grounded on original_source/main.py's register_service: the
// is_reregistration check, preserved registered_at, and the synchronous
// Reaper sweep before building the response.
package registrar

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/thushan/hub/internal/adapter/reaper"
	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/internal/core/ports"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/internal/util"
)

// EndpointInput is the wire shape of one declared endpoint, before
// normalisation into a domain.EndpointSpec. Field names and JSON tags
// follow the ServiceRegistration wire format of spec.md §6 exactly.
type EndpointInput struct {
	Path           string            `json:"path"`
	Method         string            `json:"method"`
	Description    string            `json:"description"`
	InputSchema    map[string]string `json:"input_schema"`
	Timeout        int               `json:"timeout"`
	ConnectTimeout int               `json:"connect_timeout"`
	ReadTimeout    int               `json:"read_timeout"`
	MaxRetries     int               `json:"max_retries"`
}

// Registration is the wire shape of a ServiceRegistration document.
type Registration struct {
	Name        string          `json:"name"`
	InternalURL string          `json:"internal_url"`
	Endpoints   []EndpointInput `json:"endpoints"`
}

// Result is the Registration API's response, per spec.md §4.6.
type Result struct {
	Status        string
	Message       string
	Service       *domain.ServiceRecord
	RoutesCreated int
	StatusChanges StatusChanges
}

type StatusChanges struct {
	Staled  []string
	Removed []string
}

// Registrar coordinates the Registry and RouteTable as one
// logical unit for register calls, preserving the cross-table invariant
// "record exists in Registry iff its routes exist in Route Table" (spec.md
// §3) without requiring Registry and RouteTable to share a lock.
type Registrar struct {
	registry   ports.Registry
	routeTable ports.RouteTable
	reaper     *reaper.Reaper
	clock      ports.Clock
	log        *logger.StyledLogger
	mu         sync.Mutex
}

func New(registry ports.Registry, routeTable ports.RouteTable, r *reaper.Reaper, clock ports.Clock, log *logger.StyledLogger) *Registrar {
	return &Registrar{
		registry:   registry,
		routeTable: routeTable,
		reaper:     r,
		clock:      clock,
		log:        log,
	}
}

// Register validates and applies reg, per spec.md §4.6.
func (r *Registrar) Register(reg Registration) (*Result, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if len(reg.Endpoints) == 0 {
		return nil, &domain.ValidationError{Field: "endpoints", Message: "must declare at least one endpoint"}
	}
	if strings.ContainsAny(reg.InternalURL, " \t\n") {
		// legacy behaviour: warn only, still proceed.
		r.log.Warn("invalid internal_url contains whitespace, proceeding anyway", "internal_url", reg.InternalURL)
	}
	reg.InternalURL = util.NormaliseBaseURL(reg.InternalURL)

	specs := make([]domain.EndpointSpec, 0, len(reg.Endpoints))
	for _, e := range reg.Endpoints {
		method, _ := domain.ParseMethod(e.Method)
		spec, err := domain.EndpointSpec{
			Path:           e.Path,
			Method:         method,
			Description:    e.Description,
			InputSchema:    e.InputSchema,
			Timeout:        time.Duration(e.Timeout) * time.Second,
			ConnectTimeout: time.Duration(e.ConnectTimeout) * time.Second,
			ReadTimeout:    time.Duration(e.ReadTimeout) * time.Second,
			MaxRetries:     e.MaxRetries,
		}.Normalise()
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	now := r.clock.Now()

	// Synchronous reaper sweep before this registration takes effect, so
	// the response reflects a current snapshot (spec.md §4.6).
	staled, removed := r.reaper.Sweep(now)

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &domain.ServiceRecord{
		Name:         reg.Name,
		InternalURL:  reg.InternalURL,
		Endpoints:    specs,
		RegisteredAt: now,
		LastSeen:     now,
		Status:       domain.StatusActive,
	}
	stored, isHeartbeat := r.registry.Upsert(rec)

	routesCreated := 0
	if !isHeartbeat {
		for _, spec := range specs {
			route := &domain.Route{
				Key:            domain.RouteKey{Method: spec.Method, PublicPath: domain.PublicPath(reg.Name, spec.Path)},
				ServiceName:    reg.Name,
				UpstreamURL:    reg.InternalURL,
				EndpointPath:   spec.Path,
				Method:         spec.Method,
				ConnectTimeout: spec.ConnectTimeout,
				ReadTimeout:    spec.ReadTimeout,
				MaxRetries:     spec.MaxRetries,
				BreakerKey:     domain.NewBreakerKey(reg.Name, spec.Path),
			}
			if existing, ok := r.routeTable.Lookup(route.Key); ok {
				r.log.Warn("route collision, overwriting existing route", "route", route.Key.String(), "previous_service", existing.ServiceName, "service", reg.Name)
			}
			r.routeTable.Install(route)
			r.log.Info(fmt.Sprintf("Created route: %s %s -> %s (connect: %ds, read: %ds, retries: %d)",
				spec.Method, route.Key.PublicPath, util.JoinURLPath(reg.InternalURL, spec.Path),
				int(spec.ConnectTimeout.Seconds()), int(spec.ReadTimeout.Seconds()), spec.MaxRetries))
			r.log.Info(fmt.Sprintf("Input schema for %s: %v", route.Key.PublicPath, spec.InputSchema))
		}
		routesCreated = len(specs)
		r.log.InfoWithService("registered successfully", reg.Name)
	}

	message := reg.Name + " registered"
	if isHeartbeat {
		message = reg.Name + " re-registered"
	}

	return &Result{
		Status:        "success",
		Message:       message,
		Service:       stored,
		RoutesCreated: routesCreated,
		StatusChanges: StatusChanges{Staled: staled, Removed: removed},
	}, nil
}
