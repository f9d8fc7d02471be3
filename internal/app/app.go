// Package app wires the hub's core components (§2 of spec.md) into an HTTP
// surface and owns process lifecycle, grounded on the teacher's
// internal/app/app.go New/Start/Stop shape.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"github.com/thushan/hub/internal/adapter/breaker"
	"github.com/thushan/hub/internal/adapter/clock"
	"github.com/thushan/hub/internal/adapter/forwarder"
	"github.com/thushan/hub/internal/adapter/health"
	"github.com/thushan/hub/internal/adapter/reaper"
	"github.com/thushan/hub/internal/adapter/registry"
	"github.com/thushan/hub/internal/adapter/routetable"
	"github.com/thushan/hub/internal/config"
	"github.com/thushan/hub/internal/core/ports"
	"github.com/thushan/hub/internal/dispatcher"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/internal/registrar"
	"github.com/thushan/hub/internal/util"
)

// Application owns the hub's wired components and their HTTP surface.
type Application struct {
	cfg *config.Config
	log *logger.StyledLogger

	clock   ports.Clock
	logRing ports.LogRing

	registry   ports.Registry
	routeTable ports.RouteTable
	breakers   ports.BreakerTable

	reaper     *reaper.Reaper
	monitor    *health.BackgroundMonitor
	registrar  *registrar.Registrar
	dispatcher *dispatcher.Dispatcher

	limiter *registerLimiter
	server  *http.Server

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New wires every adapter named in spec.md §2 behind the core's ports, the
// way the teacher's app.New builds discoveryService/healthChecker/registry
// before ever touching net/http.
func New(cfg *config.Config, log *logger.StyledLogger, logRing ports.LogRing) (*Application, error) {
	sysClock := clock.NewSystem()

	reg := registry.New()
	routes := routetable.New()
	breakers := breaker.NewTable(cfg.Hub.BreakerFailureThreshold, cfg.Hub.BreakerCooldown())

	prober := health.NewHTTPProber(nil)
	fwd := forwarder.NewHTTPForwarder(nil)

	reapComponent := reaper.New(reg, routes, breakers, logRing, sysClock, cfg.Hub.StaleAfter(), cfg.Hub.RemoveAfter(), cfg.Hub.ReaperInterval())
	monitor := health.NewBackgroundMonitor(reg, prober, logRing, sysClock, health.DefaultInterval)
	registrarComponent := registrar.New(reg, routes, reapComponent, sysClock, log)
	disp := dispatcher.New(routes, breakers, prober, fwd, sysClock, log, cfg.Hub.LegacyErrorStatus)

	trustedCIDRs, err := util.ParseTrustedCIDRs(cfg.Server.TrustedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted_cidrs: %w", err)
	}

	a := &Application{
		cfg:        cfg,
		log:        log,
		clock:      sysClock,
		logRing:    logRing,
		registry:   reg,
		routeTable: routes,
		breakers:   breakers,
		reaper:     reapComponent,
		monitor:    monitor,
		registrar:  registrarComponent,
		dispatcher: disp,
		limiter:    newRegisterLimiter(log, cfg.Server.TrustProxyHeaders, trustedCIDRs),
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Handler:      a.buildMux(),
	}

	return a, nil
}

func (a *Application) buildMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", a.limiter.middleware(a.handleRegister))
	mux.HandleFunc("/{$}", a.handleDashboard)
	mux.HandleFunc("/", a.handleDynamic)
	return mux
}

// Start brings the HTTP server, Reaper and BackgroundMonitor up together,
// coordinated by an errgroup so the first failure tears the rest down - the
// same "start the web server, then start the side-band services" shape as
// the teacher's Application.Start, generalised to more than one background
// loop via errgroup instead of a single bespoke errCh.
func (a *Application) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	group, groupCtx := errgroup.WithContext(runCtx)
	a.group = group

	group.Go(func() error {
		a.reaper.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return a.monitor.Run(groupCtx)
	})
	group.Go(func() error {
		a.log.Info("starting web server", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	a.log.Info("hub started", "bind", a.server.Addr)
	return nil
}

// Stop shuts the HTTP server down gracefully then cancels the background
// loops, and waits for the errgroup to drain.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)

	if a.cancel != nil {
		a.cancel()
	}
	if a.group != nil {
		if gerr := a.group.Wait(); gerr != nil && err == nil {
			err = gerr
		}
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// heartbeatInfo reproduces the legacy hub's dashboard heartbeat_info block,
// computed from the live config instead of the original's hardcoded
// strings, humanised with go-units.
func (a *Application) heartbeatInfo() map[string]string {
	return map[string]string{
		"interval":      "every " + units.HumanDuration(a.cfg.Hub.ReaperInterval()),
		"stale_after":   units.HumanDuration(a.cfg.Hub.StaleAfter()),
		"removed_after": units.HumanDuration(a.cfg.Hub.RemoveAfter()),
	}
}
