package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thushan/hub/internal/adapter/clock"
	"github.com/thushan/hub/internal/adapter/logring"
	"github.com/thushan/hub/internal/app"
	"github.com/thushan/hub/internal/config"
	"github.com/thushan/hub/internal/logger"
	"github.com/thushan/hub/internal/version"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	}
	version.PrintVersionInfo(false, vlog)

	reload := func() {
		slog.Info("configuration file changed; new values take effect on the next restart")
	}

	cfg, err := config.Load(reload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ring := logring.New(cfg.Hub.MaxLogs, clock.NewSystem())

	logCfg := &logger.Config{
		Level:      cfg.Logging.Level,
		FileOutput: cfg.Logging.FileOutput,
		LogDir:     cfg.Logging.LogDir,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Theme:      cfg.Logging.Theme,
		PrettyLogs: cfg.Logging.PrettyLogs,
	}

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(logCfg, ring)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger.Info("initialising", "version", version.Version, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		styledLogger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(cfg, styledLogger, ring)
	if err != nil {
		logger.FatalWithLogger(logInstance, "failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "failed to start application", "error", err)
	}

	<-ctx.Done()

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("error during shutdown", "error", err)
	}

	styledLogger.Info("hub has shut down", "uptime", time.Since(startTime).Round(time.Second).String())
}
