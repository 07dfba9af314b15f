// Package main is the entry point for the mount status monitor daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/cscheib/mount-status-monitor/internal/config"
	"github.com/cscheib/mount-status-monitor/internal/health"
	"github.com/cscheib/mount-status-monitor/internal/logging"
	"github.com/cscheib/mount-status-monitor/internal/metrics"
	"github.com/cscheib/mount-status-monitor/internal/monitor"
	"github.com/cscheib/mount-status-monitor/internal/mounts"
	"github.com/cscheib/mount-status-monitor/internal/report"
	"github.com/cscheib/mount-status-monitor/internal/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Process exit codes.
const (
	exitOK          = 0
	exitSetupFailed = 1
	exitEnumeration = 2
)

// newEnumerator picks the mount source for cfg.
var newEnumerator = func(cfg *config.Config) mounts.Enumerator {
	if len(cfg.Mounts) > 0 {
		return mounts.Static(cfg.Mounts)
	}
	return mounts.NewSystem(cfg.FSTypes)
}

// setupLogging builds the process logger.
var setupLogging = logging.Setup

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitSetupFailed
	}

	if cfg.ShowVersion {
		fmt.Fprintf(stdout, "mount-status-monitor %s\n", Version)
		return exitOK
	}

	logger, closer, err := setupLogging(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Target: cfg.LogTarget,
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "unable to initialize logging: %v\n", err)
		return exitSetupFailed
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, stdout)
}

// serve runs the monitor until ctx is cancelled, the single tick of
// once-only mode has been reported, or enumeration fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) int {
	configSource := "defaults"
	if cfg.ConfigFile != "" {
		configSource = cfg.ConfigFile
	}

	logger.Info("starting mount status monitor",
		"version", Version,
		"config_source", configSource,
		"poll_interval", cfg.PollInterval.String(),
		"once_only", cfg.OnceOnly,
		"check_command", strings.Join(cfg.CheckCommand, " "),
		"check_timeout", cfg.CheckTimeout.String(),
		"workers", cfg.Workers,
		"static_mounts", len(cfg.Mounts),
		"fs_types", strings.Join(cfg.FSTypes, ","),
		"push_gateway", cfg.PushGateway,
		"instance", cfg.Instance,
		"http_port", cfg.HTTPPort,
	)

	spawner, err := health.NewCommandSpawner(cfg.CheckCommand)
	if err != nil {
		logger.Error("invalid check command", "error", err)
		return exitSetupFailed
	}

	supervisor := health.NewSupervisor(spawner, cfg.CheckTimeout, logger)
	machine := health.NewMachine(supervisor, logger)
	scheduler := monitor.NewScheduler(newEnumerator(cfg), machine, cfg.Workers, logger)

	registry := monitor.NewRegistry()
	// Outstanding checks have already been sent SIGKILL; drop the handles.
	defer registry.Close()

	gauges := metrics.New(cfg.PushGateway, cfg.Instance)

	var badMounts io.Writer
	if cfg.PrintBadMounts {
		badMounts = stdout
	}
	reporter := report.New(logger, gauges, badMounts)

	mon := monitor.New(scheduler, registry, reporter, cfg.PollInterval, cfg.OnceOnly, logger)

	var srv *server.Server
	if cfg.HTTPPort > 0 && !cfg.OnceOnly {
		srv = server.New(mon, gauges.Handler(), cfg.HTTPPort, Version, logger)
		if err := srv.Start(); err != nil {
			logger.Error("failed to start HTTP server", "error", err)
			return exitSetupFailed
		}
		logger.Info("http server started", "port", cfg.HTTPPort)
	}

	mon.Start(ctx)

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case <-mon.Done():
	}
	runErr := mon.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, mounts.ErrEnumerate) {
			logger.Log(context.Background(), logging.LevelCritical, "unable to list mountpoints", "error", runErr)
			return exitEnumeration
		}
		logger.Error("monitor stopped", "error", runErr)
		return exitSetupFailed
	}

	logger.Info("shutdown complete")
	return exitOK
}
