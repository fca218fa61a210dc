package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/dyndict/pkg/cli"
	"mercator-hq/dyndict/pkg/config"
	"mercator-hq/dyndict/pkg/registry"
	"mercator-hq/dyndict/pkg/server"
	"mercator-hq/dyndict/pkg/source"
	"mercator-hq/dyndict/pkg/telemetry/health"
	"mercator-hq/dyndict/pkg/telemetry/logging"
	"mercator-hq/dyndict/pkg/telemetry/metrics"
	"mercator-hq/dyndict/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the configured resources",
	Long: `Load every configured resource into the registry and start the admin
server.

Resources reload on their interval or schedule and, with watch enabled,
when their file changes. SIGHUP re-reads the configuration file: new
resources are added, removed ones are deleted once their readers release
them, and changed ones are replaced. SIGINT or SIGTERM shuts down
gracefully.

Examples:
  # Start with the default config
  dyndict run

  # Override the admin listen address
  dyndict run --listen 0.0.0.0:9090

  # Validate config without starting
  dyndict run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override admin listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.WrapConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}

	logger, err := newLogger(cfg.Telemetry.Logging, os.Stderr, runFlags.logLevel)
	if err != nil {
		return err
	}
	defer logger.Shutdown()
	slog.SetDefault(logger.Slog())

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	fmt.Fprintf(out, "Dyndict v%s\n", Version)
	fmt.Fprintf(out, "✓ Configuration loaded from %s (%d resources)\n", cfgFile, len(cfg.Resources))

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	// Metrics
	promRegistry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, promRegistry)
	if cfg.Telemetry.Metrics.Enabled {
		if err := collector.RegisterRuntimeMetrics(); err != nil {
			logger.Warn("Failed to register runtime metrics", "error", err)
		}
	}

	// Tracing
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	// Registry
	reg := registry.New(cfg.Registry.Capacity,
		registry.WithLogger(logger.Slog()),
		registry.WithObserver(collector),
		registry.WithTracer(tracer.OTel()),
		registry.WithQueueCapacity(cfg.Registry.QueueCapacity),
		registry.WithEnqueueTimeout(cfg.Registry.EnqueueTimeout),
		registry.WithLoadTimeout(cfg.Registry.LoadTimeout),
	)

	// File watcher
	watcher, err := source.NewFileWatcher(source.DefaultFileWatcherConfig(), reg, collector, logger.Slog())
	if err != nil {
		_ = reg.Shutdown(context.Background())
		return cli.NewCommandError("run", err)
	}
	go func() {
		if err := watcher.Watch(ctx); err != nil {
			logger.Error("File watcher stopped", "error", err)
		}
	}()

	resources := newResourceSet(reg, watcher, logger.Slog(), cfg.Registry.OperationTimeout)
	if err := resources.Sync(ctx, cfg.Resources); err != nil {
		logger.Error("Some resources failed to load", "error", err)
	}
	fmt.Fprintf(out, "✓ Registry started (%d/%d resources loaded)\n", len(resources.Names()), len(cfg.Resources))

	// Health
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("registry", health.RegistryCheck(reg))
	checker.RegisterCheck("resources", health.EntriesCheck(reg, func() []string {
		names := make([]string, 0, len(config.MustGetConfig().Resources))
		for _, rc := range config.MustGetConfig().Resources {
			names = append(names, rc.Name)
		}
		return names
	}))

	// Admin server
	opts := server.Options{
		Registry: reg,
		Checker:  checker,
		Health:   &cfg.Telemetry.Health,
		Version:  health.NewVersionInfo(Version, GitCommit, BuildDate),
		Tracer:   tracer,
		Logger:   logger,
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.Metrics = collector
		opts.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	srv := server.NewServer(&cfg.Server, opts)

	srvCtx, cancelSrv := context.WithCancel(context.Background())
	defer cancelSrv()
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(srvCtx)
	}()

	fmt.Fprintf(out, "✓ Admin server on http://%s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop, send SIGHUP to reload the configuration")

	reloads, stopReloads := cli.ReloadSignals()
	defer stopReloads()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nShutting down gracefully...")
			break loop
		case <-reloads:
			reloadConfig(ctx, resources, logger)
		case err := <-errChan:
			if err != nil {
				runErr = cli.NewCommandError("run", err)
			}
			break loop
		}
	}

	if err := shutdown(srv, watcher, reg, cfg, logger); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr == nil {
		fmt.Fprintln(out, "✓ Stopped")
	}
	return runErr
}

// reloadConfig re-reads the configuration file and applies resource
// changes. Registry, server and telemetry settings only take effect on
// restart.
func reloadConfig(ctx context.Context, resources *resourceSet, logger *logging.Logger) {
	logger.Info("Reloading configuration", "path", cfgFile)

	prev, cur, err := config.Reload()
	if err != nil {
		logger.Error("Configuration reload failed, keeping current configuration", "error", err)
		return
	}

	if prev.Registry != cur.Registry || prev.Server != cur.Server {
		logger.Warn("Registry and server settings changed, restart to apply them")
	}

	if err := resources.Sync(ctx, cur.Resources); err != nil {
		logger.Error("Configuration reload applied with errors", "error", err)
		return
	}
	logger.Info("Configuration reloaded", "resources", len(resources.Names()))
}

// shutdown stops intake first, then drains the registry so every borrowed
// version is released before it is unloaded.
func shutdown(srv *server.Server, watcher *source.FileWatcher, reg *registry.Registry, cfg *config.Config, logger *logging.Logger) error {
	var errs []error

	if err := srv.Shutdown(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if err := watcher.Stop(); err != nil {
		errs = append(errs, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Registry.ShutdownTimeout)
	defer cancel()
	if err := reg.Shutdown(ctx); err != nil {
		logger.Error("Registry shutdown incomplete", "error", err)
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}
