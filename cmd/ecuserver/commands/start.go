package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/ecuserver/internal/logger"
	"github.com/marmos91/ecuserver/internal/telemetry"
	"github.com/marmos91/ecuserver/pkg/api"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/marmos91/ecuserver/pkg/metrics"
	"github.com/marmos91/ecuserver/pkg/module"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/ecuserver/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the echo server",
	Long: `Start the echo server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Without a configuration file the built-in defaults are used: the listener
binds 0.0.0.0:8080 and reads at most 8 bytes from each connection.

Examples:
  # Start in background (default)
  ecuserver start

  # Start in foreground
  ecuserver start --foreground

  # Start with custom config file
  ecuserver start --config /etc/ecuserver/config.yaml

  # Start with environment variable overrides
  ECUSERVER_SERVER_PORT=9000 ECUSERVER_LOGGING_LEVEL=DEBUG ecuserver start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ecuserver/ecuserver.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/ecuserver/ecuserver.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Registered before the module starts so a signal during startup still
	// goes through Unload.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	telemetryShutdown, err := telemetry.Init(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(profilingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("ecuserver starting", "version", Version, "commit", Commit)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	var echoMetrics metrics.EchoMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		echoMetrics = metrics.NewEchoMetrics()
	}

	mod, err := module.Init(module.DefaultName, cfg, module.WithMetrics(echoMetrics))
	if err != nil {
		return err
	}
	defer mod.Unload()

	if pidFile != "" {
		if err := writePidFile(pidFile); err != nil {
			return err
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	var apiDone chan error
	if apiCfg := apiConfig(cfg); apiCfg.IsEnabled() {
		apiDone = make(chan error, 1)
		apiServer := api.NewServer(apiCfg, mod)
		go func() {
			apiDone <- apiServer.Start(ctx)
		}()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	logger.Info("Server is running. Press Ctrl+C to stop.", logger.KeyAddress, mod.Addr().String())

	if err := awaitShutdown(sigChan, apiDone, cancel); err != nil {
		return err
	}

	mod.Unload()
	logger.Info("Server stopped gracefully")
	return nil
}

// awaitShutdown blocks until a signal arrives or the API server exits, then
// cancels the API context and waits for the API server to finish its
// graceful stop. apiDone is nil when the API server is disabled.
func awaitShutdown(sigChan <-chan os.Signal, apiDone <-chan error, cancel context.CancelFunc) error {
	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown", "signal", sig.String())
	case err := <-apiDone:
		cancel()
		if err != nil {
			logger.Error("API server error", logger.KeyError, err)
			return err
		}
		return nil
	}

	cancel()
	if apiDone != nil {
		if err := <-apiDone; err != nil {
			logger.Warn("API server shutdown error", logger.KeyError, err)
		}
	}
	return nil
}
