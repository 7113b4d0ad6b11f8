package config

import (
	"fmt"

	"github.com/marmos91/ecuserver/internal/cli/output"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the ecuserver configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  ecuserver config validate

  # Validate specific config file
  ecuserver config validate --config /etc/ecuserver/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	flagValue, displayPath := configPath(cmd)

	cfg, err := config.MustLoad(flagValue)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	var kv output.KeyValues
	kv.Add("  Listen address", cfg.Server.EchoConfig().Address())
	kv.Add("  Read buffer", fmt.Sprintf("%d bytes", uint64(cfg.Server.ReadBufferSize)))
	kv.Add("  Max connections", maxConnections(cfg.Server.MaxConnections))
	kv.Add("  Workers", workers(cfg.Server.Workers))
	kv.Add("  Shutdown timeout", cfg.ShutdownTimeout.String())
	kv.Add("  Log level", cfg.Logging.Level)
	if cfg.Metrics.Enabled {
		kv.Add("  Metrics port", fmt.Sprintf("%d", cfg.Metrics.Port))
	} else {
		kv.Add("  Metrics", "disabled")
	}
	return kv.Print(out)
}

// configWarnings flags settings that are valid but probably unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Server.Port == 0 {
		warnings = append(warnings, "server.port is 0, an ephemeral port will be bound")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Server.Port {
		warnings = append(warnings, fmt.Sprintf("metrics.port and server.port are both %d", cfg.Server.Port))
	}
	if w := cfg.Server.Workers; w > 0 && (cfg.Server.MaxConnections == 0 || cfg.Server.MaxConnections >= w) {
		warnings = append(warnings, fmt.Sprintf(
			"server.workers is %d: connections beyond %d wait in the queue until a worker is free", w, w-1))
	}
	if !cfg.Metrics.Enabled {
		warnings = append(warnings, "metrics disabled, 'ecuserver status' can only check the PID file")
	}
	return warnings
}

func maxConnections(n int) string {
	if n == 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d", n)
}

func workers(n int) string {
	if n == 0 {
		return "one goroutine per task"
	}
	return fmt.Sprintf("%d", n)
}
