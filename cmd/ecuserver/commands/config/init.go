package config

import (
	"fmt"

	"github.com/marmos91/ecuserver/internal/bytesize"
	"github.com/marmos91/ecuserver/internal/cli/prompt"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create an ecuserver configuration file populated with defaults.

The file is written to --config, or to $XDG_CONFIG_HOME/ecuserver/config.yaml.
With --interactive the listener and logging settings are prompted for.

Examples:
  # Write the default configuration
  ecuserver config init

  # Overwrite an existing file
  ecuserver config init --force

  # Answer a few questions first
  ecuserver config init --interactive`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the main settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	_, path := configPath(cmd)

	cfg := config.GetDefaultConfig()
	if initInteractive {
		if err := promptConfig(cfg); err != nil {
			if prompt.IsAborted(err) {
				return fmt.Errorf("aborted, nothing written")
			}
			return err
		}
	}

	if err := config.WriteConfig(cfg, path, initForce); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nStart the server with: ecuserver start")
	return nil
}

// promptConfig asks for the settings most deployments change.
func promptConfig(cfg *config.Config) error {
	var err error

	if cfg.Server.BindAddress, err = prompt.Input("Bind address", cfg.Server.BindAddress, nil); err != nil {
		return err
	}
	if cfg.Server.Port, err = prompt.InputPort("Echo port", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Server.ReadBufferSize, err = prompt.InputSize("Read buffer size", cfg.Server.ReadBufferSize, 64*bytesize.KiB); err != nil {
		return err
	}
	if cfg.Server.MaxConnections, err = prompt.InputCount("Max concurrent connections (0 = unbounded)", cfg.Server.MaxConnections); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = prompt.InputDuration("Shutdown timeout", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.Logging.Level, err = prompt.Select("Log level", []string{"DEBUG", "INFO", "WARN", "ERROR"}, cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Logging.Format, err = prompt.Select("Log format", []string{"text", "json"}, cfg.Logging.Format); err != nil {
		return err
	}

	if cfg.Metrics.Enabled, err = prompt.Confirm("Enable metrics and health endpoints", cfg.Metrics.Enabled); err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port, err = prompt.InputPort("Metrics port", cfg.Metrics.Port); err != nil {
			return err
		}
	}
	return nil
}
