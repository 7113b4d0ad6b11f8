// Package config implements configuration management subcommands.
package config

import (
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/spf13/cobra"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage ecuserver configuration files.

Subcommands:
  init      Create a configuration file
  validate  Validate configuration file
  show      Display current configuration
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}

// configPath returns the --config value, or the default location.
func configPath(cmd *cobra.Command) (flagValue, resolved string) {
	flagValue, _ = cmd.Flags().GetString("config")
	if flagValue == "" {
		return "", config.GetDefaultConfigPath()
	}
	return flagValue, flagValue
}
