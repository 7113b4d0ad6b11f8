package config

import (
	"github.com/marmos91/ecuserver/internal/cli/output"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective ecuserver configuration: the file merged with
ECUSERVER_* environment overrides and defaults.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  ecuserver config show

  # Show as JSON
  ecuserver config show --output json

  # Show specific config file
  ecuserver config show --config /etc/ecuserver/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	flagValue, _ := configPath(cmd)

	cfg, err := config.Load(flagValue)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	default:
		return output.PrintYAML(cmd.OutOrStdout(), cfg)
	}
}
