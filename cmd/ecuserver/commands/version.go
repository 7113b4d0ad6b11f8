package commands

import (
	"runtime"

	"github.com/marmos91/ecuserver/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	versionShort  bool
	versionOutput string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the ecuserver version, build information, and system details.`,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show only version number")
	versionCmd.Flags().StringVarP(&versionOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Built     string `json:"built" yaml:"built"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func currentVersion() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		Built:     Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if versionShort {
		_, err := out.Write([]byte(Version + "\n"))
		return err
	}

	format, err := output.ParseFormat(versionOutput)
	if err != nil {
		return err
	}

	info := currentVersion()
	if format != output.FormatTable {
		return output.NewPrinter(out, format, false).Print(info)
	}

	var kv output.KeyValues
	kv.Add("ecuserver", info.Version)
	kv.Add("Commit", info.Commit)
	kv.Add("Built", info.Built)
	kv.Add("Go version", info.GoVersion)
	kv.Add("OS/Arch", info.Platform)
	return kv.Print(out)
}
