package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/marmos91/ecuserver/internal/cli/health"
	"github.com/marmos91/ecuserver/internal/cli/output"
	"github.com/marmos91/ecuserver/internal/cli/timeutil"
	"github.com/marmos91/ecuserver/pkg/api"
	"github.com/marmos91/ecuserver/pkg/module"
	"github.com/spf13/cobra"
)

var (
	statusOutput      string
	statusPidFile     string
	statusMetricsPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the echo server.

The PID file tells whether the process is alive. The readiness endpoint of
the metrics server reports the module state, the bound address and the
connection counters; it is only reachable when metrics are enabled.

Examples:
  # Check status (uses default settings)
  ecuserver status

  # Check status with custom metrics port
  ecuserver status --metrics-port 9191

  # Output as JSON
  ecuserver status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/ecuserver/ecuserver.pid)")
	statusCmd.Flags().IntVar(&statusMetricsPort, "metrics-port", api.DefaultPort, "Metrics/health server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running bool           `json:"running" yaml:"running"`
	PID     int            `json:"pid,omitempty" yaml:"pid,omitempty"`
	Healthy bool           `json:"healthy" yaml:"healthy"`
	Message string         `json:"message" yaml:"message"`
	Module  *module.Status `json:"module,omitempty" yaml:"module,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	client := health.NewClient("http://localhost:" + strconv.Itoa(statusMetricsPort))
	status := collectStatus(cmd.Context(), pidPath, client)

	out := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(out, format, false).Print(status)
	}
	return printStatusTable(out, status)
}

// collectStatus combines the PID file check with a readiness probe. The
// probe works for foreground servers too, which have no PID file.
func collectStatus(ctx context.Context, pidPath string, client *health.Client) ServerStatus {
	if ctx == nil {
		ctx = context.Background()
	}

	status := ServerStatus{Message: "Server is not running"}
	if pid, running := isProcessRunning(pidPath); running {
		status.Running = true
		status.PID = pid
	}

	ready, err := client.Readiness(ctx)
	switch {
	case err != nil && status.Running:
		status.Message = "Server process exists but health check failed (are metrics enabled?)"
	case err != nil:
	default:
		status.Running = true
		status.Healthy = ready.Ready()
		status.Module = ready.Data
		if status.Healthy {
			status.Message = "Server is running and healthy"
		} else {
			status.Message = fmt.Sprintf("Server is running but not ready: %s", ready.Error)
		}
	}
	return status
}

func printStatusTable(w io.Writer, status ServerStatus) error {
	p := output.NewPrinter(w, output.FormatTable, true)
	p.Printf("\necuserver Status\n================\n\n")

	var kv output.KeyValues
	switch {
	case status.Running && status.Healthy:
		kv.Add("Status", "Running")
	case status.Running:
		kv.Add("Status", "Running (not ready)")
	default:
		kv.Add("Status", "Stopped")
	}
	if status.PID > 0 {
		kv.Add("PID", strconv.Itoa(status.PID))
	}
	if m := status.Module; m != nil {
		kv.Add("Module", m.Name+" ("+m.State+")")
		if m.Address != "" {
			kv.Add("Listening", m.Address)
		}
		if !m.StartedAt.IsZero() {
			kv.Add("Started", timeutil.FormatTime(m.StartedAt.Format(time.RFC3339)))
			kv.Add("Uptime", timeutil.FormatUptime(time.Since(m.StartedAt)))
		}
		kv.Add("Active connections", strconv.Itoa(int(m.ActiveConnections)))
		kv.Add("Accepted connections", strconv.FormatInt(m.AcceptedConnections, 10))
		kv.Add("Tasks running", strconv.FormatInt(m.Tasks.Running, 10))
	}
	if err := kv.Print(w); err != nil {
		return err
	}

	p.Printf("\n")
	switch {
	case status.Healthy:
		p.Success(status.Message)
	case status.Running:
		p.Warning(status.Message)
	default:
		p.Error(status.Message)
	}
	return nil
}
