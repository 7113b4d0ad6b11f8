package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail server logs",
	Long: `Display and optionally follow the ecuserver logs.

The log file is taken from logging.output in the configuration. Servers
started in daemon mode write to $XDG_STATE_HOME/ecuserver/ecuserver.log,
which is used when the configuration logs to stdout or stderr.

Examples:
  # Show last 100 lines (default)
  ecuserver logs

  # Follow logs in real-time
  ecuserver logs -f

  # Show logs since a specific time
  ecuserver logs --since "2026-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
	logsCmd.Flags().StringVar(&logFile, "log-file", "", "Log file to read when the server logs to the console (default: $XDG_STATE_HOME/ecuserver/ecuserver.log)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logPath := resolveLogFile(cfg.Logging.Output)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe server may not have started yet or is logging elsewhere", logPath)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if !logsFollow {
		return showLogs(out, logPath, logsLines, since)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Following %s (Ctrl+C to stop)...\n", logPath)
	return followLogs(ctx, out, logPath, logsLines, since)
}

// resolveLogFile maps a logging.output value to a file. Console outputs
// fall back to the daemon log file.
func resolveLogFile(output string) string {
	switch strings.ToLower(output) {
	case "", "stdout", "stderr":
		if logFile != "" {
			return logFile
		}
		return GetDefaultLogFile()
	default:
		return output
	}
}

// showLogs writes the last lines of the log file to w, skipping entries
// older than since when a timestamp can be parsed.
func showLogs(w io.Writer, path string, lines int, since time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	tail := make([]string, 0, lines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if t := extractTimestamp(line); !t.IsZero() && t.Before(since) {
				continue
			}
		}
		if lines <= 0 {
			continue
		}
		if len(tail) == lines {
			tail = tail[1:]
		}
		tail = append(tail, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	for _, line := range tail {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// followLogs prints the tail of the file and then every line appended to it
// until ctx is cancelled.
func followLogs(ctx context.Context, w io.Writer, path string, initialLines int, since time.Time) error {
	if err := showLogs(w, path, initialLines, since); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if line != "" && err == nil {
					if _, werr := io.WriteString(w, line); werr != nil {
						return werr
					}
				}
				if err != nil {
					// Keep a partial line for the next write event.
					if line != "" {
						if _, serr := file.Seek(-int64(len(line)), io.SeekCurrent); serr == nil {
							reader.Reset(file)
						}
					}
					break
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// textTimestampLayout matches the "[2006-01-02 15:04:05.000]" prefix of the
// text log handler.
const textTimestampLayout = "2006-01-02 15:04:05.000"

// extractTimestamp attempts to extract a timestamp from a log line.
// Supports the text handler prefix and the JSON "time" field.
func extractTimestamp(line string) time.Time {
	if strings.HasPrefix(line, "[") && len(line) > len(textTimestampLayout)+1 {
		if t, err := time.ParseInLocation(textTimestampLayout, line[1:len(textTimestampLayout)+1], time.Local); err == nil {
			return t
		}
	}

	const timeKey = `"time":"`
	if idx := strings.Index(line, timeKey); idx >= 0 {
		rest := line[idx+len(timeKey):]
		if end := strings.IndexByte(rest, '"'); end > 0 {
			if t, err := time.Parse(time.RFC3339Nano, rest[:end]); err == nil {
				return t
			}
		}
	}

	return time.Time{}
}
