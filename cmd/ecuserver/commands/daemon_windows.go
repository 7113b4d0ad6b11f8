//go:build windows

package commands

import (
	"fmt"
	"os"
)

// processAlive always holds on Windows: FindProcess opens a handle and
// fails for processes that have exited.
func processAlive(*os.Process) bool {
	return true
}

// startDaemon is not supported on Windows.
// Use --foreground flag to run the server in the foreground.
func startDaemon() error {
	return fmt.Errorf("daemon mode is not supported on Windows, use --foreground")
}
