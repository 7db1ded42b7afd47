//go:build windows

package commands

import "fmt"

// startDaemon is not supported on Windows.
// Use --foreground flag to run the node in the foreground.
func startDaemon() error {
	return fmt.Errorf("daemon mode is not supported on Windows, use --foreground")
}

// isProcessRunning is a stub on Windows; daemon mode is unix-only.
func isProcessRunning(pidPath string) (int, bool) {
	return 0, false
}
