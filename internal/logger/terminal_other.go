//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package logger

// isTerminal always reports false where no termios probe is available,
// which disables colored output.
func isTerminal(uintptr) bool {
	return false
}
