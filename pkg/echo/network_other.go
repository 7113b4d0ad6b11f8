//go:build !unix

package echo

import "syscall"

func listenControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
