//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// pidAlive reports whether a process with the given pid exists, using the
// signal-0 probe. EPERM still means the process exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

// terminateProcess asks the process to exit with SIGTERM. The server
// installs a handler that shuts down cleanly and flushes its log.
func terminateProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
