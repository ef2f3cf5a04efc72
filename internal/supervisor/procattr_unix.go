//go:build !windows

package supervisor

import "syscall"

// detachedProcAttr puts the child in its own session so it is not part of
// the supervisor's process group and does not receive terminal signals.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
