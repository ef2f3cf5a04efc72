//go:build windows

package supervisor

import "syscall"

const (
	createNoWindow  = 0x08000000
	detachedProcess = 0x00000008
	newProcessGroup = 0x00000200
)

// detachedProcAttr starts the child without a console window and outside
// the supervisor's process group so console close events are not forwarded.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: createNoWindow | detachedProcess | newProcessGroup,
	}
}
