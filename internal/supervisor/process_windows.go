//go:build windows

package supervisor

import (
	"fmt"
	"os/exec"
	"strings"
)

// pidAlive reports whether a process with the given pid exists by querying
// the process table with tasklist.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false
	}
	// tasklist prints an INFO line, not an empty result, when no process
	// matches the filter.
	return strings.Contains(string(out), fmt.Sprintf("\"%d\"", pid))
}

// terminateProcess kills the process with taskkill. Windows offers no
// graceful termination signal for console-less processes.
func terminateProcess(pid int) error {
	return exec.Command("taskkill", "/F", "/PID", fmt.Sprintf("%d", pid)).Run()
}
