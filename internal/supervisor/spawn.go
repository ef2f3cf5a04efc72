package supervisor

import (
	"fmt"
	"os"
	"os/exec"
)

// spawnServer launches the control server as a detached child process by
// re-executing our own binary with the serve subcommand. Detached means the
// child survives supervisor exit and does not receive the terminal's close
// signals; the platform-specific attributes live in procattr_*.go.
//
// The child's stdout and stderr go to logPath so startup failures leave a
// trace the user can read.
func spawnServer(entrypoint string, port int, logPath, configPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open server log %s: %w", logPath, err)
	}
	defer logFile.Close()

	cmd := exec.Command(entrypoint, serveArgs(port, configPath)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detachedProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	// Reap the child if it exits, so a crashed server does not linger as a
	// zombie and the pid-alive probe sees the truth.
	go func() { _ = cmd.Wait() }()

	return pid, nil
}

// serveArgs builds the child's argument list. A non-default config path is
// forwarded so the spawned server reads the same settings file the
// supervisor was started with, instead of silently falling back to
// ~/.remotemouse/config.toml.
func serveArgs(port int, configPath string) []string {
	args := []string{"serve", "--port", fmt.Sprintf("%d", port)}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}
