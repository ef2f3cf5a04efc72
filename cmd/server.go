// This file implements the supervisor-facing commands:
// remotemouse server start|stop|status.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/WaniAthar/remote-mouse-server/internal/config"
	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
	"github.com/WaniAthar/remote-mouse-server/internal/storage"
	"github.com/WaniAthar/remote-mouse-server/internal/supervisor"
)

// serverPaths resolves the on-disk locations the supervisor needs, filling
// in defaults for anything the config leaves empty, and makes sure the data
// directory exists.
func serverPaths(cfg *config.Config) (stateDB, logFile string, err error) {
	stateDB = cfg.StateDB
	if stateDB == "" {
		stateDB, err = config.DefaultStateDBPath()
		if err != nil {
			return "", "", err
		}
	}

	logFile = cfg.LogFile
	if logFile == "" {
		logFile, err = config.DefaultLogFilePath()
		if err != nil {
			return "", "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(stateDB), 0o755); err != nil {
		return "", "", fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return "", "", fmt.Errorf("create log directory: %w", err)
	}

	return stateDB, logFile, nil
}

// newSupervisor loads the config, opens the handle store, and constructs a
// recovered supervisor. The config path is handed to the supervisor so the
// spawned server loads the same file. The returned cleanup closes the store.
func newSupervisor(configPath string) (*supervisor.Supervisor, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	stateDB, logFile, err := serverPaths(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.NewSQLiteStore(stateDB)
	if err != nil {
		return nil, nil, nil, err
	}

	sup, err := supervisor.New(store, logFile, configPath)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	return sup, cfg, func() { store.Close() }, nil
}

func wsURL(handle *storage.ServerState) string {
	return fmt.Sprintf("ws://%s:%d/ws", handle.IP, handle.Port)
}

func runServerStart(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("server start", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.remotemouse/config.toml)")
	port := fs.Int("port", 0, "Preferred port (default: from config, then 8000)")
	showQR := fs.Bool("qr", false, "Print the connection URL as a QR code")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	sup, cfg, cleanup, err := newSupervisor(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	preferred := cfg.PreferredPort
	if *port != 0 {
		preferred = *port
	}

	handle, err := sup.Start(preferred)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeServerAlreadyRunning) {
			existing := sup.Handle()
			fmt.Fprintf(stderr, "Server is already running at %s\n", wsURL(existing))
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Server started (pid %d)\n", handle.PID)
	fmt.Fprintf(stdout, "Connect to: %s\n", wsURL(handle))
	if *showQR {
		DisplayQRCode(stdout, wsURL(handle))
	}
	return 0
}

func runServerStop(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("server stop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.remotemouse/config.toml)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	sup, _, cleanup, err := newSupervisor(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	uptime, err := sup.Stop()
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeServerNotRunning) {
			fmt.Fprintln(stderr, "Server is not running")
			return 1
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Server stopped (was up %s)\n", uptime)
	return 0
}

func runServerStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("server status", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.remotemouse/config.toml)")
	showQR := fs.Bool("qr", false, "Print the connection URL as a QR code")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	sup, _, cleanup, err := newSupervisor(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	handle := sup.Handle()
	if handle == nil {
		fmt.Fprintln(stdout, "Status: offline")
		return 0
	}

	fmt.Fprintln(stdout, "Status: running")
	fmt.Fprintf(stdout, "  PID:     %d\n", handle.PID)
	fmt.Fprintf(stdout, "  Address: %s:%d\n", handle.IP, handle.Port)
	fmt.Fprintf(stdout, "  Uptime:  %s\n", sup.Uptime())
	fmt.Fprintf(stdout, "  URL:     %s\n", wsURL(handle))
	if *showQR {
		DisplayQRCode(stdout, wsURL(handle))
	}
	return 0
}
