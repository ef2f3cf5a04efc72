// Command remotemouse turns this machine's pointer into a target for a
// phone-based remote control. The server subcommands manage a detached
// control-server process; serve is the control server itself.
package main

import (
	"fmt"
	"io"
	"os"
)

// Version is set at build time via -ldflags.
// Example: go build -ldflags="-X main.Version=v0.1.0" ./cmd
var Version = "dev"

const usage = `remotemouse - control this machine's mouse from a phone on the same LAN

Usage:
  remotemouse <command> [options]

Commands:
  server start   Start the control server in the background
  server stop    Stop the running control server
  server status  Show control-server status and connection URL
  serve          Run the control server in the foreground (what "server start" spawns)
  qr             Print the connection URL as a scannable QR code

Run 'remotemouse <command> --help' for more information on a command.
`

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprint(stdout, usage)
		return 0
	}

	switch args[1] {
	case "server":
		if len(args) < 3 {
			fmt.Fprintln(stdout, "Usage: remotemouse server <start|stop|status>")
			return 1
		}
		switch args[2] {
		case "start":
			return runServerStart(args[3:], stdout, stderr)
		case "stop":
			return runServerStop(args[3:], stdout, stderr)
		case "status":
			return runServerStatus(args[3:], stdout, stderr)
		default:
			fmt.Fprintf(stdout, "Unknown server command: %s\n", args[2])
			return 1
		}
	case "serve":
		return runServe(args[2:], stdout, stderr)
	case "qr":
		return runQR(args[2:], stdout, stderr)
	case "--help", "-h", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "remotemouse %s\n", Version)
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n", args[1])
		fmt.Fprint(stdout, usage)
		return 1
	}
}
