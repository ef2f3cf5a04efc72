// This file implements the qr command and the shared QR rendering helper.
package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"github.com/WaniAthar/remote-mouse-server/internal/lan"
)

// DisplayQRCode renders the connection URL as ASCII QR art with a plain-text
// fallback underneath, for phones that cannot scan the terminal.
func DisplayQRCode(w io.Writer, url string) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(w, "Error generating QR code: %v\n", err)
		fmt.Fprintf(w, "Connect manually: %s\n", url)
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "        SCAN TO CONNECT")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")

	// ToSmallString(false) produces compact half-block output without a
	// border.
	fmt.Fprint(w, qr.ToSmallString(false))

	fmt.Fprintln(w, "-------------------------------------------")
	fmt.Fprintf(w, "  URL: %s\n", url)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "")
}

// runQR prints the QR code for the running server, or for the address a
// server would get if started now.
func runQR(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qr", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.remotemouse/config.toml)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	sup, cfg, cleanup, err := newSupervisor(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	if handle := sup.Handle(); handle != nil {
		DisplayQRCode(stdout, wsURL(handle))
		return 0
	}

	// No server running: show where one would be reachable, so the user
	// can scan first and start second.
	url := fmt.Sprintf("ws://%s:%d/ws", lan.LocalIP(), cfg.PreferredPort)
	fmt.Fprintln(stdout, "Server is not running; showing the address it would use.")
	DisplayQRCode(stdout, url)
	return 0
}
