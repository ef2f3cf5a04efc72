// This file implements the serve command: the control-server process itself.
// "server start" spawns this detached; running it directly in a terminal is
// handy for debugging.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WaniAthar/remote-mouse-server/internal/config"
	"github.com/WaniAthar/remote-mouse-server/internal/control"
	"github.com/WaniAthar/remote-mouse-server/internal/mdns"
	"github.com/WaniAthar/remote-mouse-server/internal/mouse"
	"github.com/WaniAthar/remote-mouse-server/internal/storage"
)

// shutdownTimeout bounds the graceful drain of the active session on stop.
const shutdownTimeout = 5 * time.Second

func runServe(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "Path to config file (default: ~/.remotemouse/config.toml)")
	port := fs.Int("port", 0, "Port to listen on (default: from config, then 8000)")
	sensitivity := fs.Float64("sensitivity", 0, "Pointer movement multiplier (default: from config, then 1.0)")
	enableMdns := fs.Bool("mdns", false, "Advertise the server via mDNS (overrides config)")
	simulate := fs.Bool("sim", false, "Use a simulated pointer instead of injecting OS events")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	listenPort := cfg.PreferredPort
	if *port != 0 {
		listenPort = *port
	}

	moveScale := cfg.Sensitivity
	if *sensitivity != 0 {
		moveScale = *sensitivity
	}

	if !cfg.EnableLogging {
		log.SetOutput(io.Discard)
	}

	var pointer mouse.Pointer
	if *simulate {
		pointer = mouse.NewSimPointer()
		log.Printf("serve: using simulated pointer")
	} else {
		pointer, err = mouse.NewXdoPointer()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(listenPort))
	srv := control.NewServer(addr, control.NewDispatcher(pointer, moveScale))

	// The audit log shares the supervisor's database. Losing it is not
	// fatal: the server can still drive the pointer.
	stateDB, _, pathErr := serverPaths(cfg)
	if pathErr == nil {
		if store, storeErr := storage.NewSQLiteStore(stateDB); storeErr == nil {
			defer store.Close()
			srv.SetEventStore(store)
		} else {
			log.Printf("serve: audit log unavailable: %v", storeErr)
		}
	}

	if *enableMdns || cfg.MdnsEnabled {
		advertiser := mdns.NewAdvertiser(mdns.Config{Port: listenPort})
		if err := advertiser.Start(); err != nil {
			log.Printf("serve: mdns advertisement failed: %v", err)
		} else {
			defer advertiser.Stop()
		}
	}

	if err := <-srv.StartAsync(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Control server listening on %s\n", addr)

	// Block until the supervisor's SIGTERM (or a Ctrl-C in foreground use).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("serve: received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Printf("serve: shutdown: %v", err)
		return 1
	}
	return 0
}
