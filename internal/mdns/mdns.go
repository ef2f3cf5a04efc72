// Package mdns provides optional mDNS/Bonjour advertisement of the control
// server, so the phone app can discover it on the LAN without the user
// typing an IP address. Opt-in: discovery reveals presence, and a host that
// never enables it stays invisible.
package mdns

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type for remote-mouse control servers.
const ServiceType = "_remotemouse._tcp"

// ProtocolVersion identifies the control-protocol version for compatibility.
const ProtocolVersion = "1"

// wsPath is the WebSocket endpoint path, advertised so clients do not have
// to hardcode it.
const wsPath = "/ws"

// Config holds the advertisement parameters.
type Config struct {
	// Port is the control-server port to advertise.
	Port int

	// Name is a human-readable instance name. Defaults to the system
	// hostname if empty.
	Name string
}

// Advertiser manages the DNS-SD registration lifecycle.
type Advertiser struct {
	config Config
	server *zeroconf.Server
	mu     sync.Mutex
}

// NewAdvertiser creates an advertiser with the given configuration.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{config: cfg}
}

// Start registers the service. Safe to call multiple times; subsequent
// calls are no-ops while running.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	name := a.config.Name
	if name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			name = "remotemouse"
		} else {
			name = hostname
		}
	}

	txtRecords := []string{
		fmt.Sprintf("version=%s", ProtocolVersion),
		fmt.Sprintf("name=%s", name),
		fmt.Sprintf("path=%s", wsPath),
	}

	server, err := zeroconf.Register(
		name,
		ServiceType,
		"local.",
		a.config.Port,
		txtRecords,
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	a.server = server
	return nil
}

// Stop unregisters the service. Safe to call repeatedly or before Start.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// IsRunning reports whether the advertisement is active.
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// DiscoveredServer is a control server found on the LAN.
type DiscoveredServer struct {
	// Name is the advertised instance name.
	Name string

	// Host is the IPv4 (preferred) or IPv6 address.
	Host string

	// Port is the control-server port.
	Port int

	// Path is the WebSocket endpoint path.
	Path string

	// Version is the advertised protocol version.
	Version string
}

// URL returns the WebSocket URL of the discovered server.
func (d DiscoveredServer) URL() string {
	path := d.Path
	if path == "" {
		path = wsPath
	}
	return fmt.Sprintf("ws://%s:%d%s", d.Host, d.Port, path)
}

// Discover browses the LAN for control servers until the context expires.
// Used by the test client; the phone app uses its platform's native NSD.
func Discover(ctx context.Context) ([]DiscoveredServer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	var (
		servers []DiscoveredServer
		mu      sync.Mutex
		wg      sync.WaitGroup
	)

	entries := make(chan *zeroconf.ServiceEntry)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			server := DiscoveredServer{
				Name: entry.Instance,
				Port: entry.Port,
			}

			if len(entry.AddrIPv4) > 0 {
				server.Host = entry.AddrIPv4[0].String()
			} else if len(entry.AddrIPv6) > 0 {
				server.Host = entry.AddrIPv6[0].String()
			}

			for _, txt := range entry.Text {
				switch {
				case strings.HasPrefix(txt, "version="):
					server.Version = strings.TrimPrefix(txt, "version=")
				case strings.HasPrefix(txt, "name="):
					server.Name = strings.TrimPrefix(txt, "name=")
				case strings.HasPrefix(txt, "path="):
					server.Path = strings.TrimPrefix(txt, "path=")
				}
			}

			mu.Lock()
			servers = append(servers, server)
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	<-ctx.Done()

	// zeroconf closes the entries channel when the context is done.
	wg.Wait()

	return servers, nil
}
