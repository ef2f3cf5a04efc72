package mdns

import (
	"testing"
)

func TestNewAdvertiser(t *testing.T) {
	advertiser := NewAdvertiser(Config{Port: 8000, Name: "test-host"})
	if advertiser == nil {
		t.Fatal("NewAdvertiser returned nil")
	}
	if advertiser.config.Port != 8000 {
		t.Errorf("port = %d, want 8000", advertiser.config.Port)
	}
	if advertiser.IsRunning() {
		t.Error("advertiser should not be running before Start()")
	}
}

func TestAdvertiserStopBeforeStart(t *testing.T) {
	advertiser := NewAdvertiser(Config{Port: 8000})

	// Stop before start is a no-op, repeated stops are safe.
	advertiser.Stop()
	advertiser.Stop()

	if advertiser.IsRunning() {
		t.Error("advertiser should not be running after Stop()")
	}
}

func TestDiscoveredServerURL(t *testing.T) {
	tests := []struct {
		name   string
		server DiscoveredServer
		want   string
	}{
		{
			"advertised path",
			DiscoveredServer{Host: "192.168.1.20", Port: 8000, Path: "/ws"},
			"ws://192.168.1.20:8000/ws",
		},
		{
			"missing path falls back",
			DiscoveredServer{Host: "192.168.1.20", Port: 8003},
			"ws://192.168.1.20:8003/ws",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestAdvertiserStartStop requires multicast networking and is skipped in
// short mode.
func TestAdvertiserStartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	advertiser := NewAdvertiser(Config{Port: 8000, Name: "test-remotemouse"})

	if err := advertiser.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !advertiser.IsRunning() {
		t.Error("advertiser should be running after Start()")
	}

	// Second Start is a no-op.
	if err := advertiser.Start(); err != nil {
		t.Errorf("second Start() failed: %v", err)
	}

	advertiser.Stop()
	if advertiser.IsRunning() {
		t.Error("advertiser should not be running after Stop()")
	}
}
