// Package supervisor starts, discovers, and stops the detached control-server
// process and owns its persisted handle.
//
// The supervisor is the only writer of the handle. Everyone else (the CLI
// front-end, status output) reads the supervisor's in-memory view, which is
// reconciled against reality at construction time: a persisted record is
// adopted only when both the port answers on loopback and the recorded pid is
// alive; otherwise the record is cleared. A crashed or externally-killed
// server is therefore never reported as running.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
	"github.com/WaniAthar/remote-mouse-server/internal/lan"
	"github.com/WaniAthar/remote-mouse-server/internal/storage"
)

// State is the supervisor lifecycle state.
type State string

const (
	// StateOffline means no control server is known to be running.
	StateOffline State = "offline"

	// StateStarting means a spawn is in flight.
	StateStarting State = "starting"

	// StateRunning means a live server handle is held.
	StateRunning State = "running"

	// StateStopping means a termination is in flight.
	StateStopping State = "stopping"
)

const (
	// startupGrace is how long to wait after the spawn before polling the
	// child once. There is no readiness handshake; this is a best-effort
	// check that catches immediate startup crashes (bad port, missing
	// display) without blocking the caller for long.
	startupGrace = 2 * time.Second

	// probeTimeout bounds the loopback connect used by the liveness check.
	probeTimeout = 500 * time.Millisecond
)

// Supervisor orchestrates the control-server process lifecycle.
// All methods are safe for concurrent use.
type Supervisor struct {
	mu     sync.Mutex
	state  State
	handle *storage.ServerState

	store      storage.StateStore
	logPath    string
	configPath string

	// Collaborators, overridable in tests.
	localIP   func() string
	findPort  func(preferred, rangeSize int) (int, error)
	entry     func() (string, error)
	spawn     func(entrypoint string, port int, logPath, configPath string) (int, error)
	portOpen  func(port int) bool
	pidAlive  func(pid int) bool
	terminate func(pid int) error
	now       func() time.Time
	sleep     func(d time.Duration)
}

// New builds a supervisor bound to the given handle store and runs the
// recovery protocol: a persisted handle is adopted only after reverifying
// liveness, and a stale record is cleared.
//
// logPath is where the spawned server writes its log; it is surfaced in
// startup-failure messages so the user knows where to look. configPath is
// forwarded to the spawned server so both processes read the same settings;
// empty means the default location.
func New(store storage.StateStore, logPath, configPath string) (*Supervisor, error) {
	s := &Supervisor{
		state:      StateOffline,
		store:      store,
		logPath:    logPath,
		configPath: configPath,
		localIP:    lan.LocalIP,
		findPort:   lan.FindFreePort,
		entry:      os.Executable,
		spawn:      spawnServer,
		portOpen:   loopbackPortOpen,
		pidAlive:   pidAlive,
		terminate:  terminateProcess,
		now:        time.Now,
		sleep:      time.Sleep,
	}

	if err := s.recover(); err != nil {
		return nil, err
	}
	return s, nil
}

// recover loads the persisted handle and reconciles it against reality.
// Called with the lock not held (construction and from Stop).
func (s *Supervisor) recover() error {
	handle, err := s.store.Load()
	if err != nil {
		return err
	}
	if handle == nil {
		return nil
	}

	if s.verifyLiveness(handle) {
		s.mu.Lock()
		s.handle = handle
		s.state = StateRunning
		s.mu.Unlock()
		log.Printf("supervisor: adopted running server pid=%d port=%d", handle.PID, handle.Port)
		return nil
	}

	// Stale record: the server died without us noticing. Clear it so no
	// one trusts it again.
	log.Printf("supervisor: clearing stale server record pid=%d port=%d", handle.PID, handle.Port)
	return s.store.Clear()
}

// verifyLiveness reports whether the handle still describes a live server.
// Both checks must hold: the port answers on loopback and the pid exists.
func (s *Supervisor) verifyLiveness(handle *storage.ServerState) bool {
	return s.portOpen(handle.Port) && s.pidAlive(handle.PID)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns a copy of the current server handle, or nil when offline.
func (s *Supervisor) Handle() *storage.ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	copied := *s.handle
	return &copied
}

// Start spawns the control server detached and transitions to Running once
// the best-effort startup check passes. It fails fast with AlreadyRunning
// when a server is already held, and every failure path leaves the state
// Offline with nothing persisted.
func (s *Supervisor) Start(preferredPort int) (*storage.ServerState, error) {
	s.mu.Lock()
	if s.state != StateOffline {
		handle := s.handle
		s.mu.Unlock()
		addr := ""
		if handle != nil {
			addr = net.JoinHostPort(handle.IP, fmt.Sprintf("%d", handle.Port))
		}
		return nil, apperrors.AlreadyRunning(addr)
	}
	s.state = StateStarting
	s.mu.Unlock()

	handle, err := s.doStart(preferredPort)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateOffline
		s.handle = nil
		return nil, err
	}
	s.state = StateRunning
	s.handle = handle

	copied := *handle
	return &copied, nil
}

// doStart performs the spawn sequence. Called without the lock held; the
// caller owns the Starting state.
func (s *Supervisor) doStart(preferredPort int) (*storage.ServerState, error) {
	ip := s.localIP()

	port, err := s.findPort(preferredPort, lan.DefaultPortRange)
	if err != nil {
		return nil, err
	}

	entrypoint, err := s.entry()
	if err != nil {
		return nil, apperrors.EntryPointMissing("", err)
	}
	if _, statErr := os.Stat(entrypoint); statErr != nil {
		return nil, apperrors.EntryPointMissing(entrypoint, statErr)
	}

	pid, err := s.spawn(entrypoint, port, s.logPath, s.configPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeServerStartupFailed, "spawn control server", err)
	}

	// Best-effort startup check: give the child a moment, then poll once.
	s.sleep(startupGrace)
	if !s.pidAlive(pid) {
		return nil, apperrors.StartupFailed(s.logPath)
	}

	handle := &storage.ServerState{
		PID:       pid,
		IP:        ip,
		Port:      port,
		StartTime: s.now(),
	}
	if err := s.store.Save(handle); err != nil {
		// The server is up but the record is not durable. Kill it rather
		// than leave an orphan the next run cannot discover.
		_ = s.terminate(pid)
		return nil, err
	}

	log.Printf("supervisor: started control server pid=%d at %s:%d", pid, ip, port)
	return handle, nil
}

// Stop terminates the control server and clears its handle. The termination
// signal is best-effort: even if the process is already gone, the handle and
// the persisted record are cleared and the state returns to Offline, so Stop
// is idempotent with respect to final state. It returns the formatted uptime
// of the stopped server.
func (s *Supervisor) Stop() (string, error) {
	s.mu.Lock()
	if s.handle == nil {
		s.mu.Unlock()
		// A different supervisor instance may have started the server.
		// Try adopting a persisted handle before giving up.
		if err := s.recover(); err != nil {
			return "", err
		}
		s.mu.Lock()
	}

	if s.handle == nil {
		s.mu.Unlock()
		return "", apperrors.NotRunning()
	}

	handle := s.handle
	s.state = StateStopping
	s.mu.Unlock()

	uptime := FormatUptime(handle.StartTime, s.now())

	if err := s.terminate(handle.PID); err != nil {
		// Already gone, permission lost, whatever: the record still has
		// to go so we do not keep reporting a dead server.
		log.Printf("supervisor: terminate pid=%d: %v", handle.PID, err)
	}

	clearErr := s.store.Clear()

	s.mu.Lock()
	s.handle = nil
	s.state = StateOffline
	s.mu.Unlock()

	if clearErr != nil {
		return uptime, clearErr
	}

	log.Printf("supervisor: stopped control server pid=%d (up %s)", handle.PID, uptime)
	return uptime, nil
}

// Uptime returns the formatted uptime of the running server, or the zero
// placeholder when none is running.
func (s *Supervisor) Uptime() string {
	s.mu.Lock()
	handle := s.handle
	s.mu.Unlock()

	if handle == nil {
		return FormatUptime(time.Time{}, s.now())
	}
	return FormatUptime(handle.StartTime, s.now())
}

// WatchUptime invokes fn with the formatted uptime once per second until the
// context is cancelled. Intended for a front-end status display.
func (s *Supervisor) WatchUptime(ctx context.Context, fn func(uptime string)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(s.Uptime())
		}
	}
}

// FormatUptime renders the elapsed time between start and now as
// "Xh Ym Zs". A zero start time yields the "0h 0m 0s" placeholder.
func FormatUptime(start, now time.Time) string {
	if start.IsZero() || now.Before(start) {
		return "0h 0m 0s"
	}
	elapsed := int(now.Sub(start).Seconds())
	hours := elapsed / 3600
	minutes := (elapsed % 3600) / 60
	seconds := elapsed % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// loopbackPortOpen reports whether a TCP connect to 127.0.0.1:port succeeds.
func loopbackPortOpen(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", port)), probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
