// Package storage persists the control-server handle and the session audit
// log so they survive host restarts.
//
// The server handle is advisory: a loaded record only says what was true when
// it was written. The supervisor re-verifies liveness before trusting it, and
// a corrupt or partial record is treated as absence, never as an error.
package storage

import (
	"time"
)

// ServerState is the persisted record describing the last known running
// control server. It is owned exclusively by the supervisor; everything else
// reads the supervisor's in-memory view.
type ServerState struct {
	// PID is the process identifier of the spawned control server.
	PID int

	// IP is the LAN address the server is expected to be reachable on.
	IP string

	// Port is the TCP port the server is bound to.
	Port int

	// StartTime is when liveness was confirmed after the spawn.
	StartTime time.Time
}

// StateStore persists and reloads the server handle.
// Implementations must treat unreadable or malformed records as absence:
// Load returns (nil, nil) and clears the bad record rather than failing.
type StateStore interface {
	// Save persists the handle, replacing any previous record.
	Save(state *ServerState) error

	// Load returns the persisted handle, or nil if none exists.
	// A corrupt record is cleared and reported as nil, never as an error.
	Load() (*ServerState, error)

	// Clear removes the persisted handle. Clearing an absent record is not
	// an error.
	Clear() error
}

// SessionEventKind classifies entries in the session audit log.
type SessionEventKind string

const (
	// SessionEventConnected records a controller being admitted.
	SessionEventConnected SessionEventKind = "connected"

	// SessionEventRejected records a connection refused because the slot
	// was occupied.
	SessionEventRejected SessionEventKind = "rejected"

	// SessionEventDisconnected records the admitted controller leaving,
	// cleanly or not.
	SessionEventDisconnected SessionEventKind = "disconnected"
)

// SessionEvent is one row of the session audit log. The log gives the
// front-end's log viewer a data source and helps debug contested admissions.
type SessionEvent struct {
	// SessionID is the uuid assigned to the connection by the gate.
	SessionID string

	// Kind is what happened.
	Kind SessionEventKind

	// RemoteAddr is the peer address of the connection.
	RemoteAddr string

	// Detail carries an optional human-readable note (e.g., the close reason).
	Detail string

	// At is when the event occurred.
	At time.Time
}

// SessionEventStore records and lists session audit events.
type SessionEventStore interface {
	RecordSessionEvent(event *SessionEvent) error
	ListSessionEvents(limit int) ([]*SessionEvent, error)
}
