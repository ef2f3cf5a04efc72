package storage

// state.go contains the SQLiteStore methods for the persisted server handle.
// The handle is a single row; Save replaces it, Load re-materializes it, and
// Clear deletes it. Load treats any malformed row as absence and clears it,
// so a bad record from a crashed writer can never wedge the supervisor.

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
)

// Save persists the server handle, replacing any previous record.
func (s *SQLiteStore) Save(state *ServerState) error {
	if state == nil {
		return errors.New("state cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("storage: saving server state (pid=%d, addr=%s:%d)", state.PID, state.IP, state.Port)

	const query = `
		INSERT OR REPLACE INTO server_state (id, pid, ip, port, start_time)
		VALUES (1, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		state.PID,
		state.IP,
		state.Port,
		state.StartTime.Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageQueryFailed, "save server state", err)
	}

	return nil
}

// Load returns the persisted server handle, or nil if none exists.
//
// A malformed row (zero pid/port or an unparseable timestamp) is the trace of
// a partial write or manual edit. It is logged, cleared, and reported as
// absence - corruption never propagates to the supervisor.
func (s *SQLiteStore) Load() (*ServerState, error) {
	s.mu.RLock()

	const query = `SELECT pid, ip, port, start_time FROM server_state WHERE id = 1`

	var (
		state    ServerState
		startRaw string
	)
	err := s.db.QueryRow(query).Scan(&state.PID, &state.IP, &state.Port, &startRaw)
	s.mu.RUnlock()

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		// Unreadable row: recover locally by treating it as absence.
		log.Printf("storage: %v", apperrors.StateCorrupt(err.Error()))
		if clearErr := s.Clear(); clearErr != nil {
			log.Printf("storage: failed to clear corrupt state: %v", clearErr)
		}
		return nil, nil
	}

	if reason := validateState(&state, startRaw); reason != "" {
		log.Printf("storage: %v", apperrors.StateCorrupt(reason))
		if clearErr := s.Clear(); clearErr != nil {
			log.Printf("storage: failed to clear corrupt state: %v", clearErr)
		}
		return nil, nil
	}

	state.StartTime, _ = time.Parse(time.RFC3339Nano, startRaw)
	return &state, nil
}

// Clear removes the persisted server handle.
// Clearing an absent record is not an error.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM server_state WHERE id = 1"); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageQueryFailed, "clear server state", err)
	}

	log.Printf("storage: server state cleared")
	return nil
}

// validateState returns a non-empty reason string when the row cannot
// describe a live server.
func validateState(state *ServerState, startRaw string) string {
	if state.PID <= 0 {
		return fmt.Sprintf("invalid pid %d", state.PID)
	}
	if state.Port <= 0 || state.Port > 65535 {
		return fmt.Sprintf("invalid port %d", state.Port)
	}
	if state.IP == "" {
		return "empty ip"
	}
	if _, err := time.Parse(time.RFC3339Nano, startRaw); err != nil {
		return fmt.Sprintf("bad start_time %q", startRaw)
	}
	return ""
}
