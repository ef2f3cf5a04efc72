package storage

// events.go contains the SQLiteStore methods for the session audit log.
// Events track controller admissions, rejections, and disconnects so the
// front-end log viewer can show who drove the pointer and when.

import (
	"errors"
	"log"
	"time"

	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
)

// maxSessionEvents is the maximum number of audit rows to retain.
// Older rows are deleted when this limit is exceeded.
const maxSessionEvents = 500

// RecordSessionEvent appends one row to the session audit log and enforces
// the retention limit.
func (s *SQLiteStore) RecordSessionEvent(event *SessionEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}

	const query = `
		INSERT INTO session_events (session_id, kind, remote_addr, detail, at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		event.SessionID,
		string(event.Kind),
		event.RemoteAddr,
		event.Detail,
		at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageQueryFailed, "record session event", err)
	}

	// Enforce retention: delete oldest rows beyond the limit.
	const cleanupQuery = `
		DELETE FROM session_events WHERE id IN (
			SELECT id FROM session_events ORDER BY id DESC LIMIT -1 OFFSET ?
		)
	`
	if _, err := s.db.Exec(cleanupQuery, maxSessionEvents); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageQueryFailed, "enforce event retention", err)
	}

	return nil
}

// ListSessionEvents returns recent audit rows, newest first.
// The limit parameter controls how many rows to return (0 = default limit).
func (s *SQLiteStore) ListSessionEvents(limit int) ([]*SessionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = maxSessionEvents
	}

	const query = `
		SELECT session_id, kind, remote_addr, detail, at
		FROM session_events
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "list session events", err)
	}
	defer rows.Close()

	var events []*SessionEvent
	for rows.Next() {
		var (
			ev    SessionEvent
			kind  string
			atRaw string
		)
		if err := rows.Scan(&ev.SessionID, &kind, &ev.RemoteAddr, &ev.Detail, &atRaw); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "scan session event", err)
		}
		ev.Kind = SessionEventKind(kind)

		at, err := time.Parse(time.RFC3339Nano, atRaw)
		if err != nil {
			// A bad timestamp in the audit log is not worth failing a
			// listing over; keep the row with a zero time.
			log.Printf("storage: bad event timestamp %q", atRaw)
		}
		ev.At = at
		events = append(events, &ev)
	}

	return events, rows.Err()
}
