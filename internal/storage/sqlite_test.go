package storage

import (
	"path/filepath"
	"testing"
	"time"
)

// newTestStore opens a file-backed store in a temp directory.
// File-backed (not :memory:) so re-open behavior can be tested.
func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remotemouse.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

// TestSaveLoadRoundTrip verifies save followed by load returns an equal handle.
func TestSaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)

	in := &ServerState{
		PID:       4242,
		IP:        "192.168.1.20",
		Port:      8003,
		StartTime: time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
	}

	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out == nil {
		t.Fatal("Load() returned nil after Save")
	}

	if out.PID != in.PID || out.IP != in.IP || out.Port != in.Port {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
	if !out.StartTime.Equal(in.StartTime) {
		t.Errorf("StartTime = %v, want %v", out.StartTime, in.StartTime)
	}
}

// TestLoad_Absent verifies Load on an empty store returns nil, nil.
func TestLoad_Absent(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %+v, want nil", state)
	}
}

// TestSave_Replaces verifies a second Save overwrites the first record.
func TestSave_Replaces(t *testing.T) {
	store, _ := newTestStore(t)

	first := &ServerState{PID: 1, IP: "10.0.0.1", Port: 8000, StartTime: time.Now()}
	second := &ServerState{PID: 2, IP: "10.0.0.2", Port: 8001, StartTime: time.Now()}

	if err := store.Save(first); err != nil {
		t.Fatalf("Save(first) error: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save(second) error: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out == nil || out.PID != 2 || out.Port != 8001 {
		t.Errorf("Load() = %+v, want the second record", out)
	}
}

// TestClear_Idempotent verifies Clear removes the record and that repeated
// calls stay error-free.
func TestClear_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Save(&ServerState{PID: 7, IP: "10.0.0.1", Port: 8000, StartTime: time.Now()}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() #%d error: %v", i+1, err)
		}
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if state != nil {
		t.Errorf("Load() = %+v after Clear, want nil", state)
	}
}

// TestLoad_CorruptRow verifies a malformed record is treated as absence and
// cleared, never surfaced as an error.
func TestLoad_CorruptRow(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		ip   string
		port int
		at   string
	}{
		{"zero pid", 0, "10.0.0.1", 8000, time.Now().Format(time.RFC3339Nano)},
		{"bad port", 99, "10.0.0.1", -5, time.Now().Format(time.RFC3339Nano)},
		{"empty ip", 99, "", 8000, time.Now().Format(time.RFC3339Nano)},
		{"bad timestamp", 99, "10.0.0.1", 8000, "not-a-time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)

			// Write the malformed row directly, bypassing Save validation.
			_, err := store.db.Exec(
				"INSERT OR REPLACE INTO server_state (id, pid, ip, port, start_time) VALUES (1, ?, ?, ?, ?)",
				tt.pid, tt.ip, tt.port, tt.at,
			)
			if err != nil {
				t.Fatalf("insert corrupt row: %v", err)
			}

			state, err := store.Load()
			if err != nil {
				t.Fatalf("Load() error: %v (corruption must not surface)", err)
			}
			if state != nil {
				t.Errorf("Load() = %+v, want nil for corrupt row", state)
			}

			// The corrupt row must have been cleared.
			var count int
			if err := store.db.QueryRow("SELECT COUNT(*) FROM server_state").Scan(&count); err != nil {
				t.Fatalf("count rows: %v", err)
			}
			if count != 0 {
				t.Errorf("corrupt row not cleared (count=%d)", count)
			}
		})
	}
}

// TestStateSurvivesReopen verifies the record survives closing and reopening
// the database, which is the restart-recovery path.
func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotemouse.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}

	in := &ServerState{PID: 321, IP: "192.168.1.5", Port: 8010, StartTime: time.Now().UTC()}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	out, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load() after reopen error: %v", err)
	}
	if out == nil || out.PID != 321 || out.Port != 8010 {
		t.Errorf("Load() after reopen = %+v, want pid=321 port=8010", out)
	}
}

// TestSessionEvents verifies recording and newest-first listing.
func TestSessionEvents(t *testing.T) {
	store, _ := newTestStore(t)

	events := []*SessionEvent{
		{SessionID: "a", Kind: SessionEventConnected, RemoteAddr: "10.0.0.9:5000"},
		{SessionID: "b", Kind: SessionEventRejected, RemoteAddr: "10.0.0.10:5001", Detail: "slot occupied"},
		{SessionID: "a", Kind: SessionEventDisconnected, RemoteAddr: "10.0.0.9:5000"},
	}
	for _, ev := range events {
		if err := store.RecordSessionEvent(ev); err != nil {
			t.Fatalf("RecordSessionEvent() error: %v", err)
		}
	}

	got, err := store.ListSessionEvents(10)
	if err != nil {
		t.Fatalf("ListSessionEvents() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(got))
	}

	// Newest first.
	if got[0].Kind != SessionEventDisconnected {
		t.Errorf("first event kind = %s, want disconnected", got[0].Kind)
	}
	if got[1].Detail != "slot occupied" {
		t.Errorf("second event detail = %q, want %q", got[1].Detail, "slot occupied")
	}
	if got[2].Kind != SessionEventConnected {
		t.Errorf("last event kind = %s, want connected", got[2].Kind)
	}
	for _, ev := range got {
		if ev.At.IsZero() {
			t.Error("event has zero timestamp; RecordSessionEvent should default to now")
		}
	}
}

// TestSessionEventRetention verifies old rows are deleted past the limit.
func TestSessionEventRetention(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping retention sweep in short mode")
	}

	store, _ := newTestStore(t)

	for i := 0; i < maxSessionEvents+10; i++ {
		ev := &SessionEvent{SessionID: "s", Kind: SessionEventConnected, RemoteAddr: "10.0.0.1:1"}
		if err := store.RecordSessionEvent(ev); err != nil {
			t.Fatalf("RecordSessionEvent() #%d error: %v", i, err)
		}
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM session_events").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != maxSessionEvents {
		t.Errorf("retained %d events, want %d", count, maxSessionEvents)
	}
}

// TestMemStore verifies the in-memory store matches the SQLite contract.
func TestMemStore(t *testing.T) {
	store := NewMemStore()

	if state, err := store.Load(); err != nil || state != nil {
		t.Fatalf("Load() on empty store = %+v, %v; want nil, nil", state, err)
	}

	in := &ServerState{PID: 11, IP: "10.1.1.1", Port: 8000, StartTime: time.Now()}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out.PID != 11 {
		t.Errorf("Load().PID = %d, want 11", out.PID)
	}

	// Mutating the returned copy must not affect the stored record.
	out.PID = 999
	again, _ := store.Load()
	if again.PID != 11 {
		t.Error("Load() should return copies, not shared state")
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if state, _ := store.Load(); state != nil {
		t.Error("Load() after Clear should be nil")
	}
}
