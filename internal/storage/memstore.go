package storage

import "sync"

// MemStore is an in-memory StateStore for tests and dependency injection.
// It mirrors the SQLite semantics: Load of an absent record returns nil, nil
// and Clear is idempotent.
type MemStore struct {
	mu    sync.Mutex
	state *ServerState
}

var _ StateStore = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Save stores a copy of the handle.
func (m *MemStore) Save(state *ServerState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.state = &copied
	return nil
}

// Load returns a copy of the stored handle, or nil if none.
func (m *MemStore) Load() (*ServerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, nil
	}
	copied := *m.state
	return &copied, nil
}

// Clear drops the stored handle.
func (m *MemStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}
