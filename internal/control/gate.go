package control

import (
	"sync"

	"github.com/google/uuid"
)

// Gate admits at most one active connection at a time. The slot is a single
// mutable cell guarded by a mutex: checking emptiness and occupying it happen
// under one lock acquisition, so two connections can never both observe an
// empty slot.
type Gate struct {
	mu         sync.Mutex
	sessionID  string
	remoteAddr string
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{}
}

// TryAcquire attempts to occupy the slot for the given peer. On success it
// returns a fresh session ID and true; if the slot is held it returns the
// holder's session ID and false without touching any state.
func (g *Gate) TryAcquire(remoteAddr string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sessionID != "" {
		return g.sessionID, false
	}

	g.sessionID = uuid.NewString()
	g.remoteAddr = remoteAddr
	return g.sessionID, true
}

// Release clears the slot if it is still held by the given session. A stale
// release (a session that was already replaced) is a no-op, so the cleanup
// path can run unconditionally.
func (g *Gate) Release(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sessionID == sessionID {
		g.sessionID = ""
		g.remoteAddr = ""
	}
}

// Active returns the current holder, if any.
func (g *Gate) Active() (sessionID, remoteAddr string, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionID, g.remoteAddr, g.sessionID != ""
}
