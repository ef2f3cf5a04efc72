package mouse

import "sync"

// SimPointer is an in-memory Pointer used by tests and by the wsclient's
// dry-run mode. It tracks position and held buttons instead of injecting
// OS events, and records every operation in order.
type SimPointer struct {
	mu      sync.Mutex
	x, y    int
	held    map[Button]bool
	history []string
	scrollX int
	scrollY int
}

var _ Pointer = (*SimPointer)(nil)

// NewSimPointer creates a simulated pointer at origin.
func NewSimPointer() *SimPointer {
	return &SimPointer{held: make(map[Button]bool)}
}

func (s *SimPointer) record(op string) {
	s.history = append(s.history, op)
}

// Click records a click of the given button.
func (s *SimPointer) Click(button Button) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("click:" + string(button))
	return nil
}

// Press marks the button held.
func (s *SimPointer) Press(button Button) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[button] = true
	s.record("press:" + string(button))
	return nil
}

// Release marks the button no longer held.
func (s *SimPointer) Release(button Button) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held[button] = false
	s.record("release:" + string(button))
	return nil
}

// Scroll accumulates scroll deltas.
func (s *SimPointer) Scroll(dx, dy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollX += dx
	s.scrollY += dy
	s.record("scroll")
	return nil
}

// GetPosition reports the simulated cursor position.
func (s *SimPointer) GetPosition() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y, nil
}

// SetPosition moves the simulated cursor.
func (s *SimPointer) SetPosition(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x = x
	s.y = y
	s.record("move")
	return nil
}

// Position returns the current simulated coordinates.
func (s *SimPointer) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.x, s.y
}

// Held reports whether the given button is currently pressed.
func (s *SimPointer) Held(button Button) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[button]
}

// ScrollTotals returns the accumulated scroll deltas.
func (s *SimPointer) ScrollTotals() (dx, dy int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollX, s.scrollY
}

// History returns the recorded operations in order.
func (s *SimPointer) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}
