// Package mouse abstracts OS pointer injection behind a small interface so
// the control server can drive the host cursor without caring which
// input-injection backend is available.
package mouse

import "fmt"

// Button identifies a pointer button.
type Button string

const (
	// ButtonLeft is the primary button.
	ButtonLeft Button = "left"

	// ButtonRight is the secondary button.
	ButtonRight Button = "right"
)

// ParseButton maps a wire-format button name to a Button, defaulting to
// left for empty input. Unknown names are an error so the dispatcher can
// decide whether to ignore them.
func ParseButton(name string) (Button, error) {
	switch name {
	case "", "left":
		return ButtonLeft, nil
	case "right":
		return ButtonRight, nil
	default:
		return "", fmt.Errorf("unknown button %q", name)
	}
}

// Pointer is the OS input-injection capability the control server consumes.
// All operations are synchronous: they return once the OS has accepted the
// event.
type Pointer interface {
	// Click performs a single press-and-release of the given button.
	Click(button Button) error

	// Press holds the given button down until Release is called.
	Press(button Button) error

	// Release lets go of a held button.
	Release(button Button) error

	// Scroll scrolls by the given deltas. Positive dy scrolls up,
	// positive dx scrolls right.
	Scroll(dx, dy int) error

	// GetPosition reports the current cursor coordinates.
	GetPosition() (x, y int, err error)

	// SetPosition warps the cursor to absolute coordinates.
	SetPosition(x, y int) error
}
