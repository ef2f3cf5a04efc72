package mouse

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// xdotool button numbers.
const (
	xdoButtonLeft  = "1"
	xdoButtonRight = "3"
	xdoScrollUp    = "4"
	xdoScrollDown  = "5"
	xdoScrollLeft  = "6"
	xdoScrollRight = "7"
)

// XdoPointer injects pointer events by shelling out to xdotool. It is the
// default backend on X11 hosts; tests inject a SimPointer instead.
type XdoPointer struct {
	// run executes an xdotool invocation and returns stdout. Overridable
	// in tests.
	run func(args ...string) (string, error)
}

var _ Pointer = (*XdoPointer)(nil)

// NewXdoPointer creates a Pointer backed by the xdotool binary.
// It fails fast when the binary is not on PATH so the serve command can
// report a usable error at startup instead of on the first gesture.
func NewXdoPointer() (*XdoPointer, error) {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return nil, fmt.Errorf("xdotool not found on PATH: %w", err)
	}
	return &XdoPointer{run: runXdotool}, nil
}

// runXdotool executes xdotool and returns trimmed stdout.
func runXdotool(args ...string) (string, error) {
	cmd := exec.Command("xdotool", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return "", fmt.Errorf("xdotool %s: %s", strings.Join(args, " "), errMsg)
	}

	return strings.TrimSpace(stdout.String()), nil
}

func xdoButton(button Button) string {
	if button == ButtonRight {
		return xdoButtonRight
	}
	return xdoButtonLeft
}

// Click performs a single click.
func (p *XdoPointer) Click(button Button) error {
	_, err := p.run("click", xdoButton(button))
	return err
}

// Press holds a button down.
func (p *XdoPointer) Press(button Button) error {
	_, err := p.run("mousedown", xdoButton(button))
	return err
}

// Release lets go of a held button.
func (p *XdoPointer) Release(button Button) error {
	_, err := p.run("mouseup", xdoButton(button))
	return err
}

// Scroll emits one click event per unit of delta; xdotool has no native
// smooth-scroll primitive.
func (p *XdoPointer) Scroll(dx, dy int) error {
	if err := p.scrollAxis(dy, xdoScrollUp, xdoScrollDown); err != nil {
		return err
	}
	return p.scrollAxis(dx, xdoScrollRight, xdoScrollLeft)
}

func (p *XdoPointer) scrollAxis(amount int, positive, negative string) error {
	if amount == 0 {
		return nil
	}
	button := positive
	if amount < 0 {
		button = negative
		amount = -amount
	}
	_, err := p.run("click", "--repeat", strconv.Itoa(amount), button)
	return err
}

// GetPosition queries the cursor location via `xdotool getmouselocation`.
func (p *XdoPointer) GetPosition() (int, int, error) {
	// Output looks like: "x:512 y:384 screen:0 window:1234".
	out, err := p.run("getmouselocation")
	if err != nil {
		return 0, 0, err
	}

	var x, y int
	haveX, haveY := false, false
	for _, field := range strings.Fields(out) {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			continue
		}
		switch key {
		case "x":
			x, haveX = n, true
		case "y":
			y, haveY = n, true
		}
	}
	if !haveX || !haveY {
		return 0, 0, fmt.Errorf("unexpected getmouselocation output %q", out)
	}
	return x, y, nil
}

// SetPosition warps the cursor to absolute coordinates.
func (p *XdoPointer) SetPosition(x, y int) error {
	_, err := p.run("mousemove", strconv.Itoa(x), strconv.Itoa(y))
	return err
}
