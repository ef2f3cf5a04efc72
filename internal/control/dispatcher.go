package control

import (
	"encoding/json"
	"log"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/WaniAthar/remote-mouse-server/internal/errors"
	"github.com/WaniAthar/remote-mouse-server/internal/mouse"
)

// ActionMessage is one decoded control frame. Value is decoded lazily per
// action since each action expects different fields.
type ActionMessage struct {
	Action string          `json:"action"`
	Value  json.RawMessage `json:"value"`
}

// buttonValue carries the optional button field of a click.
type buttonValue struct {
	Button string `json:"button"`
}

// amountValue carries the signed scroll delta.
type amountValue struct {
	Amount float64 `json:"amount"`
}

// moveValue carries the relative motion deltas.
type moveValue struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Dispatcher turns decoded control frames into pointer operations.
// Messages are handled strictly sequentially by the single session's read
// loop, so the dispatcher itself needs no locking.
type Dispatcher struct {
	pointer     mouse.Pointer
	sensitivity float64

	// remX and remY carry the fractional part of scaled move deltas into
	// the next frame. Without them, per-frame truncation would make two
	// moves land short of one summed move whenever sensitivity or the
	// deltas are fractional.
	remX, remY float64

	// moveLog throttles logging of high-frequency motion frames. A touchpad
	// gesture produces dozens of move messages per second and logging each
	// one would drown the log.
	moveLog *rate.Limiter
}

// NewDispatcher creates a dispatcher driving the given pointer. Sensitivity
// scales move deltas; values <= 0 fall back to 1.
func NewDispatcher(pointer mouse.Pointer, sensitivity float64) *Dispatcher {
	if sensitivity <= 0 {
		sensitivity = 1.0
	}
	return &Dispatcher{
		pointer:     pointer,
		sensitivity: sensitivity,
		moveLog:     rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

// Dispatch decodes and executes one raw control frame. A frame that is not
// valid JSON returns an InvalidMessage error, which terminates the session.
// Unknown actions and pointer-level failures are logged and swallowed: the
// session stays open and the pointer state is untouched.
func (d *Dispatcher) Dispatch(raw []byte) error {
	var msg ActionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return apperrors.InvalidMessage(err)
	}

	if err := d.dispatch(msg); err != nil {
		// Pointer injection failed (e.g., no display). Not a protocol
		// error, so the session survives.
		log.Printf("control: action %q failed: %v", msg.Action, err)
	}
	return nil
}

func (d *Dispatcher) dispatch(msg ActionMessage) error {
	switch msg.Action {
	case "click":
		var v buttonValue
		d.decodeValue(msg.Value, &v)
		button, err := mouse.ParseButton(v.Button)
		if err != nil {
			log.Printf("control: %v, ignoring click", err)
			return nil
		}
		return d.pointer.Click(button)

	case "left_press":
		return d.pointer.Press(mouse.ButtonLeft)

	case "left_release":
		return d.pointer.Release(mouse.ButtonLeft)

	case "right_press":
		return d.pointer.Press(mouse.ButtonRight)

	case "right_release":
		return d.pointer.Release(mouse.ButtonRight)

	case "scroll":
		var v amountValue
		d.decodeValue(msg.Value, &v)
		return d.pointer.Scroll(0, int(v.Amount))

	case "hscroll":
		var v amountValue
		d.decodeValue(msg.Value, &v)
		return d.pointer.Scroll(int(v.Amount), 0)

	case "move":
		var v moveValue
		d.decodeValue(msg.Value, &v)
		return d.move(v.DX, v.DY)

	default:
		log.Printf("control: ignoring unknown action %q", msg.Action)
		return nil
	}
}

// move applies a relative motion: read the current position, add the scaled
// deltas, write it back. Two moves compose the same as one move with summed
// deltas because each read observes the previous write.
func (d *Dispatcher) move(dx, dy float64) error {
	x, y, err := d.pointer.GetPosition()
	if err != nil {
		return err
	}

	scaledX := dx*d.sensitivity + d.remX
	scaledY := dy*d.sensitivity + d.remY
	stepX := int(scaledX)
	stepY := int(scaledY)
	d.remX = scaledX - float64(stepX)
	d.remY = scaledY - float64(stepY)

	newX := x + stepX
	newY := y + stepY

	if d.moveLog.Allow() {
		log.Printf("control: move to (%d, %d)", newX, newY)
	}

	return d.pointer.SetPosition(newX, newY)
}

// decodeValue fills dst from the frame's value field. A missing or
// malformed value leaves dst at its zero value, which every action treats
// as its documented default.
func (d *Dispatcher) decodeValue(raw json.RawMessage, dst any) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("control: bad value payload: %v", err)
	}
}
