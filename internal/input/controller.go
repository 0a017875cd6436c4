// Package input implements controller handling for the NES.
package input

import "log"

// Button represents NES controller buttons
type Button uint8

const (
	ButtonA Button = 1 << iota
	ButtonB
	ButtonSelect
	ButtonStart
	ButtonUp
	ButtonDown
	ButtonLeft
	ButtonRight
)

// Convenience constants for shorter names used by host integrations.
const (
	A      = ButtonA
	B      = ButtonB
	Select = ButtonSelect
	Start  = ButtonStart
	Up     = ButtonUp
	Down   = ButtonDown
	Left   = ButtonLeft
	Right  = ButtonRight
)

// Controller represents a NES controller: an 8-bit button latch shifted out
// one bit per $4016/$4017 read once strobe goes low.
type Controller struct {
	buttons uint8

	shiftRegister  uint8
	strobe         bool
	buttonSnapshot uint8
	bitPosition    uint8 // 0-7 for buttons, 8+ reads back 0 (open bus)

	trace *log.Logger
}

// New creates a new Controller instance
func New() *Controller {
	return &Controller{}
}

// SetTraceLogger attaches an optional logger for button/strobe tracing.
func (c *Controller) SetTraceLogger(logger *log.Logger) {
	c.trace = logger
}

// SetButton sets the state of a single button.
func (c *Controller) SetButton(button Button, pressed bool) {
	if pressed {
		c.buttons |= uint8(button)
	} else {
		c.buttons &^= uint8(button)
	}
}

// SetButtons sets all eight button states at once, in NES order:
// A, B, Select, Start, Up, Down, Left, Right.
func (c *Controller) SetButtons(buttons [8]bool) {
	c.buttons = 0
	for i, pressed := range buttons {
		if pressed {
			c.buttons |= 1 << uint(i)
		}
	}
}

// IsPressed returns true if the button is currently pressed
func (c *Controller) IsPressed(button Button) bool {
	return (c.buttons & uint8(button)) != 0
}

// Write handles writes to the controller strobe register ($4016). While
// strobe is held high the button snapshot continuously follows live state;
// the falling edge latches it into the shift register for serial reads.
func (c *Controller) Write(value uint8) {
	wasStrobe := c.strobe
	c.strobe = (value & 1) != 0

	if c.strobe {
		c.buttonSnapshot = c.buttons
		c.shiftRegister = c.buttons
		c.bitPosition = 0
	} else if wasStrobe {
		c.buttonSnapshot = c.buttons
		c.shiftRegister = c.buttonSnapshot
		c.bitPosition = 0
	}

	if c.trace != nil {
		c.trace.Printf("controller write: value=%02X strobe=%t", value, c.strobe)
	}
}

// Read handles reads from the controller data line ($4016/$4017), returning
// one button bit per call in A,B,Select,Start,Up,Down,Left,Right order.
func (c *Controller) Read() uint8 {
	if c.strobe {
		c.bitPosition = 0
		return c.buttonSnapshot & 1
	}

	var result uint8
	if c.bitPosition < 8 {
		result = c.shiftRegister & 1
		c.shiftRegister >>= 1
	}
	c.bitPosition++
	return result
}

// Reset resets the controller state
func (c *Controller) Reset() {
	c.buttons = 0
	c.shiftRegister = 0
	c.strobe = false
	c.buttonSnapshot = 0
	c.bitPosition = 0
}

// GetBitPosition returns the current bit position (for testing)
func (c *Controller) GetBitPosition() uint8 {
	return c.bitPosition
}

// State is a Controller's save-state snapshot.
type State struct {
	Buttons        uint8
	ShiftRegister  uint8
	Strobe         bool
	ButtonSnapshot uint8
	BitPosition    uint8
}

// Snapshot captures the controller's current state.
func (c *Controller) Snapshot() State {
	return State{
		Buttons:        c.buttons,
		ShiftRegister:  c.shiftRegister,
		Strobe:         c.strobe,
		ButtonSnapshot: c.buttonSnapshot,
		BitPosition:    c.bitPosition,
	}
}

// Restore applies a previously captured State.
func (c *Controller) Restore(s State) {
	c.buttons = s.Buttons
	c.shiftRegister = s.ShiftRegister
	c.strobe = s.Strobe
	c.buttonSnapshot = s.ButtonSnapshot
	c.bitPosition = s.BitPosition
}

// InputState represents the state of all input devices
type InputState struct {
	Controller1 *Controller
	Controller2 *Controller
}

// NewInputState creates a new input state with two controllers
func NewInputState() *InputState {
	return &InputState{
		Controller1: New(),
		Controller2: New(),
	}
}

// Reset resets all input devices
func (is *InputState) Reset() {
	is.Controller1.Reset()
	is.Controller2.Reset()
}

// SetTraceLogger attaches an optional logger to both controllers.
func (is *InputState) SetTraceLogger(logger *log.Logger) {
	is.Controller1.SetTraceLogger(logger)
	is.Controller2.SetTraceLogger(logger)
}

// SetButtons1 sets all button states for controller 1
func (is *InputState) SetButtons1(buttons [8]bool) {
	is.Controller1.SetButtons(buttons)
}

// SetButtons2 sets all button states for controller 2
func (is *InputState) SetButtons2(buttons [8]bool) {
	is.Controller2.SetButtons(buttons)
}

// Read reads from controller ports. Controller 2's port carries the NES's
// open-bus bit 6 set on every read.
func (is *InputState) Read(address uint16) uint8 {
	switch address {
	case 0x4016:
		return is.Controller1.Read()
	case 0x4017:
		return is.Controller2.Read() | 0x40
	default:
		return 0
	}
}

// Write writes to controller ports. Both controllers see every $4016 write;
// there is no separate $4017 write register on real hardware.
func (is *InputState) Write(address uint16, value uint8) {
	if address == 0x4016 {
		is.Controller1.Write(value)
		is.Controller2.Write(value)
	}
}
