// Package hc194 drives 74HC194 4-bit universal shift registers: one feeding
// LEDs d1..d4 and one latching push-buttons PB1..PB4. Both share the S0/S1
// mode lines and have their own clock.
package hc194

import (
	"time"

	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/timex"
)

// Mode is the (S0, S1) selection.
type Mode uint8

const (
	Hold       Mode = iota // S0=0 S1=0
	ShiftRight             // S0=1 S1=0, QA takes the serial input
	ShiftLeft              // S0=0 S1=1
	Load                   // S0=1 S1=1, parallel load on the next clock
)

func (m Mode) String() string {
	switch m {
	case ShiftRight:
		return "shift-right"
	case ShiftLeft:
		return "shift-left"
	case Load:
		return "load"
	default:
		return "hold"
	}
}

type Pins struct {
	S0, S1 halcore.GPIOPin
	Clock  halcore.GPIOPin
	Serial halcore.GPIOPin // right-shift serial input, optional
	QD     halcore.GPIOPin // last stage output, optional
	Clear  halcore.GPIOPin // active-low master reset, optional
}

// Register is one 74HC194.
type Register struct {
	p     Pins
	clock timex.Clock
	// Pulse is the clock high time. Zero toggles back immediately.
	Pulse time.Duration
	mode  Mode
}

func New(p Pins, clock timex.Clock) *Register {
	return &Register{p: p, clock: clock}
}

// Configure sets the control lines to outputs in Hold.
func (r *Register) Configure() error {
	for _, pin := range []halcore.GPIOPin{r.p.S0, r.p.S1, r.p.Clock, r.p.Serial} {
		if pin == nil {
			continue
		}
		if err := pin.ConfigureOutput(false); err != nil {
			return err
		}
	}
	if r.p.Clear != nil {
		if err := r.p.Clear.ConfigureOutput(true); err != nil {
			return err
		}
	}
	if r.p.QD != nil {
		if err := r.p.QD.ConfigureInput(halcore.PullNone); err != nil {
			return err
		}
	}
	r.mode = Hold
	return nil
}

func (r *Register) SetMode(m Mode) {
	r.p.S0.Set(m == ShiftRight || m == Load)
	r.p.S1.Set(m == ShiftLeft || m == Load)
	r.mode = m
}

func (r *Register) Mode() Mode { return r.mode }

// Clock emits one rising edge.
func (r *Register) Clock() {
	r.p.Clock.Set(true)
	if r.Pulse > 0 {
		r.clock.Sleep(r.Pulse)
	}
	r.p.Clock.Set(false)
}

func (r *Register) SetSerial(level bool) {
	if r.p.Serial != nil {
		r.p.Serial.Set(level)
	}
}

// QD reads the last stage.
func (r *Register) QD() bool {
	if r.p.QD == nil {
		return false
	}
	return r.p.QD.Get()
}

// Clear pulses the master reset when wired.
func (r *Register) Clear() {
	if r.p.Clear == nil {
		return
	}
	r.p.Clear.Set(false)
	r.p.Clear.Set(true)
}

// ---------------------------------------------------------------------------
// LED bank
// ---------------------------------------------------------------------------

// LEDCount is the number of LEDs on the bank (d1..d4).
const LEDCount = 4

// LEDBank keeps the d1..d4 pattern; bit i lights d(i+1).
type LEDBank struct {
	reg     *Register
	pattern uint8
}

func NewLEDBank(reg *Register) *LEDBank { return &LEDBank{reg: reg} }

// Write shifts pattern out MSB first so that bit 0 lands on QA.
func (b *LEDBank) Write(pattern uint8) {
	pattern &= 1<<LEDCount - 1
	b.reg.SetMode(ShiftRight)
	for i := LEDCount - 1; i >= 0; i-- {
		b.reg.SetSerial(pattern>>i&1 == 1)
		b.reg.Clock()
	}
	b.reg.SetMode(Hold)
	b.pattern = pattern
}

// Set changes LED n (1..4) and rewrites the bank. Other bits are kept.
func (b *LEDBank) Set(n int, on bool) bool {
	if n < 1 || n > LEDCount {
		return false
	}
	p := b.pattern
	if on {
		p |= 1 << (n - 1)
	} else {
		p &^= 1 << (n - 1)
	}
	b.Write(p)
	return true
}

func (b *LEDBank) Pattern() uint8 { return b.pattern }

// ---------------------------------------------------------------------------
// Push-buttons
// ---------------------------------------------------------------------------

// ButtonReader reads PB1..PB4 through the register (active high) and PB5,
// PB6 from direct inputs (active low).
type ButtonReader struct {
	reg      *Register
	pb5, pb6 halcore.GPIOPin
}

func NewButtonReader(reg *Register, pb5, pb6 halcore.GPIOPin) *ButtonReader {
	return &ButtonReader{reg: reg, pb5: pb5, pb6: pb6}
}

func (b *ButtonReader) Configure() error {
	if err := b.reg.Configure(); err != nil {
		return err
	}
	if err := b.pb5.ConfigureInput(halcore.PullUp); err != nil {
		return err
	}
	return b.pb6.ConfigureInput(halcore.PullUp)
}

// Read returns the button mask: bit i set means PB(i+1) is pressed.
func (b *ButtonReader) Read() uint8 {
	b.reg.SetMode(Load)
	b.reg.Clock()

	var v uint8
	v = bit(v, !b.pb6.Get())
	v = bit(v, !b.pb5.Get())

	// QD shows input D first; shift right walks C, B, A into it.
	b.reg.SetMode(ShiftRight)
	for i := 0; i < 4; i++ {
		v = bit(v, b.reg.QD())
		if i < 3 {
			b.reg.Clock()
		}
	}
	b.reg.SetMode(Hold)
	return v
}

func bit(acc uint8, set bool) uint8 {
	acc <<= 1
	if set {
		acc |= 1
	}
	return acc
}
