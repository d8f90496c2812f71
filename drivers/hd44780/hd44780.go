// Package hd44780 drives a 16x2 HD44780 character LCD over a 4-bit parallel
// bus (RS, E, D4..D7; RW tied low). Timing is delay based; the busy flag is
// never read.
package hd44780

import (
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/conv"
)

// Geometry.
const (
	Rows = 2
	Cols = 16
)

// Instructions.
const (
	cmdClear        = 0x01
	cmdHome         = 0x02
	cmdEntryInc     = 0x06
	cmdDisplay      = 0x08
	displayOn       = 0x04
	displayCursor   = 0x02
	displayBlink    = 0x01
	cmdFunction4Bit = 0x28 // 4-bit, 2 lines, 5x8
	cmdSetCGRAM     = 0x40
	cmdSetDDRAM     = 0x80
	row2Offset      = 0x40
)

// Delays.
const (
	powerOnDelay = 50 * time.Millisecond
	resetDelay   = 5 * time.Millisecond
	shortDelay   = 100 * time.Microsecond
	execDelay    = 50 * time.Microsecond
	clearDelay   = 2 * time.Millisecond
	strobeWidth  = time.Microsecond
)

type Pins struct {
	RS   halcore.GPIOPin
	E    halcore.GPIOPin
	Data [4]halcore.GPIOPin // D4..D7
}

// Sleeper is the delay capability.
type Sleeper interface{ Sleep(d time.Duration) }

type Device struct {
	p       Pins
	clk     Sleeper
	control byte
}

func New(p Pins, clk Sleeper) *Device { return &Device{p: p, clk: clk} }

// initStep is one line of the power-on sequence.
type initStep struct {
	before time.Duration
	nibble bool // send the low 4 bits only
	v      byte
}

// Software reset into 4-bit mode, then function set, display on with
// cursor, clear, entry mode, display off.
var initSeq = [...]initStep{
	{powerOnDelay, true, 0x3},
	{resetDelay, true, 0x3},
	{shortDelay, true, 0x3},
	{shortDelay, true, 0x2},
	{execDelay, false, cmdFunction4Bit},
	{execDelay, false, cmdDisplay | displayOn | displayCursor},
	{execDelay, false, cmdClear},
	{clearDelay, false, cmdEntryInc},
	{execDelay, false, cmdDisplay},
}

// Configure runs the initialization sequence. It can be repeated at any time
// and always leaves the controller in 4-bit mode with the display off.
func (d *Device) Configure() error {
	for _, pin := range d.pins() {
		if pin == nil {
			return errcode.InvalidParams
		}
		if err := pin.ConfigureOutput(false); err != nil {
			return err
		}
	}
	for _, s := range initSeq {
		d.clk.Sleep(s.before)
		if s.nibble {
			d.p.RS.Set(false)
			d.nibble(s.v)
		} else {
			d.Command(s.v)
		}
	}
	d.control = 0
	return nil
}

func (d *Device) pins() []halcore.GPIOPin {
	return []halcore.GPIOPin{d.p.RS, d.p.E, d.p.Data[0], d.p.Data[1], d.p.Data[2], d.p.Data[3]}
}

// Command writes an instruction byte.
func (d *Device) Command(c byte) {
	d.p.RS.Set(false)
	d.write(c)
	if c == cmdClear || c == cmdHome {
		d.clk.Sleep(clearDelay)
	} else {
		d.clk.Sleep(execDelay)
	}
}

// PutChar writes one character at the cursor.
func (d *Device) PutChar(c byte) {
	d.p.RS.Set(true)
	d.write(c)
	d.clk.Sleep(execDelay)
}

// PutText writes s at the cursor.
func (d *Device) PutText(s string) {
	for i := 0; i < len(s); i++ {
		d.PutChar(s[i])
	}
}

// PutNumber writes n in decimal.
func (d *Device) PutNumber(n int) {
	var buf [12]byte
	for _, c := range conv.AppendInt(buf[:0], int64(n)) {
		d.PutChar(c)
	}
}

func (d *Device) Clear() { d.Command(cmdClear) }
func (d *Device) Home()  { d.Command(cmdHome) }

// SetCursor moves to row 1..2, column 1..16.
func (d *Device) SetCursor(row, col int) error {
	if row < 1 || row > Rows || col < 1 || col > Cols {
		return errcode.InvalidParams
	}
	addr := byte(col - 1)
	if row == 2 {
		addr += row2Offset
	}
	d.Command(cmdSetDDRAM | addr)
	return nil
}

// Display switches the display on with the cursor hidden, or off.
func (d *Device) Display(on bool) {
	if on {
		d.setControl(displayOn)
	} else {
		d.setControl(0)
	}
}

// ShowCursor shows or hides the underline cursor; the display is turned on.
func (d *Device) ShowCursor(on bool) {
	if on {
		d.setControl(displayOn | displayCursor)
	} else {
		d.setControl(displayOn)
	}
}

// Blink turns cursor blinking on (with the cursor shown) or back to a steady
// cursor.
func (d *Device) Blink(on bool) {
	if on {
		d.setControl(displayOn | displayCursor | displayBlink)
	} else {
		d.setControl(displayOn | displayCursor)
	}
}

func (d *Device) setControl(bits byte) {
	d.control = bits
	d.Command(cmdDisplay | bits)
}

// CreateChar stores an 8-row glyph at CGRAM location 0..7 and returns to
// DDRAM address 0.
func (d *Device) CreateChar(loc int, glyph [8]byte) error {
	if loc < 0 || loc > 7 {
		return errcode.InvalidParams
	}
	d.Command(cmdSetCGRAM | byte(loc*8))
	for _, row := range glyph {
		d.PutChar(row & 0x1F)
	}
	d.Command(cmdSetDDRAM)
	return nil
}

// write sends both nibbles, high first.
func (d *Device) write(b byte) {
	d.nibble(b >> 4)
	d.nibble(b)
}

func (d *Device) nibble(v byte) {
	for i, pin := range d.p.Data {
		pin.Set(v>>i&1 == 1)
	}
	d.p.E.Set(true)
	d.clk.Sleep(strobeWidth)
	d.p.E.Set(false)
}
