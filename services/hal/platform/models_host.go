//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"sensordash-go/services/hal/halcore"
)

// ---------------------------- MMA8451Q model ---------------------------------

const (
	mmaOutXMSB   = 0x01
	mmaWhoAmI    = 0x0D
	mmaXYZCfg    = 0x0E
	mmaCtrl1     = 0x2A
	mmaCtrl2     = 0x2B
	mmaFastRead  = 0x02
	mmaReset     = 0x40
	mmaSelfTest  = 0x80
	mmaDeviceID  = 0x1A
	mmaRegs      = 0x32
	mmaCounts4G  = 2048
	mmaSTOffsetX = 181
	mmaSTOffsetY = 255
	mmaSTOffsetZ = 1680
)

// MMA8451Model is a register-level accelerometer model.
// Acceleration is held in micro-g and rendered at the configured range.
type MMA8451Model struct {
	mu         sync.Mutex
	regs       [mmaRegs]byte
	ptr        byte
	rstPending bool
	ug         [3]int32
	resets     int
}

func NewMMA8451Model() *MMA8451Model {
	m := &MMA8451Model{}
	m.reset()
	m.ug = [3]int32{0, 0, 1_000_000}
	return m
}

func (m *MMA8451Model) reset() {
	m.regs = [mmaRegs]byte{}
	m.regs[mmaWhoAmI] = mmaDeviceID
}

// SetAcceleration sets the true acceleration in micro-g.
func (m *MMA8451Model) SetAcceleration(x, y, z int32) {
	m.mu.Lock()
	m.ug = [3]int32{x, y, z}
	m.mu.Unlock()
}

// Resets counts software resets.
func (m *MMA8451Model) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Reg returns a raw register value.
func (m *MMA8451Model) Reg(r byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[r%mmaRegs]
}

func (m *MMA8451Model) Write(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(p) == 0 {
		return
	}
	m.ptr = p[0] % mmaRegs
	for _, b := range p[1:] {
		m.store(m.ptr, b)
		m.ptr = (m.ptr + 1) % mmaRegs
	}
}

func (m *MMA8451Model) store(reg, b byte) {
	if reg == mmaCtrl2 && b&mmaReset != 0 {
		m.reset()
		m.regs[mmaCtrl2] = mmaReset
		m.rstPending = true
		m.resets++
		return
	}
	if reg == mmaWhoAmI || (reg >= mmaOutXMSB && reg <= mmaOutXMSB+5) {
		return // read-only
	}
	m.regs[reg] = b
}

func (m *MMA8451Model) NextByte() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.load(m.ptr)
	fast := m.regs[mmaCtrl1]&mmaFastRead != 0
	if fast && (m.ptr == 0x01 || m.ptr == 0x03) {
		m.ptr += 2
	} else {
		m.ptr = (m.ptr + 1) % mmaRegs
	}
	return v
}

func (m *MMA8451Model) load(reg byte) byte {
	switch {
	case reg == mmaCtrl2 && m.rstPending:
		// RST reads back set once, then self-clears.
		m.rstPending = false
		v := m.regs[mmaCtrl2]
		m.regs[mmaCtrl2] &^= mmaReset
		return v
	case reg >= mmaOutXMSB && reg <= mmaOutXMSB+5:
		axis := (reg - mmaOutXMSB) / 2
		raw := int16(m.counts14(int(axis)) << 2)
		if (reg-mmaOutXMSB)%2 == 0 {
			return byte(uint16(raw) >> 8)
		}
		return byte(raw)
	}
	return m.regs[reg]
}

// counts14 renders one axis as a 14-bit sample at the current range.
func (m *MMA8451Model) counts14(axis int) int32 {
	cpg := int64(4096 >> (m.regs[mmaXYZCfg] & 0x03))
	v := int64(m.ug[axis]) * cpg / 1_000_000
	if m.regs[mmaCtrl2]&mmaSelfTest != 0 {
		off := [3]int64{mmaSTOffsetX, mmaSTOffsetY, mmaSTOffsetZ}[axis]
		v += off * cpg / mmaCounts4G
	}
	if v > 8191 {
		v = 8191
	}
	if v < -8192 {
		v = -8192
	}
	return int32(v)
}

// ---------------------------- PCF8591 model ----------------------------------

// PCF8591Model is a 4-channel ADC/DAC. Each read byte returns the previous
// conversion, so the first byte of a burst is stale.
type PCF8591Model struct {
	mu     sync.Mutex
	ctrl   byte
	dac    byte
	in     [4]uint8
	ch     int
	last   uint8
	writes int
}

func (m *PCF8591Model) SetInput(ch int, v uint8) {
	m.mu.Lock()
	m.in[ch&3] = v
	m.mu.Unlock()
}

func (m *PCF8591Model) Control() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctrl
}

func (m *PCF8591Model) DAC() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dac
}

func (m *PCF8591Model) Write(p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if len(p) == 0 {
		return
	}
	m.ctrl = p[0]
	m.ch = int(p[0] & 0x03)
	if len(p) > 1 {
		m.dac = p[len(p)-1]
	}
}

func (m *PCF8591Model) NextByte() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.last
	m.last = m.in[m.ch]
	if m.ctrl&0x04 != 0 {
		m.ch = (m.ch + 1) & 3
	}
	return v
}

// ---------------------------- 74HC194 model ----------------------------------

// HC194Model is a 4-bit universal shift register clocked on CLK rising edges.
// Mode is (S0, S1): hold (0,0), shift right (1,0), shift left (0,1), load (1,1).
type HC194Model struct {
	mu     sync.Mutex
	s0, s1 *FakePin
	ser    *FakePin
	qd     *FakePin
	q      [4]bool // QA..QD
	in     [4]bool // parallel A..D
	clocks int
}

func NewHC194Model(s0, s1, clk, ser, qd *FakePin) *HC194Model {
	m := &HC194Model{s0: s0, s1: s1, ser: ser, qd: qd}
	_ = clk.SetIRQ(halcore.EdgeRising, m.onClock)
	return m
}

func (m *HC194Model) onClock() {
	m.mu.Lock()
	m.clocks++
	switch s0, s1 := m.s0.Get(), m.s1.Get(); {
	case s0 && s1:
		m.q = m.in
	case s0:
		serial := m.ser != nil && m.ser.Get()
		m.q = [4]bool{serial, m.q[0], m.q[1], m.q[2]}
	case s1:
		m.q = [4]bool{m.q[1], m.q[2], m.q[3], false}
	}
	qd := m.q[3]
	m.mu.Unlock()
	if m.qd != nil {
		m.qd.Set(qd)
	}
}

// SetInputs sets the parallel inputs; bit i drives input A+i.
func (m *HC194Model) SetInputs(bits uint8) {
	m.mu.Lock()
	for i := range m.in {
		m.in[i] = bits>>i&1 == 1
	}
	m.mu.Unlock()
}

// Outputs returns QA..QD as bits 0..3.
func (m *HC194Model) Outputs() uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v uint8
	for i, on := range m.q {
		if on {
			v |= 1 << i
		}
	}
	return v
}

func (m *HC194Model) Clocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clocks
}

// ---------------------------- HD44780 model ----------------------------------

// HD44780Model decodes the 4-bit parallel bus on E falling edges and keeps a
// 2x16 display buffer.
type HD44780Model struct {
	mu       sync.Mutex
	rs       *FakePin
	data     [4]*FakePin
	mode8    bool
	haveHigh bool
	high     byte
	ddram    [0x80]byte
	cgram    [64]byte
	addr     byte
	toCG     bool
	control  byte
	commands []byte
}

func NewHD44780Model(rs, e *FakePin, data [4]*FakePin) *HD44780Model {
	m := &HD44780Model{rs: rs, data: data, mode8: true}
	for i := range m.ddram {
		m.ddram[i] = ' '
	}
	_ = e.SetIRQ(halcore.EdgeFalling, m.onStrobe)
	return m
}

func (m *HD44780Model) onStrobe() {
	var nib byte
	for i, p := range m.data {
		if p.Get() {
			nib |= 1 << i
		}
	}
	rs := m.rs.Get()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode8 {
		m.exec(nib<<4, rs)
		return
	}
	if !m.haveHigh {
		m.high, m.haveHigh = nib, true
		return
	}
	m.haveHigh = false
	m.exec(m.high<<4|nib, rs)
}

func (m *HD44780Model) exec(b byte, rs bool) {
	if rs {
		if m.toCG {
			m.cgram[m.addr&0x3F] = b
		} else {
			m.ddram[m.addr&0x7F] = b
		}
		m.addr++
		return
	}
	m.commands = append(m.commands, b)
	switch {
	case b&0x80 != 0:
		m.addr, m.toCG = b&0x7F, false
	case b&0x40 != 0:
		m.addr, m.toCG = b&0x3F, true
	case b&0x20 != 0:
		m.mode8 = b&0x10 != 0
		m.haveHigh = false
	case b&0x08 != 0:
		m.control = b & 0x07
	case b&0x04 != 0:
		// entry mode: increment assumed
	case b&0x02 != 0:
		m.addr, m.toCG = 0, false
	case b == 0x01:
		for i := range m.ddram {
			m.ddram[i] = ' '
		}
		m.addr, m.toCG = 0, false
	}
}

// Line returns display row 1 or 2 (16 characters).
func (m *HD44780Model) Line(row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := 0x00
	if row == 2 {
		base = 0x40
	}
	return string(m.ddram[base : base+16])
}

// DisplayOn, CursorOn and BlinkOn report the display control bits.
func (m *HD44780Model) DisplayOn() bool { return m.ctrlBit(0x04) }
func (m *HD44780Model) CursorOn() bool  { return m.ctrlBit(0x02) }
func (m *HD44780Model) BlinkOn() bool   { return m.ctrlBit(0x01) }

func (m *HD44780Model) ctrlBit(bit byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.control&bit != 0
}

// FourBit reports whether the interface is in 4-bit mode.
func (m *HD44780Model) FourBit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.mode8
}

// Glyph returns custom character loc (0..7).
func (m *HD44780Model) Glyph(loc int) [8]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var g [8]byte
	copy(g[:], m.cgram[(loc&7)*8:])
	return g
}

// Commands returns the instruction bytes seen so far.
func (m *HD44780Model) Commands() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.commands...)
}

// ---------------------------- Ultrasonic echo ---------------------------------

// EchoModel answers every capture-timer start with an echo pulse whose
// falling edge lands at the configured tick count.
type EchoModel struct {
	mu    sync.Mutex
	pin   *FakePin
	timer *FakeCapture
	ticks uint32
}

func NewEchoModel(pin *FakePin, timer *FakeCapture) *EchoModel {
	m := &EchoModel{pin: pin, timer: timer}
	timer.OnStart(m.onStart)
	return m
}

// SetTicks sets the echo width; 0 disables the echo.
func (m *EchoModel) SetTicks(n uint32) {
	m.mu.Lock()
	m.ticks = n
	m.mu.Unlock()
}

func (m *EchoModel) onStart() {
	m.mu.Lock()
	n := m.ticks
	m.mu.Unlock()
	if n == 0 {
		return
	}
	m.pin.Set(false)
	m.pin.Set(true)
	m.timer.SetTicks(n)
	m.pin.Set(false)
}
