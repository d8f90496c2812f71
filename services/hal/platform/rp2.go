//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"
	"sync"
	"sync/atomic"
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/config"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/timex"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// -----------------------------------------------------------------------------
// GPIO
// -----------------------------------------------------------------------------

type rp2Pin struct {
	p machine.Pin
	n int
}

func newPin(n int) *rp2Pin { return &rp2Pin{p: machine.Pin(n), n: n} }

func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) ConfigureInput(pull halcore.Pull) error {
	var mode machine.PinMode
	switch pull {
	case halcore.PullUp:
		mode = machine.PinInputPullup
	case halcore.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(b bool) { r.p.Set(b) }
func (r *rp2Pin) Get() bool  { return r.p.Get() }
func (r *rp2Pin) Toggle()    { r.p.Set(!r.p.Get()) }

func (r *rp2Pin) SetIRQ(edge halcore.Edge, handler func()) error {
	var ch machine.PinChange
	switch edge {
	case halcore.EdgeRising:
		ch = machine.PinRising
	case halcore.EdgeFalling:
		ch = machine.PinFalling
	case halcore.EdgeBoth:
		ch = machine.PinToggle
	default:
		return errcode.InvalidParams
	}
	return r.p.SetInterrupt(ch, func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error { return r.p.SetInterrupt(0, nil) }

// -----------------------------------------------------------------------------
// ADC: channels 0..2 on GP26..GP28, reported at 10 bits
// -----------------------------------------------------------------------------

type rp2ADC struct {
	ch     [3]machine.ADC
	result atomic.Uint32
}

func newADC() *rp2ADC {
	machine.InitADC()
	a := &rp2ADC{ch: [3]machine.ADC{{Pin: machine.ADC0}, {Pin: machine.ADC1}, {Pin: machine.ADC2}}}
	for i := range a.ch {
		a.ch[i].Configure(machine.ADCConfig{})
	}
	return a
}

// Start converts synchronously; the SDK read blocks for one conversion.
func (a *rp2ADC) Start(ch uint8) error {
	if int(ch) >= len(a.ch) {
		return errcode.InvalidParams
	}
	a.result.Store(uint32(a.ch[ch].Get() >> 6))
	return nil
}

func (a *rp2ADC) Busy() bool     { return false }
func (a *rp2ADC) Result() uint16 { return uint16(a.result.Load()) }

// -----------------------------------------------------------------------------
// Capture timer: microseconds since Start
// -----------------------------------------------------------------------------

type rp2Capture struct {
	t0      atomic.Int64 // UnixMicro at Start, 0 when stopped
	stopped atomic.Uint32
}

func (c *rp2Capture) Reset() {
	c.stopped.Store(0)
	if c.t0.Load() != 0 {
		c.t0.Store(time.Now().UnixMicro())
	}
}

func (c *rp2Capture) Start() { c.t0.Store(time.Now().UnixMicro()) }

func (c *rp2Capture) Stop() {
	if t0 := c.t0.Swap(0); t0 != 0 {
		c.stopped.Add(uint32(time.Now().UnixMicro() - t0))
	}
}

func (c *rp2Capture) Ticks() uint32 {
	n := c.stopped.Load()
	if t0 := c.t0.Load(); t0 != 0 {
		n += uint32(time.Now().UnixMicro() - t0)
	}
	return n
}

// -----------------------------------------------------------------------------
// I2C owner
// -----------------------------------------------------------------------------

type i2cReq struct {
	addr uint16
	w, r []byte
	done chan error // buffered(1); worker replies best-effort
}

// i2cOwner serializes transfers on one controller in a worker goroutine.
type i2cOwner struct {
	hw       *machine.I2C
	sda, scl machine.Pin
	hz       uint32
	reqs     chan i2cReq
}

func newI2COwner(hw *machine.I2C, sda, scl machine.Pin, hz uint32) *i2cOwner {
	o := &i2cOwner{hw: hw, sda: sda, scl: scl, hz: hz, reqs: make(chan i2cReq, 4)}
	o.configure()
	go o.loop()
	return o
}

func (o *i2cOwner) configure() {
	o.sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	o.scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	_ = o.hw.Configure(machine.I2CConfig{SCL: o.scl, SDA: o.sda, Frequency: o.hz})
}

func (o *i2cOwner) loop() {
	for req := range o.reqs {
		var err error
		if req.w == nil && req.r == nil {
			o.release()
		} else if e := o.hw.Tx(req.addr, req.w, req.r); e != nil {
			err = &errcode.E{C: errcode.BusTransferFailure, Op: "i2c", Err: e}
		}
		select {
		case req.done <- err:
		default:
		}
	}
}

// release clocks SCL nine times with SDA released, then re-arms the
// controller. Runs on the worker so it never overlaps a transfer.
func (o *i2cOwner) release() {
	o.sda.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	o.scl.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 9; i++ {
		o.scl.Low()
		time.Sleep(5 * time.Microsecond)
		o.scl.High()
		time.Sleep(5 * time.Microsecond)
	}
	o.configure()
}

// driversI2C adapts the owner to tinygo.org/x/drivers.I2C.
type driversI2C struct {
	o       *i2cOwner
	timeout time.Duration
}

var _ drivers.I2C = (*driversI2C)(nil)

func (d *driversI2C) Tx(addr uint16, w, r []byte) error {
	return d.post(i2cReq{addr: addr, w: w, r: r, done: make(chan error, 1)})
}

// Release frees a slave holding SDA low.
func (d *driversI2C) Release() {
	_ = d.post(i2cReq{done: make(chan error, 1)})
}

func (d *driversI2C) post(req i2cReq) error {
	t := time.NewTimer(d.timeout)
	defer t.Stop()
	select {
	case d.o.reqs <- req:
	case <-t.C:
		return errcode.Busy
	}
	select {
	case err := <-req.done:
		return err
	case <-t.C:
		return errcode.Timeout
	}
}

// -----------------------------------------------------------------------------
// UART
// -----------------------------------------------------------------------------

// rp2UART feeds received bytes into the vector and transmits through the
// uartx buffer.
type rp2UART struct {
	u   *uartx.UART
	vec *halcore.Vector
}

func (p *rp2UART) TxReady() bool          { return p.u.TxFree() > 0 }
func (p *rp2UART) WriteByte(b byte) error { return p.u.WriteByte(b) }

// pump delivers received bytes to whichever owner holds the vector. Bytes
// arriving with no UART owner are dropped like on shared pins.
func (p *rp2UART) pump(ctx context.Context) {
	var buf [16]byte
	for {
		n, err := p.u.RecvSomeContext(ctx, buf[:])
		for _, b := range buf[:n] {
			if p.vec.Mode() == halcore.ModeUART {
				p.vec.RX(b)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}
}

// -----------------------------------------------------------------------------
// Board
// -----------------------------------------------------------------------------

var (
	boardOnce sync.Once
	board     Resources
)

// NewBoard claims the rp2040 peripherals named by cfg.Pins. The receive pump
// runs until ctx ends. Only the first call configures hardware.
func NewBoard(ctx context.Context, cfg config.Config) Resources {
	boardOnce.Do(func() {
		p := cfg.Pins
		vec := &halcore.Vector{}

		u := uartx.UART0
		_ = u.Configure(uartx.UARTConfig{
			BaudRate: cfg.Serial.Baud,
			TX:       machine.Pin(p.UARTTX),
			RX:       machine.Pin(p.UARTRX),
		})
		uart := &rp2UART{u: u, vec: vec}
		go uart.pump(ctx)

		i2c := &driversI2C{
			o:       newI2COwner(machine.I2C0, machine.Pin(p.SDA), machine.Pin(p.SCL), cfg.Bus.Hz),
			timeout: cfg.Bus.Timeout,
		}

		var data [4]halcore.GPIOPin
		for i, n := range p.LCDData {
			data[i] = newPin(n)
		}
		board = Resources{
			Clock:   timex.System{},
			Vector:  vec,
			UART:    uart,
			I2C:     i2c,
			FreeBus: i2c.Release,
			ADC:     newADC(),
			Capture: &rp2Capture{},
			Refresh: &GoTicker{},
			Pins: Pins{
				Trigger:     newPin(p.Trigger),
				Echo:        newPin(p.Echo),
				LCDRS:       newPin(p.LCDRS),
				LCDE:        newPin(p.LCDE),
				LCDData:     data,
				SRMode0:     newPin(p.SRMode0),
				SRMode1:     newPin(p.SRMode1),
				LEDClock:    newPin(p.LEDClock),
				LEDSerial:   newPin(p.LEDSerial),
				ButtonClock: newPin(p.ButtonClock),
				ButtonQD:    newPin(p.ButtonQD),
				PB5:         newPin(p.PB5),
				PB6:         newPin(p.PB6),
				Green:       newPin(p.Green),
				Red:         newPin(p.Red),
				Relay:       newPin(p.Relay),
			},
		}
	})
	return board
}
