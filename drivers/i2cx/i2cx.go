// Package i2cx is the interrupt-driven bus master transport used by the
// accelerometer and the joystick front end. Byte progress arrives on the
// shared serial vector; the calling context waits on a completion flag with
// a bounded timeout.
//
// Tx performs a write followed by a repeated-start read when both w and r are
// given, without releasing the bus.
package i2cx

import (
	"sync/atomic"
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/conv"
	"sensordash-go/x/timex"

	"tinygo.org/x/drivers"
)

// DefaultTimeout bounds each phase when Config.Timeout is zero.
const DefaultTimeout = 25 * time.Millisecond

type Config struct {
	// Timeout bounds the wait for STOP to clear and for each phase to finish.
	Timeout time.Duration
	// Poll is the completion poll interval. Default timex.DefaultPoll.
	Poll time.Duration
}

// Transport implements drivers.I2C on top of a BusController.
type Transport struct {
	vec   *halcore.Vector
	ctl   halcore.BusController
	clock timex.Clock
	cfg   Config
	bind  halcore.Binding

	// Transfer state shared with the handlers. Written by Tx before START,
	// then owned by the handlers until done is set.
	tx      []byte
	txIdx   int
	rx      []byte
	rxIdx   int
	hasRead bool

	done atomic.Bool
	nack atomic.Bool
}

var _ drivers.I2C = (*Transport)(nil)

func New(vec *halcore.Vector, ctl halcore.BusController, clock timex.Clock, cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	t := &Transport{vec: vec, ctl: ctl, clock: clock, cfg: cfg}
	t.bind = halcore.Binding{
		Mode:   halcore.ModeBus,
		RX:     t.onRX,
		TX:     t.onTX,
		Status: t.onStatus,
	}
	return t
}

// Acquire installs the transport's handlers on the vector.
func (t *Transport) Acquire() { t.vec.Select(&t.bind) }

// Owned reports whether the transport holds the vector.
func (t *Transport) Owned() bool { return t.vec.Mode() == halcore.ModeBus }

// Release frees a slave that may be holding the data line. The vector binding
// is left in place; the next owner selects its own.
func (t *Transport) Release() { t.ctl.Release() }

func (t *Transport) Tx(addr uint16, w, r []byte) error {
	if !t.Owned() {
		t.Acquire()
	}
	err := timex.Await(t.clock, t.cfg.Timeout, t.cfg.Poll, func() bool { return !t.ctl.StopPending() })
	if err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "i2c", Msg: "stop pending"}
	}

	if len(w) > 0 || len(r) == 0 {
		t.tx, t.txIdx = w, 0
		t.hasRead = len(r) > 0
		t.arm()
		t.ctl.StartWrite(addr)
		if err := t.wait(addr, "write"); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}

	t.rx, t.rxIdx = r, 0
	t.arm()
	t.ctl.StartRead(addr, len(r) == 1)
	return t.wait(addr, "read")
}

func (t *Transport) arm() {
	t.nack.Store(false)
	t.done.Store(false)
}

func (t *Transport) wait(addr uint16, phase string) error {
	err := timex.Await(t.clock, t.cfg.Timeout, t.cfg.Poll, t.done.Load)
	if err != nil {
		t.ctl.Stop()
		return &errcode.E{C: errcode.Timeout, Op: "i2c", Msg: phase + " " + addrHex(addr)}
	}
	if t.nack.Load() {
		return &errcode.E{C: errcode.BusTransferFailure, Op: "i2c", Msg: "nack " + addrHex(addr)}
	}
	return nil
}

func addrHex(addr uint16) string {
	return string(conv.AppendHex([]byte("0x"), uint64(addr), 2))
}

// ---- interrupt context ----

func (t *Transport) onTX() {
	if t.done.Load() {
		return
	}
	if t.txIdx < len(t.tx) {
		t.ctl.Put(t.tx[t.txIdx])
		t.txIdx++
		return
	}
	if !t.hasRead {
		t.ctl.Stop()
	}
	t.done.Store(true)
}

func (t *Transport) onRX(b byte) {
	if t.done.Load() {
		return
	}
	if t.rxIdx < len(t.rx) {
		t.rx[t.rxIdx] = b
		t.rxIdx++
	}
	// STOP must be queued while the final byte is being received.
	if len(t.rx) > 1 && t.rxIdx == len(t.rx)-1 {
		t.ctl.Stop()
	}
	if t.rxIdx >= len(t.rx) {
		t.done.Store(true)
	}
}

func (t *Transport) onStatus(s halcore.Status) {
	if s != halcore.StatusNack {
		return
	}
	t.ctl.Stop()
	t.nack.Store(true)
	t.done.Store(true)
}
