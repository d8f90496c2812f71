// Package serial is the terminal link: an interrupt-fed receive ring and a
// polled transmitter with a bounded wait for the transmit register.
package serial

import (
	"sync/atomic"
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/conv"
	"sensordash-go/x/rxring"
	"sensordash-go/x/timex"
)

type Config struct {
	// TxTimeout bounds the wait for the transmitter, per byte.
	TxTimeout time.Duration
}

// Link owns the UART side of the shared serial vector while enabled.
type Link struct {
	vec   *halcore.Vector
	tx    halcore.UARTTx
	clock timex.Clock
	cfg   Config
	bind  halcore.Binding

	ring    rxring.Ring
	rxOn    atomic.Bool
	dropped atomic.Uint32
}

func New(vec *halcore.Vector, tx halcore.UARTTx, clock timex.Clock, cfg Config) *Link {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 50 * time.Millisecond
	}
	l := &Link{vec: vec, tx: tx, clock: clock, cfg: cfg}
	l.bind = halcore.Binding{Mode: halcore.ModeUART, RX: l.onRX}
	return l
}

// Enable takes the vector for the UART and turns receive on.
func (l *Link) Enable() {
	l.vec.Select(&l.bind)
	l.rxOn.Store(true)
}

// DisableRX stops accepting received bytes. The vector binding is kept until
// another owner selects its own.
func (l *Link) DisableRX() { l.rxOn.Store(false) }

// Receiving reports whether the link owns the vector with receive on.
func (l *Link) Receiving() bool {
	return l.rxOn.Load() && l.vec.Mode() == halcore.ModeUART
}

// onRX runs in interrupt context.
func (l *Link) onRX(b byte) {
	if !l.rxOn.Load() {
		l.dropped.Add(1)
		return
	}
	l.ring.Push(b)
}

// ---- receive side (main loop) ----

func (l *Link) Available() bool    { return l.ring.Available() }
func (l *Link) Peek() (byte, bool) { return l.ring.Peek() }
func (l *Link) Pop() (byte, bool)  { return l.ring.Pop() }
func (l *Link) Buffered() int      { return l.ring.Len() }
func (l *Link) Flush()             { l.ring.Flush() }
func (l *Link) Overflows() uint32  { return l.ring.Overflows() }
func (l *Link) Dropped() uint32    { return l.dropped.Load() }
func (l *Link) Ring() *rxring.Ring { return &l.ring }

// Error reports and clears a receive overflow as errcode.BufferOverflow.
func (l *Link) Error() error {
	if l.ring.TakeError() {
		return errcode.BufferOverflow
	}
	return nil
}

// ---- transmit side ----

// WriteByte waits for the transmitter, then sends b.
func (l *Link) WriteByte(b byte) error {
	if err := timex.Await(l.clock, l.cfg.TxTimeout, 0, l.tx.TxReady); err != nil {
		return &errcode.E{C: errcode.Timeout, Op: "serial", Msg: "tx not ready"}
	}
	return l.tx.WriteByte(b)
}

// Write implements io.Writer. It stops at the first failed byte.
func (l *Link) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := l.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

func (l *Link) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if err := l.WriteByte(s[i]); err != nil {
			return i, err
		}
	}
	return len(s), nil
}

// Println writes s followed by CR LF.
func (l *Link) Println(s string) error {
	if _, err := l.WriteString(s); err != nil {
		return err
	}
	_, err := l.WriteString("\r\n")
	return err
}

// PrintInt writes n in decimal.
func (l *Link) PrintInt(n int64) error {
	var buf [20]byte
	_, err := l.Write(conv.AppendInt(buf[:0], n))
	return err
}
