package halcore

import "sync/atomic"

// Mode names the driver that currently owns the shared serial interrupt
// vector.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeUART
	ModeBus
)

func (m Mode) String() string {
	switch m {
	case ModeUART:
		return "uart"
	case ModeBus:
		return "bus"
	default:
		return "none"
	}
}

// Status is a non-data event raised on the vector.
type Status uint8

const (
	StatusNack Status = iota + 1
)

// Binding is the set of handlers one owner installs on the vector.
// Nil handlers ignore their event.
type Binding struct {
	Mode   Mode
	RX     func(b byte)
	TX     func()
	Status func(s Status)
}

// Vector is the receive/transmit interrupt vector shared by the UART and the
// bus transport. Exactly one Binding is active; owners swap it explicitly
// with Select.
type Vector struct {
	cur atomic.Pointer[Binding]
}

// Select installs b and returns the previous binding (nil if none).
func (v *Vector) Select(b *Binding) *Binding { return v.cur.Swap(b) }

// Mode reports the owner of the active binding.
func (v *Vector) Mode() Mode {
	if b := v.cur.Load(); b != nil {
		return b.Mode
	}
	return ModeNone
}

// RX dispatches a received byte. Reports false when nothing handled it.
func (v *Vector) RX(data byte) bool {
	b := v.cur.Load()
	if b == nil || b.RX == nil {
		return false
	}
	b.RX(data)
	return true
}

// TX dispatches a transmit-empty event.
func (v *Vector) TX() bool {
	b := v.cur.Load()
	if b == nil || b.TX == nil {
		return false
	}
	b.TX()
	return true
}

// Raise dispatches a status event.
func (v *Vector) Raise(s Status) bool {
	b := v.cur.Load()
	if b == nil || b.Status == nil {
		return false
	}
	b.Status(s)
	return true
}
