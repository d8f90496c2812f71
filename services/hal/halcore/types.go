// services/hal/halcore/types.go
package halcore

import "time"

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context and must not block.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

func EdgeToString(e Edge) string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// ---- Analog / timers ----

// ADC is a single-conversion analog front end. Start begins a conversion on
// ch; Result is valid once Busy reports false.
type ADC interface {
	Start(ch uint8) error
	Busy() bool
	Result() uint16
}

// CaptureTimer is a microsecond counter gated by Start/Stop.
type CaptureTimer interface {
	Reset()
	Start()
	Stop()
	Ticks() uint32
}

// Ticker calls isr from interrupt context every period until stopped.
type Ticker interface {
	Start(period time.Duration, isr func())
	Stop()
}

// ---- Serial peripheral ----

// UARTTx is the polled transmit half of the serial peripheral.
type UARTTx interface {
	TxReady() bool
	WriteByte(b byte) error
}

// BusController is the serial peripheral in bus-master mode. Progress is
// reported through the Vector: TX when the transmit register is empty, RX per
// received byte, Status on a missing acknowledge.
type BusController interface {
	StartWrite(addr uint16)
	// StartRead begins a read; stopAfterFirst queues STOP with START for
	// single-byte reads.
	StartRead(addr uint16, stopAfterFirst bool)
	Put(b byte)
	Stop()
	StopPending() bool
	// Release clocks SCL until a slave holding SDA lets go.
	Release()
}
