package dashboard

import (
	"sync/atomic"

	"sensordash-go/types"
)

// Phase is the scheduler state.
type Phase uint8

const (
	AwaitingEntry Phase = iota
	DashboardActive
	Sampling
	DisplayReady
	AwaitingCommand
	Exiting
)

func (p Phase) String() string {
	switch p {
	case AwaitingEntry:
		return "awaiting-entry"
	case DashboardActive:
		return "dashboard-active"
	case Sampling:
		return "sampling"
	case DisplayReady:
		return "display-ready"
	case AwaitingCommand:
		return "awaiting-command"
	case Exiting:
		return "exiting"
	}
	return "unknown"
}

// TickCounter is the refresh tick count shared with the timer interrupt.
// It saturates at the threshold so a late main loop still sees it due.
type TickCounter struct {
	n         atomic.Uint32
	threshold uint32
}

func NewTickCounter(threshold uint32) *TickCounter {
	if threshold == 0 {
		threshold = 1
	}
	return &TickCounter{threshold: threshold}
}

// Inc runs in interrupt context.
func (t *TickCounter) Inc() {
	for {
		n := t.n.Load()
		if n >= t.threshold || t.n.CompareAndSwap(n, n+1) {
			return
		}
	}
}

func (t *TickCounter) Due() bool     { return t.n.Load() >= t.threshold }
func (t *TickCounter) Count() uint32 { return t.n.Load() }
func (t *TickCounter) Reset()        { t.n.Store(0) }

// Force makes the counter due immediately.
func (t *TickCounter) Force() { t.n.Store(t.threshold) }

// Session is the dashboard's mutable context. Only the scheduler touches it;
// interrupt handlers own the tick counter, the receive ring and the capture
// latch, which live in their own types.
type Session struct {
	Phase     Phase
	Snapshot  types.Snapshot
	Actuators types.ActuatorState

	// Pending is a finalized input line awaiting dispatch.
	Pending    string
	HasPending bool

	// LastFault is the most recent internal error; Faults counts them.
	LastFault error
	Faults    uint32

	Entries  uint32 // dashboard openings
	Commands uint32 // dispatched command lines
	Rejected uint32 // lines rejected at entry or as unrecognized
}
