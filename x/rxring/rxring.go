// Package rxring is the fixed-size receive ring shared between the serial
// receive interrupt (sole producer) and the main loop (sole consumer).
//
// When full, Push overwrites the oldest byte and raises a sticky overflow
// flag. Only TakeError clears the flag; the producer never does.
package rxring

import "sync/atomic"

// Capacity is the number of bytes the ring holds. Power of two.
const Capacity = 32

const mask = Capacity - 1

// Ring is a single-producer, single-consumer byte ring.
// The zero value is an empty ring ready for use.
type Ring struct {
	buf [Capacity]byte
	rd  atomic.Uint32 // consumer index (monotonic)
	wr  atomic.Uint32 // producer index (monotonic)

	overflow atomic.Bool
	episodes atomic.Uint32
}

// Push appends b. Interrupt context only.
func (r *Ring) Push(b byte) {
	for {
		rd := r.rd.Load()
		wr := r.wr.Load()
		if wr-rd >= Capacity {
			// Drop the oldest byte; retry if the consumer moved first.
			if !r.rd.CompareAndSwap(rd, rd+1) {
				continue
			}
			r.buf[wr&mask] = b
			r.wr.Store(wr + 1)
			if r.overflow.CompareAndSwap(false, true) {
				r.episodes.Add(1)
			}
			return
		}
		r.buf[wr&mask] = b
		r.wr.Store(wr + 1) // release
		return
	}
}

// Available reports whether at least one byte can be popped.
func (r *Ring) Available() bool { return r.rd.Load() != r.wr.Load() }

// Len returns the number of unread bytes.
func (r *Ring) Len() int { return int(r.wr.Load() - r.rd.Load()) }

// Peek returns the oldest unread byte without consuming it.
func (r *Ring) Peek() (byte, bool) {
	for {
		rd := r.rd.Load()
		if rd == r.wr.Load() {
			return 0, false
		}
		b := r.buf[rd&mask]
		if r.rd.Load() == rd {
			return b, true
		}
	}
}

// Pop consumes and returns the oldest unread byte.
func (r *Ring) Pop() (byte, bool) {
	for {
		rd := r.rd.Load()
		if rd == r.wr.Load() { // acquire
			return 0, false
		}
		b := r.buf[rd&mask]
		if r.rd.CompareAndSwap(rd, rd+1) {
			return b, true
		}
		// Producer overwrote this slot; reload.
	}
}

// TakeError reports whether an overflow happened since the last call and
// clears the flag.
func (r *Ring) TakeError() bool { return r.overflow.Swap(false) }

// Overflows counts overflow episodes (false to true flag transitions).
func (r *Ring) Overflows() uint32 { return r.episodes.Load() }

// Flush discards unread bytes. The overflow flag is left alone.
func (r *Ring) Flush() {
	for {
		rd := r.rd.Load()
		wr := r.wr.Load()
		if r.rd.CompareAndSwap(rd, wr) {
			return
		}
	}
}

// Positions returns the read and write positions within [0, Capacity).
func (r *Ring) Positions() (rd, wr uint32) {
	return r.rd.Load() & mask, r.wr.Load() & mask
}
