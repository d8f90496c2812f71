package command

import (
	"io"

	"sensordash-go/errcode"
)

// Control bytes.
const (
	keyBackspace = 0x08
	keyDelete    = 0x7F
	keyCR        = '\r'
	keyLF        = '\n'
)

// Source is the receive side of the serial link.
type Source interface {
	Pop() (byte, bool)
}

// Accumulator builds one input line from received bytes. A CR or LF
// finalizes the line; an LF right after a CR is swallowed. While a finalized
// line waits to be taken, no further bytes are consumed.
type Accumulator struct {
	buf    []byte
	echo   io.ByteWriter
	line   string
	ready  bool
	lastCR bool
}

// NewAccumulator returns an accumulator holding at most capacity bytes per
// line. Accepted bytes are echoed to echo when it is non-nil.
func NewAccumulator(capacity int, echo io.ByteWriter) *Accumulator {
	if capacity <= 0 {
		capacity = 64
	}
	return &Accumulator{buf: make([]byte, 0, capacity), echo: echo}
}

// Feed consumes one byte. It returns errcode.LineOverflow when the byte did
// not fit and errcode.Busy while a finalized line is pending. An echo failure
// is returned after the byte has been applied.
func (a *Accumulator) Feed(b byte) error {
	if a.ready {
		return errcode.Busy
	}
	if b == keyLF && a.lastCR {
		a.lastCR = false
		return nil
	}
	a.lastCR = false

	switch b {
	case keyCR, keyLF:
		a.line = string(a.buf)
		a.buf = a.buf[:0]
		a.ready = true
		a.lastCR = b == keyCR
	case keyBackspace, keyDelete:
		if len(a.buf) == 0 {
			return nil
		}
		a.buf = a.buf[:len(a.buf)-1]
		return a.put('\b', ' ', '\b')
	default:
		if len(a.buf) == cap(a.buf) {
			return errcode.LineOverflow
		}
		a.buf = append(a.buf, b)
		return a.put(b)
	}
	return nil
}

func (a *Accumulator) put(bs ...byte) error {
	if a.echo == nil {
		return nil
	}
	for _, b := range bs {
		if err := a.echo.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Poll feeds bytes from src until it is empty or a line is ready. It reports
// LineOverflow if any byte was dropped.
func (a *Accumulator) Poll(src Source) error {
	var err error
	for !a.ready {
		b, ok := src.Pop()
		if !ok {
			break
		}
		if e := a.Feed(b); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Ready reports whether a finalized line is waiting.
func (a *Accumulator) Ready() bool { return a.ready }

// Take returns the finalized line and re-opens intake.
func (a *Accumulator) Take() (string, bool) {
	if !a.ready {
		return "", false
	}
	line := a.line
	a.line, a.ready = "", false
	return line, true
}

// Len is the length of the partial line.
func (a *Accumulator) Len() int { return len(a.buf) }

// Cap is the line capacity.
func (a *Accumulator) Cap() int { return cap(a.buf) }

// Reset drops the partial and any pending line.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
	a.line, a.ready, a.lastCR = "", false, false
}
