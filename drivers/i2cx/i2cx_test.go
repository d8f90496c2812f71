package i2cx

import (
	"bytes"
	"errors"
	"testing"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/services/hal/platform"
	"sensordash-go/x/timex"
)

// regSlave is a minimal register file with an auto-incrementing pointer.
type regSlave struct {
	regs   [16]byte
	ptr    byte
	writes [][]byte
}

func (s *regSlave) Write(p []byte) {
	s.writes = append(s.writes, append([]byte(nil), p...))
	if len(p) == 0 {
		return
	}
	s.ptr = p[0] & 0x0F
	for _, b := range p[1:] {
		s.regs[s.ptr] = b
		s.ptr = (s.ptr + 1) & 0x0F
	}
}

func (s *regSlave) NextByte() byte {
	v := s.regs[s.ptr]
	s.ptr = (s.ptr + 1) & 0x0F
	return v
}

func newRig(t *testing.T) (*Transport, *platform.FakeUSCI, *regSlave, *timex.Fake) {
	t.Helper()
	vec := &halcore.Vector{}
	usci := platform.NewFakeUSCI(vec)
	s := &regSlave{}
	usci.Attach(0x20, s)
	clk := timex.NewFake()
	return New(vec, usci, clk, Config{}), usci, s, clk
}

func TestWriteThenRepeatedStartRead(t *testing.T) {
	tr, usci, s, _ := newRig(t)
	s.regs[3], s.regs[4], s.regs[5] = 0xAA, 0xBB, 0xCC

	buf := make([]byte, 3)
	if err := tr.Tx(0x20, []byte{3}, buf); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("read %x", buf)
	}
	log := usci.Transfers()
	if len(log) != 2 || log[0].Read || !log[1].Read {
		t.Fatalf("phases %+v", log)
	}
	if !bytes.Equal(log[0].Bytes, []byte{3}) {
		t.Fatalf("write phase %x", log[0].Bytes)
	}
	if !tr.Owned() {
		t.Fatal("transport should own the vector")
	}
}

func TestWriteOnly(t *testing.T) {
	tr, _, s, _ := newRig(t)
	if err := tr.Tx(0x20, []byte{1, 0x11, 0x22}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if s.regs[1] != 0x11 || s.regs[2] != 0x22 {
		t.Fatalf("regs %x", s.regs[:4])
	}
}

func TestSingleByteRead(t *testing.T) {
	tr, _, s, _ := newRig(t)
	s.regs[7] = 0x5A
	var b [1]byte
	if err := tr.Tx(0x20, []byte{7}, b[:]); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if b[0] != 0x5A {
		t.Fatalf("got %x", b[0])
	}
}

func TestNackIsBusTransferFailure(t *testing.T) {
	tr, _, _, _ := newRig(t)
	err := tr.Tx(0x33, []byte{0}, make([]byte, 2))
	if !errors.Is(err, errcode.BusTransferFailure) {
		t.Fatalf("want bus_transfer_failure, got %v", err)
	}
	if err.Error() != "i2c: bus_transfer_failure: nack 0x33" {
		t.Fatalf("message %q", err.Error())
	}
}

func TestStalledBusTimesOut(t *testing.T) {
	tr, usci, _, clk := newRig(t)
	usci.StallBus = true
	before := clk.Slept()
	err := tr.Tx(0x20, []byte{0}, nil)
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
	if clk.Slept()-before < DefaultTimeout {
		t.Fatalf("returned after %v", clk.Slept()-before)
	}
}

func TestStuckStopTimesOut(t *testing.T) {
	tr, usci, _, _ := newRig(t)
	usci.StuckStop = true
	if err := tr.Tx(0x20, []byte{0}, nil); errcode.Of(err) != errcode.Timeout {
		t.Fatalf("want timeout, got %v", err)
	}
	if len(usci.Transfers()) != 0 {
		t.Fatal("no START expected while STOP is pending")
	}
}

func TestTakesVectorFromUART(t *testing.T) {
	tr, usci, _, _ := newRig(t)
	var got []byte
	uart := &halcore.Binding{Mode: halcore.ModeUART, RX: func(b byte) { got = append(got, b) }}
	tr.vec.Select(uart)

	usci.Inject([]byte("a"))
	if err := tr.Tx(0x20, []byte{0}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	usci.Inject([]byte("b"))
	if string(got) != "a" || usci.Lost() != 1 {
		t.Fatalf("uart got %q lost %d", got, usci.Lost())
	}

	tr.Release()
	if usci.Releases() != 1 {
		t.Fatal("Release not forwarded")
	}
}
