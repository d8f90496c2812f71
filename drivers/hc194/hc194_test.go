package hc194

import (
	"testing"

	"sensordash-go/services/hal/platform"
	"sensordash-go/x/timex"
)

type rig struct {
	s0, s1, clk, ser, qd *platform.FakePin
	model                *platform.HC194Model
	reg                  *Register
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		s0:  platform.NewFakePin(12),
		s1:  platform.NewFakePin(13),
		clk: platform.NewFakePin(14),
		ser: platform.NewFakePin(15),
		qd:  platform.NewFakePin(17),
	}
	r.model = platform.NewHC194Model(r.s0, r.s1, r.clk, r.ser, r.qd)
	r.reg = New(Pins{S0: r.s0, S1: r.s1, Clock: r.clk, Serial: r.ser, QD: r.qd}, timex.NewFake())
	if err := r.reg.Configure(); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestModeLines(t *testing.T) {
	r := newRig(t)
	cases := []struct {
		m      Mode
		s0, s1 bool
	}{
		{Hold, false, false},
		{ShiftRight, true, false},
		{ShiftLeft, false, true},
		{Load, true, true},
	}
	for _, c := range cases {
		r.reg.SetMode(c.m)
		if r.s0.Get() != c.s0 || r.s1.Get() != c.s1 || r.reg.Mode() != c.m {
			t.Errorf("%v: s0=%v s1=%v", c.m, r.s0.Get(), r.s1.Get())
		}
	}
}

func TestLEDBankWrite(t *testing.T) {
	r := newRig(t)
	bank := NewLEDBank(r.reg)
	bank.Write(0b1010)
	if got := r.model.Outputs(); got != 0b1010 {
		t.Fatalf("outputs %04b", got)
	}
	if r.reg.Mode() != Hold {
		t.Fatal("bank left outside hold")
	}
}

func TestLEDBankSetTouchesOneBit(t *testing.T) {
	r := newRig(t)
	bank := NewLEDBank(r.reg)
	bank.Write(0b0101)
	for n := 1; n <= LEDCount; n++ {
		before := r.model.Outputs()
		on := before>>(n-1)&1 == 0
		if !bank.Set(n, on) {
			t.Fatalf("Set(%d) rejected", n)
		}
		after := r.model.Outputs()
		if diff := before ^ after; diff != 1<<(n-1) {
			t.Fatalf("d%d: %04b -> %04b", n, before, after)
		}
	}
	if bank.Set(5, true) || bank.Set(0, true) {
		t.Fatal("out of range channel accepted")
	}
}

func TestHoldIgnoresClock(t *testing.T) {
	r := newRig(t)
	NewLEDBank(r.reg).Write(0b0011)
	r.reg.SetMode(Hold)
	r.reg.Clock()
	if r.model.Outputs() != 0b0011 {
		t.Fatalf("hold changed outputs to %04b", r.model.Outputs())
	}
}

func TestShiftLeftAndLoad(t *testing.T) {
	r := newRig(t)
	r.model.SetInputs(0b1001)
	r.reg.SetMode(Load)
	r.reg.Clock()
	if r.model.Outputs() != 0b1001 || !r.reg.QD() {
		t.Fatalf("load: %04b", r.model.Outputs())
	}
	r.reg.SetMode(ShiftLeft)
	r.reg.Clock()
	if r.model.Outputs() != 0b0100 {
		t.Fatalf("shift left: %04b", r.model.Outputs())
	}
}

func TestButtonReader(t *testing.T) {
	r := newRig(t)
	pb5, pb6 := platform.NewFakePin(18), platform.NewFakePin(19)
	btn := NewButtonReader(r.reg, pb5, pb6)
	if err := btn.Configure(); err != nil {
		t.Fatal(err)
	}
	pb5.Set(true)
	pb6.Set(true)

	for _, mask := range []uint8{0, 0b000001, 0b001000, 0b010110, 0b100000, 0b111111} {
		r.model.SetInputs(mask & 0x0F)
		pb5.Set(mask&0x10 == 0)
		pb6.Set(mask&0x20 == 0)
		if got := btn.Read(); got != mask {
			t.Errorf("mask %06b: read %06b", mask, got)
		}
	}
	if r.reg.Mode() != Hold {
		t.Fatal("reader left outside hold")
	}
}
