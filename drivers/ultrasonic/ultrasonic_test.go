package ultrasonic

import (
	"testing"
	"time"

	"sensordash-go/services/hal/platform"
	"sensordash-go/x/timex"
)

func newRig(t *testing.T) (*Sensor, *platform.FakePin, *platform.FakePin, *platform.FakeCapture, *platform.EchoModel) {
	t.Helper()
	trig, echo := platform.NewFakePin(2), platform.NewFakePin(3)
	timer := &platform.FakeCapture{}
	model := platform.NewEchoModel(echo, timer)
	s := New(trig, echo, timer, timex.NewFake(), Config{
		Pulses: 8, PulseHigh: 7 * time.Microsecond, PulseLow: time.Microsecond,
		Arm: time.Millisecond, Settle: 10 * time.Millisecond, Divisor: 52, Floor: 1,
	})
	if err := s.Configure(); err != nil {
		t.Fatal(err)
	}
	return s, trig, echo, timer, model
}

func TestMeasureLatchesEcho(t *testing.T) {
	s, trig, _, timer, model := newRig(t)
	model.SetTicks(52 * 30)
	if err := s.Measure(); err != nil {
		t.Fatal(err)
	}
	if got := trig.Sets(); got != 16 {
		t.Fatalf("trigger toggles %d, want 16", got)
	}
	if timer.Starts() != 1 {
		t.Fatalf("timer starts %d", timer.Starts())
	}
	cm, ticks, ok := s.Reading()
	if !ok || cm != 30 || ticks != 1560 {
		t.Fatalf("reading %d cm, %d ticks, ok=%v", cm, ticks, ok)
	}
}

func TestNoEchoIsOutOfRange(t *testing.T) {
	s, _, _, _, _ := newRig(t)
	if err := s.Measure(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Latched(); ok {
		t.Fatal("latched without echo")
	}
	if _, _, ok := s.Reading(); ok {
		t.Fatal("missing echo reported in range")
	}
}

func TestOnlyFirstEdgeLatches(t *testing.T) {
	s, _, echo, timer, model := newRig(t)
	model.SetTicks(520)
	if err := s.Measure(); err != nil {
		t.Fatal(err)
	}
	timer.SetTicks(9999)
	echo.Set(true)
	echo.Set(false)
	if ticks, _ := s.Latched(); ticks != 520 {
		t.Fatalf("second edge overwrote latch: %d", ticks)
	}
	if s.Edges() != 2 {
		t.Fatalf("edges %d", s.Edges())
	}
}

func TestNextCycleTearsDown(t *testing.T) {
	s, _, echo, timer, model := newRig(t)
	model.SetTicks(520)
	_ = s.Measure()
	if !timer.Running() || !echo.Armed() {
		t.Fatal("capture path should stay up until the next cycle")
	}
	model.SetTicks(0)
	_ = s.Measure()
	if _, ok := s.Latched(); ok {
		t.Fatal("stale latch survived a new cycle")
	}
	s.Stop()
	if timer.Running() || echo.Armed() {
		t.Fatal("Stop left capture running")
	}
}

func TestDistance(t *testing.T) {
	cases := []struct {
		ticks, cm uint32
		in        bool
	}{
		{0, 0, false},
		{52, 1, false},
		{103, 1, false},
		{104, 2, true},
		{5200, 100, true},
	}
	for _, c := range cases {
		cm, in := Distance(c.ticks, 52, 1)
		if cm != c.cm || in != c.in {
			t.Errorf("Distance(%d) = %d,%v want %d,%v", c.ticks, cm, in, c.cm, c.in)
		}
	}
	if _, in := Distance(100, 0, 0); in {
		t.Fatal("zero divisor must be out of range")
	}
}
