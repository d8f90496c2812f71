// Package ultrasonic ranges with a trigger burst and a capture timer. The
// echo falling edge interrupt latches the timer count once per cycle; timer
// teardown happens at the start of the next Measure.
package ultrasonic

import (
	"sync/atomic"
	"time"

	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/timex"
)

type Config struct {
	Pulses    int
	PulseHigh time.Duration
	PulseLow  time.Duration
	// Arm is the quiet time before the burst.
	Arm time.Duration
	// Settle is the wait after the timer starts, covering the echo.
	Settle time.Duration
	// Divisor converts ticks to centimetres.
	Divisor uint32
	// Floor: distances at or below it are out of range.
	Floor uint32
}

type Sensor struct {
	trig  halcore.GPIOPin
	echo  halcore.IRQPin
	timer halcore.CaptureTimer
	clock timex.Clock
	cfg   Config

	// capture state, written by onEcho
	armed   atomic.Bool
	valid   atomic.Bool
	latched atomic.Uint32
	edges   atomic.Uint32
}

func New(trig halcore.GPIOPin, echo halcore.IRQPin, timer halcore.CaptureTimer, clock timex.Clock, cfg Config) *Sensor {
	if cfg.Pulses <= 0 {
		cfg.Pulses = 8
	}
	if cfg.Divisor == 0 {
		cfg.Divisor = 52
	}
	return &Sensor{trig: trig, echo: echo, timer: timer, clock: clock, cfg: cfg}
}

func (s *Sensor) Configure() error {
	if err := s.trig.ConfigureOutput(false); err != nil {
		return err
	}
	return s.echo.ConfigureInput(halcore.PullUp)
}

// Measure runs one ranging cycle. The result is read with Latched or Reading
// after it returns.
func (s *Sensor) Measure() error {
	s.teardown()
	s.valid.Store(false)

	s.clock.Sleep(s.cfg.Arm)
	for i := 0; i < s.cfg.Pulses; i++ {
		s.trig.Set(true)
		s.clock.Sleep(s.cfg.PulseHigh)
		s.trig.Set(false)
		s.clock.Sleep(s.cfg.PulseLow)
	}

	s.armed.Store(true)
	if err := s.echo.SetIRQ(halcore.EdgeFalling, s.onEcho); err != nil {
		s.armed.Store(false)
		return err
	}
	s.timer.Reset()
	s.timer.Start()
	s.clock.Sleep(s.cfg.Settle)
	return nil
}

// Stop tears down the capture path.
func (s *Sensor) Stop() {
	s.teardown()
	s.armed.Store(false)
}

func (s *Sensor) teardown() {
	s.timer.Stop()
	s.timer.Reset()
	_ = s.echo.ClearIRQ()
}

// onEcho runs in interrupt context. Only the first edge after arming counts.
func (s *Sensor) onEcho() {
	s.edges.Add(1)
	if !s.armed.CompareAndSwap(true, false) {
		return
	}
	s.latched.Store(s.timer.Ticks())
	s.valid.Store(true)
}

// Latched returns the captured tick count and whether an edge was seen in
// the last cycle.
func (s *Sensor) Latched() (uint32, bool) {
	return s.latched.Load(), s.valid.Load()
}

// Edges counts capture interrupts, including ignored ones.
func (s *Sensor) Edges() uint32 { return s.edges.Load() }

// Reading converts the last capture. A missing echo is out of range.
func (s *Sensor) Reading() (cm, ticks uint32, inRange bool) {
	ticks, ok := s.Latched()
	if !ok {
		return 0, 0, false
	}
	cm, inRange = Distance(ticks, s.cfg.Divisor, s.cfg.Floor)
	return cm, ticks, inRange
}

// Distance converts echo ticks to centimetres.
func Distance(ticks, divisor, floor uint32) (cm uint32, inRange bool) {
	if divisor == 0 {
		return 0, false
	}
	cm = ticks / divisor
	return cm, cm > floor
}
