// services/hal/platform/sim_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/config"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/timex"
)

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements GPIOPin and IRQPin for host-side tests.
// IRQ handlers run synchronously inside Set.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	modeOut bool
	pull    halcore.Pull
	irqEdge halcore.Edge
	irqFunc func()
	sets    int
}

func NewFakePin(n int) *FakePin { return &FakePin{number: n} }

func (p *FakePin) ConfigureInput(pull halcore.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	p.sets++
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Toggle() { p.Set(!p.Get()) }

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) SetIRQ(edge halcore.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = halcore.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

// Armed reports whether an IRQ handler is installed.
func (p *FakePin) Armed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.irqFunc != nil
}

// Pull returns the last configured input pull.
func (p *FakePin) Pull() halcore.Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

// IsOutput reports whether the pin was last configured as an output.
func (p *FakePin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// Sets counts Set calls.
func (p *FakePin) Sets() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sets
}

func edgeFrom(old, new bool) halcore.Edge {
	switch {
	case !old && new:
		return halcore.EdgeRising
	case old && !new:
		return halcore.EdgeFalling
	default:
		return halcore.EdgeNone
	}
}

func irqWanted(cfg, seen halcore.Edge) bool {
	switch cfg {
	case halcore.EdgeBoth:
		return seen == halcore.EdgeRising || seen == halcore.EdgeFalling
	default:
		return cfg != halcore.EdgeNone && cfg == seen
	}
}

// ----------------------------- Serial peripheral ------------------------------

// Slave is a bus device model. Write receives the bytes of one write phase;
// NextByte supplies the next byte of a read phase.
type Slave interface {
	Write(p []byte)
	NextByte() byte
}

const maxBurst = 256

// FakeUSCI models the shared serial peripheral: a UART transmitter and
// receiver, and a bus master whose progress is raised on the Vector.
type FakeUSCI struct {
	vec    *halcore.Vector
	slaves map[uint16]Slave

	// mu serializes bus phases against Inject, which may run on another
	// goroutine.
	mu sync.Mutex

	// bus state
	slave   Slave
	writing bool
	pend    []byte
	txArmed bool
	stopReq bool

	// StallBus suppresses all bus interrupts after START.
	StallBus bool
	// StuckStop keeps StopPending true.
	StuckStop bool
	releases  int
	log       []Transfer

	// UART side
	outMu   sync.Mutex
	out     []byte
	echo    io.Writer
	TxStall bool
	lost    atomic.Uint32
}

// Transfer records one bus phase.
type Transfer struct {
	Addr  uint16
	Read  bool
	Bytes []byte
}

func NewFakeUSCI(vec *halcore.Vector) *FakeUSCI {
	return &FakeUSCI{vec: vec, slaves: make(map[uint16]Slave)}
}

// Attach places a slave model at addr.
func (c *FakeUSCI) Attach(addr uint16, s Slave) { c.slaves[addr] = s }

// Detach removes the slave at addr; later transfers to it are NACKed.
func (c *FakeUSCI) Detach(addr uint16) { delete(c.slaves, addr) }

func (c *FakeUSCI) StartWrite(addr uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flush()
	if c.StallBus {
		return
	}
	s := c.slaves[addr]
	if s == nil {
		c.vec.Raise(halcore.StatusNack)
		return
	}
	c.slave, c.writing = s, true
	c.pend = c.pend[:0]
	c.log = append(c.log, Transfer{Addr: addr})
	c.txArmed = true
	for i := 0; c.txArmed && i < maxBurst; i++ {
		c.txArmed = false
		c.vec.TX()
	}
}

func (c *FakeUSCI) StartRead(addr uint16, stopAfterFirst bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flush()
	if c.StallBus {
		return
	}
	s := c.slaves[addr]
	if s == nil {
		c.vec.Raise(halcore.StatusNack)
		return
	}
	c.stopReq = stopAfterFirst
	var got []byte
	for i := 0; i < maxBurst; i++ {
		last := c.stopReq
		b := s.NextByte()
		if !c.vec.RX(b) {
			break
		}
		got = append(got, b)
		if last {
			break
		}
	}
	c.stopReq = false
	c.log = append(c.log, Transfer{Addr: addr, Read: true, Bytes: got})
}

func (c *FakeUSCI) Put(b byte) {
	if !c.writing {
		return
	}
	c.pend = append(c.pend, b)
	c.txArmed = true
}

func (c *FakeUSCI) Stop() {
	c.flush()
	c.stopReq = true
}

func (c *FakeUSCI) StopPending() bool { return c.StuckStop }

func (c *FakeUSCI) Release() { c.releases++ }

// Releases counts bus-release sequences.
func (c *FakeUSCI) Releases() int { return c.releases }

// Transfers returns the bus phases seen so far.
func (c *FakeUSCI) Transfers() []Transfer { return c.log }

func (c *FakeUSCI) flush() {
	if !c.writing {
		return
	}
	c.writing = false
	data := append([]byte(nil), c.pend...)
	if n := len(c.log); n > 0 {
		c.log[n-1].Bytes = data
	}
	c.slave.Write(data)
	c.pend = c.pend[:0]
}

func (c *FakeUSCI) TxReady() bool { return !c.TxStall }

func (c *FakeUSCI) WriteByte(b byte) error {
	if c.TxStall {
		return errcode.Busy
	}
	c.outMu.Lock()
	c.out = append(c.out, b)
	w := c.echo
	c.outMu.Unlock()
	if w != nil {
		_, _ = w.Write([]byte{b})
	}
	return nil
}

// EchoTo copies transmitted bytes to w.
func (c *FakeUSCI) EchoTo(w io.Writer) {
	c.outMu.Lock()
	c.echo = w
	c.outMu.Unlock()
}

// Output returns everything transmitted so far.
func (c *FakeUSCI) Output() string {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	return string(c.out)
}

// ResetOutput discards captured transmit bytes.
func (c *FakeUSCI) ResetOutput() {
	c.outMu.Lock()
	c.out = c.out[:0]
	c.outMu.Unlock()
}

// Inject delivers bytes as if received on the wire. Bytes arriving while the
// peripheral is not in UART mode are lost.
func (c *FakeUSCI) Inject(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range p {
		if c.vec.Mode() != halcore.ModeUART || !c.vec.RX(b) {
			c.lost.Add(1)
		}
	}
}

// Lost counts received bytes that had no UART owner.
func (c *FakeUSCI) Lost() uint32 { return c.lost.Load() }

// ----------------------------- ADC / timers ----------------------------------

// FakeADC converts instantly after BusyPolls polls of Busy.
type FakeADC struct {
	mu        sync.Mutex
	values    [8]uint16
	cur       uint8
	left      int
	BusyPolls int
	Stall     bool
}

func (a *FakeADC) Set(ch uint8, v uint16) {
	a.mu.Lock()
	a.values[ch&7] = v
	a.mu.Unlock()
}

func (a *FakeADC) Start(ch uint8) error {
	if int(ch) >= len(a.values) {
		return errcode.InvalidParams
	}
	a.mu.Lock()
	a.cur = ch
	a.left = a.BusyPolls
	a.mu.Unlock()
	return nil
}

func (a *FakeADC) Busy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Stall {
		return true
	}
	if a.left > 0 {
		a.left--
		return true
	}
	return false
}

func (a *FakeADC) Result() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.values[a.cur]
}

// FakeCapture is a manual capture timer.
type FakeCapture struct {
	mu      sync.Mutex
	ticks   uint32
	running bool
	starts  int
	onStart []func()
}

func (t *FakeCapture) Reset() {
	t.mu.Lock()
	t.ticks = 0
	t.mu.Unlock()
}

func (t *FakeCapture) Start() {
	t.mu.Lock()
	t.running = true
	t.starts++
	hooks := t.onStart
	t.mu.Unlock()
	for _, h := range hooks {
		h()
	}
}

func (t *FakeCapture) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

func (t *FakeCapture) Ticks() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// SetTicks moves the counter; used by signal models.
func (t *FakeCapture) SetTicks(n uint32) {
	t.mu.Lock()
	t.ticks = n
	t.mu.Unlock()
}

func (t *FakeCapture) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *FakeCapture) Starts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.starts
}

// OnStart registers h to run after each Start.
func (t *FakeCapture) OnStart(h func()) {
	t.mu.Lock()
	t.onStart = append(t.onStart, h)
	t.mu.Unlock()
}

// SimTicker is a halcore.Ticker driven by virtual time.
type SimTicker struct {
	mu      sync.Mutex
	period  time.Duration
	isr     func()
	running bool
	elapsed time.Duration
	fired   int
}

func (t *SimTicker) Start(period time.Duration, isr func()) {
	t.mu.Lock()
	t.period, t.isr = period, isr
	t.running = period > 0 && isr != nil
	t.elapsed = 0
	t.mu.Unlock()
}

func (t *SimTicker) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

func (t *SimTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Fired counts ISR invocations.
func (t *SimTicker) Fired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Advance runs the ISR once per elapsed period.
func (t *SimTicker) Advance(d time.Duration) {
	for {
		t.mu.Lock()
		if !t.running {
			t.mu.Unlock()
			return
		}
		t.elapsed += d
		d = 0
		if t.elapsed < t.period {
			t.mu.Unlock()
			return
		}
		t.elapsed -= t.period
		t.fired++
		isr := t.isr
		t.mu.Unlock()
		isr()
	}
}

// Fire runs the ISR once if started.
func (t *SimTicker) Fire() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.fired++
	isr := t.isr
	t.mu.Unlock()
	isr()
}

// ----------------------------- Simulated board --------------------------------

// Sim is the host board: Resources plus handles on every model.
type Sim struct {
	Resources

	USCI    *FakeUSCI
	ADCs    *FakeADC
	Timer   *FakeCapture
	Ticker  *SimTicker // nil when running on the wall clock
	Accel   *MMA8451Model
	ADAC    *PCF8591Model
	LEDBank *HC194Model
	Buttons *HC194Model
	LCD     *HD44780Model
	Echo    *EchoModel

	plan config.Pins
	pins map[int]*FakePin
	an   config.AnalogConfig
}

// Bus addresses of the attached slave models.
const (
	AccelAddr = 0x1D
	ADACAddr  = 0x48
)

// NewSim wires a simulated board from cfg. With a *timex.Fake clock the
// refresh ticker advances on virtual time; with any other clock it is a
// GoTicker.
func NewSim(cfg config.Config, clock timex.Clock) *Sim {
	vec := &halcore.Vector{}
	s := &Sim{
		USCI:  NewFakeUSCI(vec),
		ADCs:  &FakeADC{BusyPolls: 1},
		Timer: &FakeCapture{},
		Accel: NewMMA8451Model(),
		ADAC:  &PCF8591Model{},
		plan:  cfg.Pins,
		pins:  make(map[int]*FakePin),
		an:    cfg.Analog,
	}
	s.USCI.Attach(AccelAddr, s.Accel)
	s.USCI.Attach(ADACAddr, s.ADAC)

	p := cfg.Pins
	s.Resources = Resources{
		Clock:   clock,
		Vector:  vec,
		UART:    s.USCI,
		Bus:     s.USCI,
		FreeBus: s.USCI.Release,
		ADC:     s.ADCs,
		Capture: s.Timer,
		Pins: Pins{
			Trigger:     s.pin(p.Trigger),
			Echo:        s.pin(p.Echo),
			LCDRS:       s.pin(p.LCDRS),
			LCDE:        s.pin(p.LCDE),
			SRMode0:     s.pin(p.SRMode0),
			SRMode1:     s.pin(p.SRMode1),
			LEDClock:    s.pin(p.LEDClock),
			LEDSerial:   s.pin(p.LEDSerial),
			ButtonClock: s.pin(p.ButtonClock),
			ButtonQD:    s.pin(p.ButtonQD),
			PB5:         s.pin(p.PB5),
			PB6:         s.pin(p.PB6),
			Green:       s.pin(p.Green),
			Red:         s.pin(p.Red),
			Relay:       s.pin(p.Relay),
		},
	}
	var data [4]*FakePin
	for i, n := range p.LCDData {
		data[i] = s.pin(n)
		s.Resources.Pins.LCDData[i] = data[i]
	}

	if fc, ok := clock.(*timex.Fake); ok {
		s.Ticker = &SimTicker{}
		s.Refresh = s.Ticker
		last := fc.Now()
		fc.OnAdvance(func(now time.Time) {
			d := now.Sub(last)
			last = now
			s.Ticker.Advance(d)
		})
	} else {
		s.Refresh = &GoTicker{}
	}

	s.LEDBank = NewHC194Model(s.pin(p.SRMode0), s.pin(p.SRMode1), s.pin(p.LEDClock), s.pin(p.LEDSerial), nil)
	s.Buttons = NewHC194Model(s.pin(p.SRMode0), s.pin(p.SRMode1), s.pin(p.ButtonClock), nil, s.pin(p.ButtonQD))
	s.LCD = NewHD44780Model(s.pin(p.LCDRS), s.pin(p.LCDE), data)
	s.Echo = NewEchoModel(s.pin(p.Echo), s.Timer)

	// Buttons released: direct inputs idle high.
	s.PressButtons(0)
	return s
}

func (s *Sim) pin(n int) *FakePin {
	p, ok := s.pins[n]
	if !ok {
		p = NewFakePin(n)
		s.pins[n] = p
	}
	return p
}

// Pin returns the fake pin with GPIO number n, or nil.
func (s *Sim) Pin(n int) *FakePin { return s.pins[n] }

// PressButtons sets button states; bit i is PB(i+1).
func (s *Sim) PressButtons(mask uint8) {
	s.Buttons.SetInputs(mask & 0x0F)
	s.pin(s.plan.PB5).Set(mask&0x10 == 0)
	s.pin(s.plan.PB6).Set(mask&0x20 == 0)
}

// SetAnalog sets the thermistor, light and potentiometer raw readings.
func (s *Sim) SetAnalog(thermistor, light, pot uint16) {
	s.ADCs.Set(s.an.ThermistorCh, thermistor)
	s.ADCs.Set(s.an.LightCh, light)
	s.ADCs.Set(s.an.PotCh, pot)
}

// SetJoystick sets the two joystick ADAC inputs.
func (s *Sim) SetJoystick(x, y uint8) {
	s.ADAC.SetInput(0, x)
	s.ADAC.SetInput(1, y)
}

// SetEcho sets the echo width in capture ticks; 0 means no echo.
func (s *Sim) SetEcho(ticks uint32) { s.Echo.SetTicks(ticks) }

// Level reports the level of pin n.
func (s *Sim) Level(n int) bool {
	if p := s.pins[n]; p != nil {
		return p.Get()
	}
	return false
}
