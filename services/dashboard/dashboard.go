// Package dashboard runs the sensor dashboard: the entry gate, the refresh
// scheduler driven by timer ticks, the sampling cycle and command dispatch.
package dashboard

import (
	"context"
	"errors"

	"sensordash-go/bus"
	"sensordash-go/drivers/analog"
	"sensordash-go/drivers/gpioout"
	"sensordash-go/drivers/hc194"
	"sensordash-go/drivers/hd44780"
	"sensordash-go/drivers/i2cx"
	"sensordash-go/drivers/mma8451"
	"sensordash-go/drivers/pcf8591"
	"sensordash-go/drivers/ultrasonic"
	"sensordash-go/errcode"
	"sensordash-go/services/command"
	"sensordash-go/services/config"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/services/hal/platform"
	"sensordash-go/services/serial"
	"sensordash-go/types"
	"sensordash-go/x/timex"

	"tinygo.org/x/drivers"
)

// Telemetry topics.
var (
	TopicSnapshot  = bus.Topic{"dash", "snapshot"}
	TopicActuators = bus.Topic{"dash", "actuators"}
	TopicPhase     = bus.Topic{"dash", "phase"}
	TopicFault     = bus.Topic{"dash", "fault"}
)

// Dashboard owns the session and every device behind it.
type Dashboard struct {
	cfg    config.Config
	clock  timex.Clock
	link   *serial.Link
	ticker halcore.Ticker

	sampler *Sampler
	board   *Board
	sonar   *ultrasonic.Sensor
	buttons *hc194.ButtonReader
	screen  *Screen
	acc     *command.Accumulator
	ticks   *TickCounter

	sess Session
	conn *bus.Connection // optional telemetry
}

// Build wires a dashboard over res. conn may be nil.
func Build(cfg config.Config, res platform.Resources, conn *bus.Connection) (*Dashboard, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if res.Clock == nil || res.Vector == nil || res.UART == nil || res.Refresh == nil {
		return nil, errcode.InvalidParams
	}
	clock := res.Clock
	p := res.Pins

	link := serial.New(res.Vector, res.UART, clock, serial.Config{TxTimeout: cfg.Serial.TxTimeout})

	var i2c drivers.I2C
	release := res.FreeBus
	switch {
	case res.I2C != nil:
		i2c = res.I2C
	case res.Bus != nil:
		tr := i2cx.New(res.Vector, res.Bus, clock, i2cx.Config{Timeout: cfg.Bus.Timeout})
		i2c = tr
		release = tr.Release
	default:
		return nil, errcode.InvalidParams
	}

	rng, _ := mma8451.RangeFromG(cfg.Accel.RangeG)
	u := cfg.Ultrasonic
	sonar := ultrasonic.New(p.Trigger, p.Echo, res.Capture, clock, ultrasonic.Config{
		Pulses:    u.Pulses,
		PulseHigh: u.PulseHigh,
		PulseLow:  u.PulseLow,
		Arm:       u.Arm,
		Settle:    u.Settle,
		Divisor:   u.Divisor,
		Floor:     u.Floor,
	})

	ledReg := hc194.New(hc194.Pins{S0: p.SRMode0, S1: p.SRMode1, Clock: p.LEDClock, Serial: p.LEDSerial}, clock)
	btnReg := hc194.New(hc194.Pins{S0: p.SRMode0, S1: p.SRMode1, Clock: p.ButtonClock, QD: p.ButtonQD}, clock)
	buttons := hc194.NewButtonReader(btnReg, p.PB5, p.PB6)

	board := &Board{
		bank:  hc194.NewLEDBank(ledReg),
		reg:   ledReg,
		d5:    gpioout.New(gpioout.RoleLED, p.Green, gpioout.Params{Name: "d5"}),
		d6:    gpioout.New(gpioout.RoleLED, p.Red, gpioout.Params{Name: "d6"}),
		relay: gpioout.New(gpioout.RoleSwitch, p.Relay, gpioout.Params{Name: "relay"}),
		lcd:   hd44780.New(hd44780.Pins{RS: p.LCDRS, E: p.LCDE, Data: p.LCDData}, clock),
	}

	a := cfg.Analog
	d := &Dashboard{
		cfg:    cfg,
		clock:  clock,
		link:   link,
		ticker: res.Refresh,
		sampler: &Sampler{
			clock: clock,
			link:  link,
			sonar: sonar,
			joy:   pcf8591.New(i2c),
			accel: mma8451.New(i2c, clock),
			analog: analog.New(res.ADC, clock, analog.Config{
				ThermistorCh: a.ThermistorCh,
				LightCh:      a.LightCh,
				PotCh:        a.PotCh,
				Timeout:      a.Timeout,
			}),
			buttons:    buttons,
			accelCfg:   mma8451.Config{Range: rng, Resolution: mma8451.Resolution(cfg.Accel.ResolutionBits)},
			releaseBus: release,
			busSettle:  cfg.Bus.Settle,
			lightLow:   a.LightLow,
			lightHigh:  a.LightHigh,
		},
		board:   board,
		sonar:   sonar,
		buttons: buttons,
		screen:  NewScreen(link),
		acc:     command.NewAccumulator(cfg.Serial.LineCapacity, link),
		ticks:   NewTickCounter(cfg.Refresh.Threshold),
		conn:    conn,
	}
	return d, nil
}

// Start drives the actuators to baseline, enables the receiver and shows the
// entry prompt.
func (d *Dashboard) Start() error {
	if err := d.board.Configure(); err != nil {
		return err
	}
	if err := d.buttons.Configure(); err != nil {
		return err
	}
	if err := d.sonar.Configure(); err != nil {
		return err
	}
	d.link.Enable()
	if d.conn != nil {
		config.Publish(d.conn, d.cfg)
	}
	d.publishActuators()
	d.setPhase(AwaitingEntry)
	return d.screen.EntryPrompt(d.cfg.EnableCommand)
}

// Run starts the dashboard and steps it every cfg.Poll until ctx ends.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			d.ticker.Stop()
			d.sonar.Stop()
			return ctx.Err()
		default:
		}
		d.Step()
		d.clock.Sleep(d.cfg.Poll)
	}
}

// OnTick is the refresh timer handler.
func (d *Dashboard) OnTick() { d.ticks.Inc() }

// Step runs one pass of the main loop: intake, then the phase's work.
func (d *Dashboard) Step() {
	if err := d.link.Error(); err != nil {
		d.fault(err)
	}
	d.intake()

	switch d.sess.Phase {
	case AwaitingEntry:
		if line, ok := d.takePending(); ok {
			d.entry(line)
		}
	case DashboardActive, AwaitingCommand:
		if line, ok := d.takePending(); ok && line != "" {
			if d.command(line) {
				return
			}
		}
		if d.ticks.Due() {
			d.sample()
		}
	}
}

func (d *Dashboard) intake() {
	if d.sess.HasPending {
		return
	}
	if err := d.acc.Poll(d.link); err != nil && !errors.Is(err, errcode.Busy) {
		d.fault(err)
	}
	if line, ok := d.acc.Take(); ok {
		d.sess.Pending, d.sess.HasPending = line, true
	}
}

func (d *Dashboard) takePending() (string, bool) {
	if !d.sess.HasPending {
		return "", false
	}
	line := d.sess.Pending
	d.sess.Pending, d.sess.HasPending = "", false
	return line, true
}

func (d *Dashboard) entry(line string) {
	if line != d.cfg.EnableCommand {
		d.sess.Rejected++
		d.write(d.screen.WrongEntry())
		return
	}
	d.sess.Entries++
	if err := d.board.Reset(); err != nil {
		d.fault(err)
	}
	d.sess.Actuators = types.ActuatorState{}
	d.publishActuators()
	d.acc.Reset()
	d.write(d.screen.Init())
	d.ticks.Reset()
	d.ticker.Start(d.cfg.Refresh.Period, d.OnTick)
	d.setPhase(DashboardActive)
}

// command handles one line in the active phases. It reports whether the
// dashboard exited.
func (d *Dashboard) command(line string) bool {
	d.sess.Commands++
	d.write(d.screen.Ack(line))

	cmd := command.Parse(line)
	if cmd.Kind == command.Exit {
		d.exit()
		return true
	}
	err := command.Dispatch(cmd, d.board, &d.sess.Actuators)
	switch {
	case err == nil:
		d.write(d.screen.Diagnostic(""))
		d.publishActuators()
	case errors.Is(err, errcode.UnrecognizedCommand):
		d.sess.Rejected++
		d.write(d.screen.Diagnostic(command.Diagnostic))
	default:
		d.fault(err)
	}
	return false
}

func (d *Dashboard) sample() {
	d.ticker.Stop()
	d.setPhase(Sampling)

	snap, errs := d.sampler.Cycle()
	for _, err := range errs {
		d.fault(err)
	}
	d.sess.Snapshot = snap

	d.setPhase(DisplayReady)
	d.write(d.screen.Render(snap))
	d.publish(TopicSnapshot, snap, true)

	d.ticks.Reset()
	d.ticker.Start(d.cfg.Refresh.Period, d.OnTick)
	d.setPhase(AwaitingCommand)
}

func (d *Dashboard) exit() {
	d.setPhase(Exiting)
	d.ticker.Stop()
	d.sonar.Stop()
	if err := d.board.Reset(); err != nil {
		d.fault(err)
	}
	d.sess.Actuators = types.ActuatorState{}
	d.publishActuators()

	d.write(d.screen.Farewell())
	d.clock.Sleep(d.cfg.ExitDelay)

	d.acc.Reset()
	d.link.Flush()
	d.ticks.Reset()
	d.setPhase(AwaitingEntry)
	d.write(d.screen.EntryPrompt(d.cfg.EnableCommand))
}

// fault records err and shows it on the diagnostic row while the grid is up.
func (d *Dashboard) fault(err error) {
	d.sess.LastFault = err
	d.sess.Faults++
	println("[dash] fault:", err.Error())
	if d.sess.Phase != AwaitingEntry {
		_ = d.screen.Diagnostic(err.Error())
	}
	d.publish(TopicFault, err.Error(), false)
}

// write records a terminal write failure without re-rendering it.
func (d *Dashboard) write(err error) {
	if err != nil {
		d.sess.LastFault = err
		d.sess.Faults++
		d.publish(TopicFault, err.Error(), false)
	}
}

func (d *Dashboard) setPhase(p Phase) {
	d.sess.Phase = p
	d.publish(TopicPhase, p.String(), true)
}

func (d *Dashboard) publishActuators() {
	d.publish(TopicActuators, d.sess.Actuators, true)
}

func (d *Dashboard) publish(t bus.Topic, payload any, retained bool) {
	if d.conn == nil {
		return
	}
	d.conn.Publish(d.conn.NewMessage(t, payload, retained))
}

func (d *Dashboard) Session() Session      { return d.sess }
func (d *Dashboard) Phase() Phase          { return d.sess.Phase }
func (d *Dashboard) Board() *Board         { return d.board }
func (d *Dashboard) Ticks() *TickCounter   { return d.ticks }
func (d *Dashboard) Link() *serial.Link    { return d.link }
func (d *Dashboard) Config() config.Config { return d.cfg }
