package dashboard

import (
	"time"

	"sensordash-go/drivers/analog"
	"sensordash-go/drivers/hc194"
	"sensordash-go/drivers/mma8451"
	"sensordash-go/drivers/pcf8591"
	"sensordash-go/drivers/ultrasonic"
	"sensordash-go/services/serial"
	"sensordash-go/types"
	"sensordash-go/x/timex"
)

// Sampler runs the body of one sampling cycle. The bus and the serial
// receive path share pins, so the order is fixed: ultrasonic, receive off,
// bus queries, bus release, receive on, analog inputs, buttons.
type Sampler struct {
	clock timex.Clock
	link  *serial.Link

	sonar   *ultrasonic.Sensor
	joy     *pcf8591.Device
	accel   *mma8451.Device
	analog  *analog.Sampler
	buttons *hc194.ButtonReader

	accelCfg   mma8451.Config
	accelReady bool
	joyReady   bool

	// releaseBus frees a stuck slave after the last query.
	releaseBus func()
	busSettle  time.Duration

	lightLow, lightHigh uint16

	seq uint32
}

// Cycle samples every sensor into a snapshot. Failed groups are left out of
// Valid and their errors returned; the cycle always runs to completion.
func (s *Sampler) Cycle() (types.Snapshot, []error) {
	var snap types.Snapshot
	var errs []error
	fail := func(err error) bool {
		if err != nil {
			errs = append(errs, err)
			return true
		}
		return false
	}

	sonarOK := !fail(s.sonar.Measure())

	s.link.DisableRX()
	s.queryBus(&snap, fail)
	s.clock.Sleep(s.busSettle)
	if s.releaseBus != nil {
		s.releaseBus()
	}
	s.link.Enable()

	if r, err := s.analog.ReadAll(); !fail(err) {
		snap.Thermistor, snap.LightRaw, snap.Pot = r.Thermistor, r.Light, r.Pot
		snap.Light = analog.Classify(r.Light, s.lightLow, s.lightHigh)
		snap.Valid |= types.ValidThermistor | types.ValidLight | types.ValidPot
	}
	snap.Buttons = s.buttons.Read()
	snap.Valid |= types.ValidButtons

	if sonarOK {
		snap.DistanceCM, snap.EchoTicks, snap.InRange = s.sonar.Reading()
		snap.Valid |= types.ValidDistance
	}

	s.seq++
	snap.Seq = s.seq
	snap.TakenMs = s.clock.Now().UnixMilli()
	return snap, errs
}

func (s *Sampler) queryBus(snap *types.Snapshot, fail func(error) bool) {
	if !s.joyReady {
		s.joyReady = !fail(s.joy.Configure())
	}
	if s.joyReady {
		if in, err := s.joy.ReadAll(); !fail(err) {
			snap.Joystick = [2]uint8{in[0], in[1]}
			snap.Valid |= types.ValidJoystick
		} else {
			s.joyReady = false
		}
	}

	if !s.accelReady {
		s.accelReady = !fail(s.accel.Configure(s.accelCfg))
	}
	if s.accelReady {
		if x, y, z, err := s.accel.ReadAcceleration(); !fail(err) {
			snap.Accel = [3]int32{
				mma8451.MilliMetresPerSec2(x),
				mma8451.MilliMetresPerSec2(y),
				mma8451.MilliMetresPerSec2(z),
			}
			snap.Valid |= types.ValidAccel
		} else {
			s.accelReady = false
		}
	}
}
