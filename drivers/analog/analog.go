// Package analog samples the on-chip ADC inputs: thermistor, light sensor
// and potentiometer.
package analog

import (
	"time"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
	"sensordash-go/types"
	"sensordash-go/x/timex"
)

type Config struct {
	ThermistorCh uint8
	LightCh      uint8
	PotCh        uint8
	// Timeout bounds each conversion.
	Timeout time.Duration
}

// Reading is one pass over the three inputs.
type Reading struct {
	Thermistor uint16
	Light      uint16
	Pot        uint16
}

type Sampler struct {
	adc   halcore.ADC
	clock timex.Clock
	cfg   Config
}

func New(adc halcore.ADC, clock timex.Clock, cfg Config) *Sampler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Millisecond
	}
	return &Sampler{adc: adc, clock: clock, cfg: cfg}
}

// Read performs one conversion on ch.
func (s *Sampler) Read(ch uint8) (uint16, error) {
	if err := s.adc.Start(ch); err != nil {
		return 0, err
	}
	err := timex.Await(s.clock, s.cfg.Timeout, 10*time.Microsecond, func() bool { return !s.adc.Busy() })
	if err != nil {
		return 0, &errcode.E{C: errcode.Timeout, Op: "adc", Msg: "conversion"}
	}
	return s.adc.Result(), nil
}

// ReadAll converts thermistor, light and potentiometer in that order.
// It stops at the first failure.
func (s *Sampler) ReadAll() (Reading, error) {
	var r Reading
	var err error
	if r.Thermistor, err = s.Read(s.cfg.ThermistorCh); err != nil {
		return r, err
	}
	if r.Light, err = s.Read(s.cfg.LightCh); err != nil {
		return r, err
	}
	r.Pot, err = s.Read(s.cfg.PotCh)
	return r, err
}

// Classify maps a raw light reading: <= low is Low, <= high is Medium,
// anything above is High.
func Classify(raw, low, high uint16) types.LightLevel {
	switch {
	case raw <= low:
		return types.LightLow
	case raw <= high:
		return types.LightMedium
	default:
		return types.LightHigh
	}
}
