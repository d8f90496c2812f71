// Package config holds every dashboard tunable with reference defaults.
package config

import (
	"errors"
	"time"

	"sensordash-go/bus"
)

const configPrefix = "config"

// Config is the complete dashboard configuration.
type Config struct {
	// EnableCommand is the literal line that opens the dashboard.
	EnableCommand string `yaml:"enable_command"`

	Serial     SerialConfig     `yaml:"serial"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Ultrasonic UltrasonicConfig `yaml:"ultrasonic"`
	Analog     AnalogConfig     `yaml:"analog"`
	Bus        BusConfig        `yaml:"bus"`
	Accel      AccelConfig      `yaml:"accel"`

	// ExitDelay is the pause after the farewell message.
	ExitDelay time.Duration `yaml:"exit_delay"`
	// Poll is the main loop idle interval.
	Poll time.Duration `yaml:"poll"`

	Pins Pins `yaml:"pins"`
}

type SerialConfig struct {
	Baud         uint32        `yaml:"baud"`
	LineCapacity int           `yaml:"line_capacity"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
}

type RefreshConfig struct {
	Period time.Duration `yaml:"period"`
	// Threshold is the tick count at which sampling is due.
	Threshold uint32 `yaml:"threshold"`
}

type UltrasonicConfig struct {
	Pulses    int           `yaml:"pulses"`
	PulseHigh time.Duration `yaml:"pulse_high"`
	PulseLow  time.Duration `yaml:"pulse_low"`
	Arm       time.Duration `yaml:"arm"`
	Settle    time.Duration `yaml:"settle"`
	// Divisor converts echo ticks to centimetres.
	Divisor uint32 `yaml:"divisor"`
	// Floor: distances at or below it are out of range.
	Floor uint32 `yaml:"floor"`
}

type AnalogConfig struct {
	ThermistorCh uint8         `yaml:"thermistor_ch"`
	LightCh      uint8         `yaml:"light_ch"`
	PotCh        uint8         `yaml:"pot_ch"`
	LightLow     uint16        `yaml:"light_low"`
	LightHigh    uint16        `yaml:"light_high"`
	Timeout      time.Duration `yaml:"timeout"`
}

type BusConfig struct {
	Hz      uint32        `yaml:"hz"`
	Timeout time.Duration `yaml:"timeout"`
	// Settle is the pause between the last bus query and bus release.
	Settle time.Duration `yaml:"settle"`
}

type AccelConfig struct {
	RangeG         int `yaml:"range_g"`
	ResolutionBits int `yaml:"resolution_bits"`
}

// Pins is the GPIO plan (rp2040 GP numbers).
type Pins struct {
	UARTTX int `yaml:"uart_tx"`
	UARTRX int `yaml:"uart_rx"`
	SDA    int `yaml:"sda"`
	SCL    int `yaml:"scl"`

	Trigger int `yaml:"trigger"`
	Echo    int `yaml:"echo"`

	LCDRS   int    `yaml:"lcd_rs"`
	LCDE    int    `yaml:"lcd_e"`
	LCDData [4]int `yaml:"lcd_data"`

	SRMode0     int `yaml:"sr_s0"`
	SRMode1     int `yaml:"sr_s1"`
	LEDClock    int `yaml:"led_clk"`
	LEDSerial   int `yaml:"led_ser"`
	ButtonClock int `yaml:"btn_clk"`
	ButtonQD    int `yaml:"btn_qd"`
	PB5         int `yaml:"pb5"`
	PB6         int `yaml:"pb6"`

	Green int `yaml:"green"`
	Red   int `yaml:"red"`
	Relay int `yaml:"relay"`
}

// Default returns the reference board configuration.
func Default() Config {
	return Config{
		EnableCommand: "sensorDashboard",
		Serial: SerialConfig{
			Baud:         115200,
			LineCapacity: 64,
			TxTimeout:    50 * time.Millisecond,
		},
		Refresh: RefreshConfig{
			Period:    500 * time.Millisecond,
			Threshold: 4,
		},
		Ultrasonic: UltrasonicConfig{
			Pulses:    8,
			PulseHigh: 7 * time.Microsecond,
			PulseLow:  time.Microsecond,
			Arm:       time.Millisecond,
			Settle:    10 * time.Millisecond,
			Divisor:   52,
			Floor:     1,
		},
		Analog: AnalogConfig{
			ThermistorCh: 0,
			LightCh:      1,
			PotCh:        2,
			LightLow:     100,
			LightHigh:    450,
			Timeout:      5 * time.Millisecond,
		},
		Bus: BusConfig{
			Hz:      100_000,
			Timeout: 25 * time.Millisecond,
			Settle:  100 * time.Millisecond,
		},
		Accel: AccelConfig{
			RangeG:         4,
			ResolutionBits: 8,
		},
		ExitDelay: 5 * time.Second,
		Poll:      time.Millisecond,
		Pins: Pins{
			UARTTX: 0, UARTRX: 1,
			Trigger: 2, Echo: 3,
			SDA: 4, SCL: 5,
			LCDRS: 6, LCDE: 7, LCDData: [4]int{8, 9, 10, 11},
			SRMode0: 12, SRMode1: 13,
			LEDClock: 14, LEDSerial: 15,
			ButtonClock: 16, ButtonQD: 17,
			PB5: 18, PB6: 19,
			Green: 20, Red: 21, Relay: 22,
		},
	}
}

// Normalize fills zero-valued fields from Default. Pins are taken as given.
func (c *Config) Normalize() {
	d := Default()
	if c.EnableCommand == "" {
		c.EnableCommand = d.EnableCommand
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = d.Serial.Baud
	}
	if c.Serial.LineCapacity == 0 {
		c.Serial.LineCapacity = d.Serial.LineCapacity
	}
	if c.Serial.TxTimeout == 0 {
		c.Serial.TxTimeout = d.Serial.TxTimeout
	}
	if c.Refresh.Period == 0 {
		c.Refresh.Period = d.Refresh.Period
	}
	if c.Refresh.Threshold == 0 {
		c.Refresh.Threshold = d.Refresh.Threshold
	}
	u, du := &c.Ultrasonic, d.Ultrasonic
	if u.Pulses == 0 {
		u.Pulses = du.Pulses
	}
	if u.PulseHigh == 0 {
		u.PulseHigh = du.PulseHigh
	}
	if u.PulseLow == 0 {
		u.PulseLow = du.PulseLow
	}
	if u.Arm == 0 {
		u.Arm = du.Arm
	}
	if u.Settle == 0 {
		u.Settle = du.Settle
	}
	if u.Divisor == 0 {
		u.Divisor = du.Divisor
	}
	if c.Analog.LightLow == 0 && c.Analog.LightHigh == 0 {
		c.Analog.LightLow, c.Analog.LightHigh = d.Analog.LightLow, d.Analog.LightHigh
	}
	if c.Analog.Timeout == 0 {
		c.Analog.Timeout = d.Analog.Timeout
	}
	if c.Bus.Hz == 0 {
		c.Bus.Hz = d.Bus.Hz
	}
	if c.Bus.Timeout == 0 {
		c.Bus.Timeout = d.Bus.Timeout
	}
	if c.Accel.RangeG == 0 {
		c.Accel.RangeG = d.Accel.RangeG
	}
	if c.Accel.ResolutionBits == 0 {
		c.Accel.ResolutionBits = d.Accel.ResolutionBits
	}
	if c.Poll == 0 {
		c.Poll = d.Poll
	}
}

// Validate checks declarative correctness. It does not mutate c.
func (c *Config) Validate() error {
	switch {
	case c.EnableCommand == "":
		return errors.New("config: enable_command is empty")
	case len(c.EnableCommand) > c.Serial.LineCapacity:
		return errors.New("config: enable_command longer than line_capacity")
	case c.Serial.LineCapacity < 16 || c.Serial.LineCapacity > 256:
		return errors.New("config: line_capacity must be in 16..256")
	case c.Refresh.Period <= 0:
		return errors.New("config: refresh period must be positive")
	case c.Refresh.Threshold == 0:
		return errors.New("config: refresh threshold must be positive")
	case c.Ultrasonic.Pulses <= 0:
		return errors.New("config: ultrasonic pulses must be positive")
	case c.Ultrasonic.Divisor == 0:
		return errors.New("config: ultrasonic divisor must be positive")
	case c.Analog.LightLow >= c.Analog.LightHigh:
		return errors.New("config: light_low must be below light_high")
	case c.Bus.Timeout <= 0:
		return errors.New("config: bus timeout must be positive")
	case c.ExitDelay < 0:
		return errors.New("config: exit_delay is negative")
	}
	switch c.Accel.RangeG {
	case 2, 4, 8:
	default:
		return errors.New("config: accel range_g must be 2, 4 or 8")
	}
	switch c.Accel.ResolutionBits {
	case 8, 14:
	default:
		return errors.New("config: accel resolution_bits must be 8 or 14")
	}
	return c.Pins.validate()
}

func (p Pins) validate() error {
	all := []int{
		p.UARTTX, p.UARTRX, p.SDA, p.SCL, p.Trigger, p.Echo,
		p.LCDRS, p.LCDE, p.LCDData[0], p.LCDData[1], p.LCDData[2], p.LCDData[3],
		p.SRMode0, p.SRMode1, p.LEDClock, p.LEDSerial, p.ButtonClock, p.ButtonQD,
		p.PB5, p.PB6, p.Green, p.Red, p.Relay,
	}
	var seen [64]bool
	for _, n := range all {
		if n < 0 || n >= len(seen) {
			return errors.New("config: pin number out of range")
		}
		if seen[n] {
			return errors.New("config: pin assigned twice")
		}
		seen[n] = true
	}
	return nil
}

// Publish retains the effective configuration on the bus under config/dashboard.
func Publish(conn *bus.Connection, c Config) {
	conn.Publish(conn.NewMessage(bus.Topic{configPrefix, "dashboard"}, c, true))
}
