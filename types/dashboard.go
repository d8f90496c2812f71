package types

// LightLevel is the qualitative light-sensor classification.
type LightLevel uint8

const (
	LightUnknown LightLevel = iota
	LightLow
	LightMedium
	LightHigh
)

func (l LightLevel) String() string {
	switch l {
	case LightLow:
		return "Low"
	case LightMedium:
		return "Medium"
	case LightHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Valid marks which snapshot fields hold data from the latest cycle.
type Valid uint8

const (
	ValidDistance Valid = 1 << iota
	ValidAccel
	ValidJoystick
	ValidPot
	ValidLight
	ValidThermistor
	ValidButtons

	ValidAll = ValidDistance | ValidAccel | ValidJoystick | ValidPot |
		ValidLight | ValidThermistor | ValidButtons
)

// Has reports whether every bit in f is set.
func (v Valid) Has(f Valid) bool { return v&f == f }

// ButtonCount is the number of push-buttons in Snapshot.Buttons.
const ButtonCount = 6

// Snapshot is the latest sampled set of sensor values.
type Snapshot struct {
	Seq     uint32 // sampling cycle number, 1-based
	TakenMs int64

	DistanceCM uint32
	InRange    bool // false renders "Out of Range"
	EchoTicks  uint32

	// Acceleration in mm/s^2 (X, Y, Z).
	Accel [3]int32

	Joystick   [2]uint8
	Pot        uint16
	LightRaw   uint16
	Light      LightLevel
	Thermistor uint16

	// Bit i is PB(i+1); 1 = pressed.
	Buttons uint8

	Valid Valid
}

// Button reports whether PB(n) was pressed, n in 1..6.
func (s Snapshot) Button(n int) bool {
	if n < 1 || n > ButtonCount {
		return false
	}
	return s.Buttons>>(n-1)&1 == 1
}

// LEDCount is the number of addressable LEDs (d1..d6).
const LEDCount = 6

// ActuatorState mirrors the last successfully applied actuator commands.
type ActuatorState struct {
	LEDs    [LEDCount]bool // index 0 is d1
	Relay   bool
	LCDText string
}

// Baseline reports whether every actuator is off and the display is empty.
func (a ActuatorState) Baseline() bool {
	for _, on := range a.LEDs {
		if on {
			return false
		}
	}
	return !a.Relay && a.LCDText == ""
}
