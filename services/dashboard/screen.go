package dashboard

import (
	"io"

	"sensordash-go/types"
	"sensordash-go/x/conv"
	"sensordash-go/x/mathx"
)

// Screen layout (1-based rows).
const (
	rowTitle  = 1
	rowFirst  = 3 // first value row; rows step by 2
	rowHelp1  = 33
	rowHelp2  = 34
	rowAck    = 35
	rowDiag   = 36
	rowPrompt = 37
	rowInput  = 38
	colValue  = 24
)

var labels = [...]string{
	"Ultrasonic Sensor",
	"Acceleration Sensor X",
	"Acceleration Sensor Y",
	"Acceleration Sensor Z",
	"Joystick X",
	"Joystick Y",
	"Potentiometer",
	"LDR",
	"NTC",
	"PB1",
	"PB2",
	"PB3",
	"PB4",
	"PB5",
	"PB6",
}

const (
	fieldDistance = iota
	fieldAccelX
	fieldAccelY
	fieldAccelZ
	fieldJoyX
	fieldJoyY
	fieldPot
	fieldLight
	fieldNTC
	fieldPB1
	fieldCount = len(labels)
)

// Terminal texts.
const (
	titleText   = "SENSOR DASHBOARD"
	helpText1   = "To control - LED, LCD, RELAYS. Use below Format"
	helpText2   = "Command Format - [Device] [Sub-Device] [Command] [Sub-Command]"
	promptText  = "Enter Command :"
	ackPrefix   = "Command Entered: "
	wrongEntry  = "Wrong Entry. Try again."
	outOfRange  = "Out of Range"
	fieldError  = "Error"
	pressedText = "Pressed"
	releasedTxt = "Released"
)

// Farewell lines, in order.
var farewell = [...]string{"Board Resetting...", "Board Reset", "Exit"}

// Screen renders the dashboard with VT100 cursor addressing. The label grid
// is drawn once; Render rewrites only value fields whose text changed.
type Screen struct {
	w    io.Writer
	buf  []byte
	last [fieldCount]string
	full bool // next Render writes every field
}

func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w, buf: make([]byte, 0, 128), full: true}
}

// EntryPrompt clears the terminal and asks for the enable command.
func (s *Screen) EntryPrompt(enable string) error {
	s.buf = append(s.buf[:0], "\x1b[2J\x1b[H"...)
	s.buf = append(s.buf, "Enter "...)
	s.buf = append(s.buf, enable...)
	s.buf = append(s.buf, " to view data\r\n"...)
	return s.flush()
}

func (s *Screen) WrongEntry() error {
	s.buf = append(s.buf[:0], "\r\n"...)
	s.buf = append(s.buf, wrongEntry...)
	s.buf = append(s.buf, "\r\n"...)
	return s.flush()
}

// Init draws the static grid and parks the cursor on the input row.
func (s *Screen) Init() error {
	s.buf = append(s.buf[:0], "\x1b[2J"...)
	s.at(rowTitle, 1)
	s.buf = append(s.buf, titleText...)
	for i, l := range labels {
		s.at(rowFirst+2*i, 1)
		s.buf = append(s.buf, l...)
	}
	s.at(rowHelp1, 1)
	s.buf = append(s.buf, helpText1...)
	s.at(rowHelp2, 1)
	s.buf = append(s.buf, helpText2...)
	s.at(rowPrompt, 1)
	s.buf = append(s.buf, promptText...)
	s.at(rowInput, 1)
	s.full = true
	s.last = [fieldCount]string{}
	return s.flush()
}

// Render writes changed value fields, keeping the cursor where the user is
// typing.
func (s *Screen) Render(snap types.Snapshot) error {
	vals := fieldValues(snap)
	s.buf = append(s.buf[:0], "\x1b7"...)
	n := 0
	for i, v := range vals {
		if !s.full && v == s.last[i] {
			continue
		}
		s.at(rowFirst+2*i, colValue)
		s.buf = append(s.buf, "\x1b[K"...)
		s.buf = append(s.buf, v...)
		s.last[i] = v
		n++
	}
	s.full = false
	if n == 0 {
		s.buf = s.buf[:0]
		return nil
	}
	s.buf = append(s.buf, "\x1b8"...)
	return s.flush()
}

// Ack shows the accepted line and clears the input row for the next one.
func (s *Screen) Ack(line string) error {
	s.buf = s.buf[:0]
	s.at(rowAck, 1)
	s.buf = append(s.buf, "\x1b[2K"...)
	s.buf = append(s.buf, ackPrefix...)
	s.buf = append(s.buf, line...)
	s.at(rowInput, 1)
	s.buf = append(s.buf, "\x1b[2K"...)
	return s.flush()
}

// Diagnostic replaces the diagnostic row; an empty msg clears it.
func (s *Screen) Diagnostic(msg string) error {
	s.buf = append(s.buf[:0], "\x1b7"...)
	s.at(rowDiag, 1)
	s.buf = append(s.buf, "\x1b[2K"...)
	s.buf = append(s.buf, msg...)
	s.buf = append(s.buf, "\x1b8"...)
	return s.flush()
}

// Farewell clears the terminal and prints the exit lines.
func (s *Screen) Farewell() error {
	s.buf = append(s.buf[:0], "\x1b[2J\x1b[H"...)
	for _, l := range farewell {
		s.buf = append(s.buf, l...)
		s.buf = append(s.buf, "\r\n"...)
	}
	return s.flush()
}

func (s *Screen) at(row, col int) {
	s.buf = append(s.buf, "\x1b["...)
	s.buf = conv.AppendInt(s.buf, int64(row))
	s.buf = append(s.buf, ';')
	s.buf = conv.AppendInt(s.buf, int64(col))
	s.buf = append(s.buf, 'H')
}

func (s *Screen) flush() error {
	_, err := s.w.Write(s.buf)
	s.buf = s.buf[:0]
	return err
}

// fieldValues formats every value field of snap.
func fieldValues(snap types.Snapshot) [fieldCount]string {
	var v [fieldCount]string
	var b [24]byte

	switch {
	case !snap.Valid.Has(types.ValidDistance):
		v[fieldDistance] = fieldError
	case !snap.InRange:
		v[fieldDistance] = outOfRange
	default:
		v[fieldDistance] = string(append(conv.AppendUint(b[:0], uint64(snap.DistanceCM)), " cm"...))
	}

	for i := 0; i < 3; i++ {
		if !snap.Valid.Has(types.ValidAccel) {
			v[fieldAccelX+i] = fieldError
			continue
		}
		centi := mathx.DivRound(snap.Accel[i], 10)
		v[fieldAccelX+i] = string(append(conv.AppendFixed(b[:0], int64(centi), 2), " m/s^2"...))
	}

	if snap.Valid.Has(types.ValidJoystick) {
		v[fieldJoyX] = string(conv.AppendUint(b[:0], uint64(snap.Joystick[0])))
		v[fieldJoyY] = string(conv.AppendUint(b[:0], uint64(snap.Joystick[1])))
	} else {
		v[fieldJoyX], v[fieldJoyY] = fieldError, fieldError
	}

	if snap.Valid.Has(types.ValidPot | types.ValidLight | types.ValidThermistor) {
		v[fieldPot] = string(conv.AppendUint(b[:0], uint64(snap.Pot)))
		v[fieldLight] = snap.Light.String()
		v[fieldNTC] = string(conv.AppendUint(b[:0], uint64(snap.Thermistor)))
	} else {
		v[fieldPot], v[fieldLight], v[fieldNTC] = fieldError, fieldError, fieldError
	}

	for n := 1; n <= types.ButtonCount; n++ {
		if snap.Button(n) {
			v[fieldPB1+n-1] = pressedText
		} else {
			v[fieldPB1+n-1] = releasedTxt
		}
	}
	return v
}
