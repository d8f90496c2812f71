// Package command turns terminal lines into actuator commands.
//
//	led d<1..6> on|off
//	lcd clear
//	lcd print <up to 16 chars>
//	relay on|off
//	exi...
//
// Dispatch is on the first three bytes of the line.
package command

import (
	"strings"

	"sensordash-go/errcode"
	"sensordash-go/types"
	"sensordash-go/x/mathx"

	"github.com/google/shlex"
)

// Diagnostic is shown for any line that is not a valid command.
const Diagnostic = "Wrong Command. Follow Format"

// PayloadWidth is the LCD print payload limit.
const PayloadWidth = 16

type Kind uint8

const (
	Unrecognized Kind = iota
	LED
	LCD
	Relay
	Exit
)

func (k Kind) String() string {
	switch k {
	case LED:
		return "led"
	case LCD:
		return "lcd"
	case Relay:
		return "relay"
	case Exit:
		return "exit"
	default:
		return "unrecognized"
	}
}

type LCDAction uint8

const (
	LCDClear LCDAction = iota
	LCDPrint
)

// Command is one parsed line.
type Command struct {
	Kind    Kind
	Channel int  // LED: 1..6
	On      bool // LED, Relay
	LCD     LCDAction
	Text    string // LCDPrint payload
}

const printPrefix = "lcd print"

// Parse classifies line. Anything that does not match a rule exactly is
// Unrecognized.
func Parse(line string) Command {
	if len(line) < 3 {
		return Command{}
	}
	switch line[:3] {
	case "exi":
		return Command{Kind: Exit}
	case "led":
		return parseLED(line)
	case "lcd":
		return parseLCD(line)
	case "rel":
		return parseRelay(line)
	}
	return Command{}
}

// fields splits line into words, accepting only the canonical form: single
// spaces, no quoting, no comments.
func fields(line string) ([]string, bool) {
	tok, err := shlex.Split(line)
	if err != nil || strings.Join(tok, " ") != line {
		return nil, false
	}
	return tok, true
}

func parseLED(line string) Command {
	tok, ok := fields(line)
	if !ok || len(tok) != 3 || tok[0] != "led" {
		return Command{}
	}
	ch := tok[1]
	if len(ch) != 2 || ch[0] != 'd' || !mathx.Between(ch[1], '1', '0'+types.LEDCount) {
		return Command{}
	}
	on, ok := onOff(tok[2])
	if !ok {
		return Command{}
	}
	return Command{Kind: LED, Channel: int(ch[1] - '0'), On: on}
}

func parseLCD(line string) Command {
	if line == "lcd clear" {
		return Command{Kind: LCD, LCD: LCDClear}
	}
	rest, ok := strings.CutPrefix(line, printPrefix)
	if !ok || (rest != "" && rest[0] != ' ') {
		return Command{}
	}
	if rest != "" {
		rest = rest[1:]
	}
	rest = strings.TrimRight(rest, "\r\n")
	rest = rest[:mathx.Min(len(rest), PayloadWidth)]
	return Command{Kind: LCD, LCD: LCDPrint, Text: rest}
}

func parseRelay(line string) Command {
	tok, ok := fields(line)
	if !ok || len(tok) != 2 || tok[0] != "relay" {
		return Command{}
	}
	on, ok := onOff(tok[1])
	if !ok {
		return Command{}
	}
	return Command{Kind: Relay, On: on}
}

func onOff(s string) (on, ok bool) {
	switch s {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

// Actuators is the hardware a command can change.
type Actuators interface {
	SetLED(ch int, on bool) error
	SetRelay(on bool) error
	LCDClear() error
	LCDPrint(text string) error
}

// Dispatch applies cmd and records it in st when the hardware accepted it.
// Exit is left to the caller.
func Dispatch(cmd Command, act Actuators, st *types.ActuatorState) error {
	switch cmd.Kind {
	case LED:
		if cmd.Channel < 1 || cmd.Channel > types.LEDCount {
			return errcode.UnrecognizedCommand
		}
		if err := act.SetLED(cmd.Channel, cmd.On); err != nil {
			return err
		}
		st.LEDs[cmd.Channel-1] = cmd.On
	case Relay:
		if err := act.SetRelay(cmd.On); err != nil {
			return err
		}
		st.Relay = cmd.On
	case LCD:
		if cmd.LCD == LCDClear {
			if err := act.LCDClear(); err != nil {
				return err
			}
			st.LCDText = ""
			return nil
		}
		if err := act.LCDPrint(cmd.Text); err != nil {
			return err
		}
		st.LCDText = cmd.Text
	case Exit:
	default:
		return errcode.UnrecognizedCommand
	}
	return nil
}
