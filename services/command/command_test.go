package command

import (
	"errors"
	"strings"
	"testing"

	"sensordash-go/errcode"
	"sensordash-go/types"
)

func TestParse(t *testing.T) {
	cases := []struct {
		line string
		want Command
	}{
		{"led d3 on", Command{Kind: LED, Channel: 3, On: true}},
		{"led d1 off", Command{Kind: LED, Channel: 1}},
		{"led d6 on", Command{Kind: LED, Channel: 6, On: true}},
		{"led d9 on", Command{}},
		{"led d0 on", Command{}},
		{"led d6", Command{}},
		{"led d6 onx", Command{}},
		{"led d6 on extra", Command{}},
		{"led dd on", Command{}},
		{"led d1 \"on", Command{}},
		{"led d1 on # junk", Command{}},
		{"led 'd1' on", Command{}},
		{"led  d1   on", Command{}},
		{"led d1 on ", Command{}},
		{"lcd clear", Command{Kind: LCD, LCD: LCDClear}},
		{"lcd clearx", Command{}},
		{"lcd print HELLO", Command{Kind: LCD, LCD: LCDPrint, Text: "HELLO"}},
		{"lcd print", Command{Kind: LCD, LCD: LCDPrint}},
		{"lcd print  two  spaces", Command{Kind: LCD, LCD: LCDPrint, Text: " two  spaces"}},
		{"lcd print 0123456789abcdefXYZ", Command{Kind: LCD, LCD: LCDPrint, Text: "0123456789abcdef"}},
		{"lcd print hi\r", Command{Kind: LCD, LCD: LCDPrint, Text: "hi"}},
		{"lcd printer", Command{}},
		{"relay on", Command{Kind: Relay, On: true}},
		{"relay off", Command{Kind: Relay}},
		{"rel on", Command{}},
		{"relay", Command{}},
		{"relay on #x", Command{}},
		{"relay\ton", Command{}},
		{"relay \"on\"", Command{}},
		{"exi", Command{Kind: Exit}},
		{"exit now please", Command{Kind: Exit}},
		{"foo bar", Command{}},
		{"", Command{}},
		{"le", Command{}},
		{"LED d1 on", Command{}},
	}
	for _, c := range cases {
		if got := Parse(c.line); got != c.want {
			t.Errorf("Parse(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

type fakeActuators struct {
	leds    [types.LEDCount]bool
	relay   bool
	lcd     string
	cleared int
	fail    error
	calls   []string
}

func (f *fakeActuators) SetLED(ch int, on bool) error {
	f.calls = append(f.calls, "led")
	if f.fail != nil {
		return f.fail
	}
	f.leds[ch-1] = on
	return nil
}

func (f *fakeActuators) SetRelay(on bool) error {
	f.calls = append(f.calls, "relay")
	if f.fail != nil {
		return f.fail
	}
	f.relay = on
	return nil
}

func (f *fakeActuators) LCDClear() error {
	f.calls = append(f.calls, "clear")
	if f.fail != nil {
		return f.fail
	}
	f.lcd = ""
	f.cleared++
	return nil
}

func (f *fakeActuators) LCDPrint(s string) error {
	f.calls = append(f.calls, "print")
	if f.fail != nil {
		return f.fail
	}
	f.lcd = s
	return nil
}

func TestDispatchUpdatesState(t *testing.T) {
	act := &fakeActuators{}
	var st types.ActuatorState
	for _, line := range []string{"led d2 on", "led d5 on", "relay on", "lcd print HELLO"} {
		if err := Dispatch(Parse(line), act, &st); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	if !st.LEDs[1] || !st.LEDs[4] || !st.Relay || st.LCDText != "HELLO" {
		t.Fatalf("state %+v", st)
	}
	if act.leds != st.LEDs || act.relay != st.Relay || act.lcd != st.LCDText {
		t.Fatal("hardware and state diverged")
	}
	if err := Dispatch(Parse("lcd clear"), act, &st); err != nil || st.LCDText != "" {
		t.Fatalf("clear: %v %+v", err, st)
	}
}

func TestDispatchUnrecognizedLeavesState(t *testing.T) {
	act := &fakeActuators{}
	st := types.ActuatorState{Relay: true}
	before := st
	err := Dispatch(Parse("led d9 on"), act, &st)
	if !errors.Is(err, errcode.UnrecognizedCommand) {
		t.Fatalf("got %v", err)
	}
	if st != before || len(act.calls) != 0 {
		t.Fatal("unrecognized command touched state or hardware")
	}
	if err := Dispatch(Command{Kind: LED, Channel: 7}, act, &st); !errors.Is(err, errcode.UnrecognizedCommand) {
		t.Fatalf("channel 7: %v", err)
	}
}

func TestDispatchFailureLeavesState(t *testing.T) {
	act := &fakeActuators{fail: errcode.Timeout}
	var st types.ActuatorState
	if err := Dispatch(Parse("relay on"), act, &st); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("got %v", err)
	}
	if st.Relay {
		t.Fatal("state changed after failed command")
	}
}

func TestDispatchExitIsNoop(t *testing.T) {
	act := &fakeActuators{}
	var st types.ActuatorState
	if err := Dispatch(Parse("exit"), act, &st); err != nil || len(act.calls) != 0 {
		t.Fatalf("err=%v calls=%v", err, act.calls)
	}
}

func TestKindString(t *testing.T) {
	got := []string{Unrecognized.String(), LED.String(), LCD.String(), Relay.String(), Exit.String()}
	if strings.Join(got, ",") != "unrecognized,led,lcd,relay,exit" {
		t.Fatal(got)
	}
}
