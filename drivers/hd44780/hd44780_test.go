package hd44780

import (
	"errors"
	"strings"
	"testing"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/platform"
	"sensordash-go/x/timex"
)

func newRig(t *testing.T) (*Device, *platform.HD44780Model) {
	t.Helper()
	rs, e := platform.NewFakePin(6), platform.NewFakePin(7)
	var data [4]*platform.FakePin
	var p Pins
	for i := range data {
		data[i] = platform.NewFakePin(8 + i)
		p.Data[i] = data[i]
	}
	p.RS, p.E = rs, e
	m := platform.NewHD44780Model(rs, e, data)
	d := New(p, timex.NewFake())
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	return d, m
}

func TestConfigureEntersFourBitMode(t *testing.T) {
	_, m := newRig(t)
	if !m.FourBit() {
		t.Fatal("controller not in 4-bit mode")
	}
	if m.DisplayOn() {
		t.Fatal("init sequence should leave display off")
	}
	cmds := m.Commands()
	want := []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x0E, 0x01, 0x06, 0x08}
	if string(cmds) != string(want) {
		t.Fatalf("commands % x", cmds)
	}
}

func TestReconfigureResyncs(t *testing.T) {
	d, m := newRig(t)
	d.PutText("abc")
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if !m.FourBit() {
		t.Fatal("lost 4-bit mode after reconfigure")
	}
	d.Display(true)
	d.PutText("ok")
	if got := m.Line(1); !strings.HasPrefix(got, "ok") {
		t.Fatalf("line 1 %q", got)
	}
}

func TestPrintAtCursor(t *testing.T) {
	d, m := newRig(t)
	d.Display(true)
	if err := d.SetCursor(1, 1); err != nil {
		t.Fatal(err)
	}
	d.ShowCursor(true)
	d.PutText("HELLO")
	if got := m.Line(1); got != "HELLO           " {
		t.Fatalf("line 1 %q", got)
	}
	if !m.DisplayOn() || !m.CursorOn() || m.BlinkOn() {
		t.Fatal("display control bits")
	}

	if err := d.SetCursor(2, 5); err != nil {
		t.Fatal(err)
	}
	d.PutNumber(-42)
	if got := m.Line(2); got != "    -42         " {
		t.Fatalf("line 2 %q", got)
	}
}

func TestClearAndHome(t *testing.T) {
	d, m := newRig(t)
	d.PutText("XYZ")
	d.Clear()
	if strings.TrimSpace(m.Line(1)) != "" {
		t.Fatalf("not cleared: %q", m.Line(1))
	}
	d.PutChar('A')
	d.Home()
	d.PutChar('B')
	if got := m.Line(1)[:2]; got != "B " {
		t.Fatalf("home: %q", got)
	}
}

func TestBlinkAndDisplayOff(t *testing.T) {
	d, m := newRig(t)
	d.Blink(true)
	if !m.BlinkOn() || !m.CursorOn() {
		t.Fatal("blink")
	}
	d.Blink(false)
	if m.BlinkOn() || !m.CursorOn() {
		t.Fatal("blink off keeps cursor")
	}
	d.Display(false)
	if m.DisplayOn() {
		t.Fatal("display still on")
	}
}

func TestCreateChar(t *testing.T) {
	d, m := newRig(t)
	glyph := [8]byte{0x0E, 0x11, 0x11, 0x1F, 0x11, 0x11, 0x11, 0xFF}
	if err := d.CreateChar(3, glyph); err != nil {
		t.Fatal(err)
	}
	got := m.Glyph(3)
	glyph[7] = 0x1F
	if got != glyph {
		t.Fatalf("glyph % x", got)
	}
	d.PutChar('Q')
	if m.Line(1)[0] != 'Q' {
		t.Fatal("CreateChar must return to DDRAM")
	}
	if err := d.CreateChar(8, glyph); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("got %v", err)
	}
}

func TestSetCursorBounds(t *testing.T) {
	d, _ := newRig(t)
	for _, rc := range [][2]int{{0, 1}, {3, 1}, {1, 0}, {1, 17}} {
		if err := d.SetCursor(rc[0], rc[1]); err == nil {
			t.Errorf("SetCursor(%d,%d) accepted", rc[0], rc[1])
		}
	}
}
