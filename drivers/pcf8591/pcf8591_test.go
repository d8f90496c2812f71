package pcf8591

import (
	"errors"
	"testing"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/platform"

	"tinygo.org/x/drivers"
)

type directBus struct {
	s    platform.Slave
	fail error
}

func (b *directBus) Tx(addr uint16, w, r []byte) error {
	if b.fail != nil {
		return b.fail
	}
	if len(w) > 0 {
		b.s.Write(w)
	}
	for i := range r {
		r[i] = b.s.NextByte()
	}
	return nil
}

func TestConfigureWritesControl(t *testing.T) {
	m := &platform.PCF8591Model{}
	d := New(&directBus{s: m})
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	if m.Control() != 0x44 {
		t.Fatalf("control %#x", m.Control())
	}
}

func TestReadAllDiscardsStaleByte(t *testing.T) {
	m := &platform.PCF8591Model{}
	for ch, v := range []uint8{10, 20, 30, 40} {
		m.SetInput(ch, v)
	}
	d := New(&directBus{s: m})
	in, err := d.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if in != [4]uint8{10, 20, 30, 40} {
		t.Fatalf("got %v", in)
	}
	if d.Channel(1) != 20 || d.Channel(9) != 0 {
		t.Fatal("Channel accessor")
	}
}

func TestReadSingleChannel(t *testing.T) {
	m := &platform.PCF8591Model{}
	m.SetInput(2, 0x7F)
	d := New(&directBus{s: m})
	v, err := d.Read(2)
	if err != nil || v != 0x7F {
		t.Fatalf("got %d, %v", v, err)
	}
	if _, err := d.Read(4); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("want invalid_params, got %v", err)
	}
}

func TestWriteDACAndUpdate(t *testing.T) {
	m := &platform.PCF8591Model{}
	m.SetInput(0, 200)
	bus := &directBus{s: m}
	d := New(bus)
	if err := d.WriteDAC(0x80); err != nil || m.DAC() != 0x80 {
		t.Fatalf("dac %#x err %v", m.DAC(), err)
	}
	if err := d.Update(drivers.Voltage); err != nil || d.Channel(0) != 200 {
		t.Fatalf("update: %v ch0=%d", err, d.Channel(0))
	}
	bus.fail = errcode.Timeout
	if err := d.Update(drivers.Acceleration); err != nil {
		t.Fatal("unrelated measurement should be a no-op")
	}
	if err := d.Update(drivers.Voltage); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("got %v", err)
	}
}
