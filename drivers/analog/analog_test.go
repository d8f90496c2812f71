package analog

import (
	"errors"
	"testing"

	"sensordash-go/errcode"
	"sensordash-go/services/hal/platform"
	"sensordash-go/types"
	"sensordash-go/x/timex"
)

func TestReadAllOrder(t *testing.T) {
	adc := &platform.FakeADC{BusyPolls: 3}
	adc.Set(4, 512)
	adc.Set(5, 300)
	adc.Set(6, 1023)
	s := New(adc, timex.NewFake(), Config{ThermistorCh: 4, LightCh: 5, PotCh: 6})
	r, err := s.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if r != (Reading{Thermistor: 512, Light: 300, Pot: 1023}) {
		t.Fatalf("got %+v", r)
	}
}

func TestStalledConversionTimesOut(t *testing.T) {
	adc := &platform.FakeADC{Stall: true}
	s := New(adc, timex.NewFake(), Config{})
	if _, err := s.ReadAll(); !errors.Is(err, errcode.Timeout) {
		t.Fatalf("want timeout, got %v", err)
	}
}

func TestBadChannel(t *testing.T) {
	s := New(&platform.FakeADC{}, timex.NewFake(), Config{PotCh: 9})
	if _, err := s.ReadAll(); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		raw  uint16
		want types.LightLevel
	}{
		{0, types.LightLow},
		{100, types.LightLow},
		{101, types.LightMedium},
		{420, types.LightMedium},
		{450, types.LightMedium},
		{451, types.LightHigh},
		{1023, types.LightHigh},
	}
	for _, c := range cases {
		if got := Classify(c.raw, 100, 450); got != c.want {
			t.Errorf("Classify(%d) = %v, want %v", c.raw, got, c.want)
		}
	}
}
