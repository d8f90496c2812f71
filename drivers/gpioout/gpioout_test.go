package gpioout

import (
	"testing"

	"sensordash-go/services/hal/platform"
)

func TestActiveHigh(t *testing.T) {
	p := platform.NewFakePin(20)
	o := New(RoleLED, p, Params{Name: "d5"})
	if err := o.Configure(); err != nil {
		t.Fatal(err)
	}
	if !p.IsOutput() || p.Get() {
		t.Fatal("expected output driven low")
	}
	o.Set(true)
	if !p.Get() || !o.Get() {
		t.Fatal("Set(true)")
	}
	o.Toggle()
	if p.Get() || o.Get() {
		t.Fatal("Toggle")
	}
	if o.Name() != "d5" || o.Role() != RoleLED {
		t.Fatal("identity")
	}
}

func TestActiveLowInitialOn(t *testing.T) {
	p := platform.NewFakePin(22)
	o := New(RoleSwitch, p, Params{ActiveLow: true, Initial: true})
	if err := o.Configure(); err != nil {
		t.Fatal(err)
	}
	if p.Get() || !o.Get() {
		t.Fatal("active-low initial on should drive the pin low")
	}
	o.Set(false)
	if !p.Get() {
		t.Fatal("active-low off should drive the pin high")
	}
	if o.Name() != "switch" {
		t.Fatalf("default name %q", o.Name())
	}
}

func TestNilPin(t *testing.T) {
	if err := New(RoleLED, nil, Params{}).Configure(); err == nil {
		t.Fatal("nil pin accepted")
	}
}
