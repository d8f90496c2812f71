// Package gpioout drives a discrete on/off output: the d5/d6 LEDs and the
// relay.
package gpioout

import (
	"sensordash-go/errcode"
	"sensordash-go/services/hal/halcore"
)

type Role int

const (
	RoleLED Role = iota
	RoleSwitch
)

func (r Role) String() string {
	if r == RoleSwitch {
		return "switch"
	}
	return "led"
}

type Params struct {
	Name      string
	ActiveLow bool
	Initial   bool
}

type Output struct {
	pin       halcore.GPIOPin
	role      Role
	name      string
	activeLow bool
	initial   bool
}

func New(role Role, pin halcore.GPIOPin, p Params) *Output {
	o := &Output{pin: pin, role: role, name: p.Name, activeLow: p.ActiveLow, initial: p.Initial}
	if o.name == "" && pin != nil {
		o.name = role.String()
	}
	return o
}

func (o *Output) Name() string { return o.name }
func (o *Output) Role() Role   { return o.role }

// Configure drives the pin to its initial logical state.
func (o *Output) Configure() error {
	if o.pin == nil {
		return errcode.InvalidParams
	}
	level := o.initial
	if o.activeLow {
		level = !level
	}
	return o.pin.ConfigureOutput(level)
}

// Set drives the logical state.
func (o *Output) Set(on bool) {
	level := on
	if o.activeLow {
		level = !level
	}
	o.pin.Set(level)
}

// Get reads back the logical state.
func (o *Output) Get() bool {
	level := o.pin.Get()
	if o.activeLow {
		level = !level
	}
	return level
}

func (o *Output) Toggle() { o.Set(!o.Get()) }
