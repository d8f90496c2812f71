// Package pcf8591 drives the PCF8591 8-bit ADC/DAC used as the joystick front
// end. The chip returns the previous conversion on every read, so a burst
// read of all four inputs is five bytes with the first one discarded.
package pcf8591

import (
	"sensordash-go/errcode"

	"tinygo.org/x/drivers"
)

// Address with A2..A0 low.
const Address = 0x48

// Control byte bits.
const (
	ctrlDACEnable = 0x40
	ctrlAutoInc   = 0x04
	ctrlChanMask  = 0x03

	// DefaultControl: DAC on, four single-ended inputs, auto-increment from 0.
	DefaultControl = ctrlDACEnable | ctrlAutoInc
)

// Channels is the number of analog inputs.
const Channels = 4

type Device struct {
	bus     drivers.I2C
	Address uint16
	control byte
	dac     byte

	buf [Channels + 1]byte
	in  [Channels]uint8
}

var _ drivers.Sensor = (*Device)(nil)

func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address, control: DefaultControl}
}

// Configure writes the control byte, keeping the current DAC value.
func (d *Device) Configure() error {
	return d.bus.Tx(d.Address, []byte{d.control, d.dac}, nil)
}

// ReadAll converts all four inputs in one burst.
func (d *Device) ReadAll() ([Channels]uint8, error) {
	if err := d.bus.Tx(d.Address, []byte{d.control &^ ctrlChanMask}, d.buf[:]); err != nil {
		return d.in, err
	}
	copy(d.in[:], d.buf[1:])
	return d.in, nil
}

// Read converts a single input.
func (d *Device) Read(ch int) (uint8, error) {
	if ch < 0 || ch >= Channels {
		return 0, errcode.InvalidParams
	}
	ctrl := d.control&^(ctrlChanMask|ctrlAutoInc) | byte(ch)
	b := d.buf[:2]
	if err := d.bus.Tx(d.Address, []byte{ctrl}, b); err != nil {
		return 0, err
	}
	d.in[ch] = b[1]
	return b[1], nil
}

// WriteDAC sets the analog output level.
func (d *Device) WriteDAC(v uint8) error {
	if err := d.bus.Tx(d.Address, []byte{d.control, v}, nil); err != nil {
		return err
	}
	d.dac = v
	return nil
}

// Update implements drivers.Sensor; drivers.Voltage refreshes all inputs.
func (d *Device) Update(which drivers.Measurement) error {
	if which&drivers.Voltage == 0 {
		return nil
	}
	_, err := d.ReadAll()
	return err
}

// Channel returns the last converted value of input ch.
func (d *Device) Channel(ch int) uint8 {
	if ch < 0 || ch >= Channels {
		return 0
	}
	return d.in[ch]
}
