// Package mma8451 drives the MMA8451Q 3-axis accelerometer over I2C.
//
//	d := mma8451.New(bus, clock)
//	err := d.Configure(mma8451.Config{Range: mma8451.Range4G})
//	x, y, z, err := d.ReadAcceleration() // micro-g
//
// Range and resolution changes are applied in standby and the previous
// active state is restored afterwards.
package mma8451

import (
	"time"

	"sensordash-go/errcode"
	"sensordash-go/x/mathx"
	"sensordash-go/x/timex"

	"tinygo.org/x/drivers"
)

// Address with SA0 high.
const Address = 0x1D

const deviceID = 0x1A

// Registers.
const (
	regStatus   = 0x00
	regOutXMSB  = 0x01
	regWhoAmI   = 0x0D
	regXYZCfg   = 0x0E
	regPulseCfg = 0x21
	regPulseTHZ = 0x25
	regPulseTML = 0x26
	regPulseLTY = 0x27
	regPulseWIN = 0x28
	regCtrl1    = 0x2A
	regCtrl2    = 0x2B
	regCtrl3    = 0x2C
	regCtrl4    = 0x2D
	regCtrl5    = 0x2E
)

// Control bits.
const (
	ctrl1Active   = 0x01
	ctrl1FastRead = 0x02
	ctrl2Reset    = 0x40
	ctrl2SelfTest = 0x80
)

// Range is the full-scale selection written to XYZ_DATA_CFG.
type Range uint8

const (
	Range2G Range = iota
	Range4G
	Range8G
)

// RangeFromG maps 2, 4 or 8 to a Range.
func RangeFromG(g int) (Range, bool) {
	switch g {
	case 2:
		return Range2G, true
	case 4:
		return Range4G, true
	case 8:
		return Range8G, true
	}
	return 0, false
}

// Resolution selects 8-bit fast reads or full 14-bit samples.
type Resolution uint8

const (
	Resolution8  Resolution = 8
	Resolution14 Resolution = 14
)

// Self-test output change windows, 14-bit counts at 4 g.
var selfTestWindow = [3][2]int16{
	{150, 210},
	{225, 285},
	{1650, 1710},
}

var (
	ErrDeviceID     = &errcode.E{C: errcode.Error, Op: "mma8451", Msg: "unexpected WHO_AM_I"}
	ErrResetTimeout = &errcode.E{C: errcode.Timeout, Op: "mma8451", Msg: "reset"}
	ErrSelfTest     = &errcode.E{C: errcode.SelfTestFailed, Op: "mma8451"}
)

type Config struct {
	Address    uint16
	Range      Range
	Resolution Resolution
	// ResetTimeout bounds the wait for the RST bit to clear. Default 10 ms.
	ResetTimeout time.Duration
	// Settle is the delay after activation before a self-test sample.
	// Default 5 ms.
	Settle time.Duration
}

type Device struct {
	bus     drivers.I2C
	clock   timex.Clock
	Address uint16

	cfg Config
	rng Range
	res Resolution

	buf [7]byte
	raw [3]int16
	ug  [3]int32
}

var _ drivers.Sensor = (*Device)(nil)

// New creates the device object. It does not touch the bus.
func New(bus drivers.I2C, clock timex.Clock) *Device {
	return &Device{bus: bus, clock: clock, Address: Address, res: Resolution8}
}

// Configure resets the device, applies range and resolution, then activates
// it.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = Resolution8
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Millisecond
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 5 * time.Millisecond
	}
	d.cfg = cfg

	if !d.Connected() {
		return ErrDeviceID
	}
	if err := d.Standby(); err != nil {
		return err
	}
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.SetRange(cfg.Range); err != nil {
		return err
	}
	if err := d.SetResolution(cfg.Resolution); err != nil {
		return err
	}
	return d.Activate()
}

// Connected reports whether WHO_AM_I answers with the MMA8451Q id.
func (d *Device) Connected() bool {
	v, err := d.readReg(regWhoAmI)
	return err == nil && v == deviceID
}

// Reset issues a software reset and waits for it to complete. The device is
// in standby with default registers afterwards.
func (d *Device) Reset() error {
	if err := d.writeReg(regCtrl2, ctrl2Reset); err != nil {
		return err
	}
	var busErr error
	err := timex.Await(d.clock, d.cfg.ResetTimeout, time.Millisecond, func() bool {
		v, err := d.readReg(regCtrl2)
		if err != nil {
			busErr = err
			return true
		}
		return v&ctrl2Reset == 0
	})
	if busErr != nil {
		return busErr
	}
	if err != nil {
		return ErrResetTimeout
	}
	d.rng, d.res = Range2G, Resolution14
	return nil
}

func (d *Device) Standby() error {
	return d.updateReg(regCtrl1, ctrl1Active, 0)
}

func (d *Device) Activate() error {
	return d.updateReg(regCtrl1, ctrl1Active, ctrl1Active)
}

// SetRange selects 2, 4 or 8 g full scale.
func (d *Device) SetRange(r Range) error {
	if r > Range8G {
		return errcode.InvalidParams
	}
	err := d.inStandby(func() error {
		return d.updateReg(regXYZCfg, 0x03, byte(r))
	})
	if err == nil {
		d.rng = r
	}
	return err
}

func (d *Device) Range() Range { return d.rng }

// SetResolution selects 8-bit fast reads or 14-bit samples.
func (d *Device) SetResolution(res Resolution) error {
	var fr byte
	switch res {
	case Resolution8:
		fr = ctrl1FastRead
	case Resolution14:
	default:
		return errcode.InvalidParams
	}
	err := d.inStandby(func() error {
		return d.updateReg(regCtrl1, ctrl1FastRead, fr)
	})
	if err == nil {
		d.res = res
	}
	return err
}

func (d *Device) Resolution() Resolution { return d.res }

// inStandby runs fn with the device in standby and restores ACTIVE after.
func (d *Device) inStandby(fn func() error) error {
	c1, err := d.readReg(regCtrl1)
	if err != nil {
		return err
	}
	if c1&ctrl1Active != 0 {
		if err := d.writeReg(regCtrl1, c1&^ctrl1Active); err != nil {
			return err
		}
	}
	if err := fn(); err != nil {
		return err
	}
	if c1&ctrl1Active != 0 {
		return d.updateReg(regCtrl1, ctrl1Active, ctrl1Active)
	}
	return nil
}

// ReadRaw reads all three axes as signed counts at the current resolution.
func (d *Device) ReadRaw() (x, y, z int16, err error) {
	if d.res == Resolution8 {
		b := d.buf[:3]
		if err = d.bus.Tx(d.Address, []byte{regOutXMSB}, b); err != nil {
			return
		}
		d.raw = [3]int16{int16(int8(b[0])), int16(int8(b[1])), int16(int8(b[2]))}
	} else {
		b := d.buf[:6]
		if err = d.bus.Tx(d.Address, []byte{regOutXMSB}, b); err != nil {
			return
		}
		for i := range d.raw {
			// Samples are left-justified; arithmetic shift keeps the sign.
			d.raw[i] = int16(uint16(b[2*i])<<8|uint16(b[2*i+1])) >> 2
		}
	}
	return d.raw[0], d.raw[1], d.raw[2], nil
}

// countsPerG is the sensitivity at the current range and resolution.
func (d *Device) countsPerG() int32 {
	if d.res == Resolution8 {
		return 64 >> d.rng
	}
	return 4096 >> d.rng
}

// ReadAcceleration reads all axes in micro-g.
func (d *Device) ReadAcceleration() (x, y, z int32, err error) {
	if _, _, _, err = d.ReadRaw(); err != nil {
		return
	}
	cpg := d.countsPerG()
	for i, r := range d.raw {
		d.ug[i] = int32(int64(r) * 1_000_000 / int64(cpg))
	}
	return d.ug[0], d.ug[1], d.ug[2], nil
}

// Update implements drivers.Sensor.
func (d *Device) Update(which drivers.Measurement) error {
	if which&drivers.Acceleration == 0 {
		return nil
	}
	_, _, _, err := d.ReadAcceleration()
	return err
}

// Acceleration returns the last reading in micro-g.
func (d *Device) Acceleration() (x, y, z int32) { return d.ug[0], d.ug[1], d.ug[2] }

// MilliMetresPerSec2 converts micro-g to mm/s^2 with g = 9.8 m/s^2.
func MilliMetresPerSec2(ug int32) int32 {
	return mathx.DivRound(ug*98, 10000)
}

// SelfTest measures the output change with the self-test actuator enabled at
// 14-bit, 4 g and checks it against the reference windows. The previous range
// and resolution are restored.
func (d *Device) SelfTest() error {
	prevRange, prevRes := d.rng, d.res
	defer func() {
		_ = d.inStandby(func() error { return d.updateReg(regCtrl2, ctrl2SelfTest, 0) })
		_ = d.SetRange(prevRange)
		_ = d.SetResolution(prevRes)
	}()

	if err := d.SetRange(Range4G); err != nil {
		return err
	}
	if err := d.SetResolution(Resolution14); err != nil {
		return err
	}
	if err := d.Activate(); err != nil {
		return err
	}
	d.clock.Sleep(d.cfg.Settle)
	bx, by, bz, err := d.ReadRaw()
	if err != nil {
		return err
	}
	err = d.inStandby(func() error { return d.updateReg(regCtrl2, ctrl2SelfTest, ctrl2SelfTest) })
	if err != nil {
		return err
	}
	d.clock.Sleep(d.cfg.Settle)
	sx, sy, sz, err := d.ReadRaw()
	if err != nil {
		return err
	}
	delta := [3]int16{sx - bx, sy - by, sz - bz}
	for i, v := range delta {
		if !mathx.Between(v, selfTestWindow[i][0], selfTestWindow[i][1]) {
			return ErrSelfTest
		}
	}
	return nil
}

// EnableTap routes single-tap detection on Z to INT1 (active high).
func (d *Device) EnableTap() error {
	seq := [][2]byte{
		{regPulseCfg, 0x20},
		{regPulseTHZ, 0x20},
		{regPulseTML, 0xA0},
		{regPulseLTY, 0xA0},
		{regPulseWIN, 0x48},
		{regCtrl4, 0x08},
		{regCtrl5, 0x08},
		{regCtrl3, 0x02},
	}
	return d.inStandby(func() error {
		for _, rv := range seq {
			if err := d.writeReg(rv[0], rv[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Device) DisableTap() error {
	return d.inStandby(func() error {
		if err := d.writeReg(regPulseCfg, 0); err != nil {
			return err
		}
		return d.writeReg(regCtrl4, 0)
	})
}

// Status returns the data-ready status register.
func (d *Device) Status() (byte, error) { return d.readReg(regStatus) }

func (d *Device) readReg(reg byte) (byte, error) {
	b := d.buf[:1]
	if err := d.bus.Tx(d.Address, []byte{reg}, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Device) writeReg(reg, v byte) error {
	return d.bus.Tx(d.Address, []byte{reg, v}, nil)
}

func (d *Device) updateReg(reg, mask, v byte) error {
	cur, err := d.readReg(reg)
	if err != nil {
		return err
	}
	return d.writeReg(reg, cur&^mask|v&mask)
}
