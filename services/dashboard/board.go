package dashboard

import (
	"sensordash-go/drivers/gpioout"
	"sensordash-go/drivers/hc194"
	"sensordash-go/drivers/hd44780"
	"sensordash-go/errcode"
	"sensordash-go/services/command"
)

// Board is the actuator side: LEDs d1..d4 on the shift-register bank, d5 and
// d6 on GPIOs, the relay and the LCD.
type Board struct {
	bank  *hc194.LEDBank
	reg   *hc194.Register
	d5    *gpioout.Output
	d6    *gpioout.Output
	relay *gpioout.Output
	lcd   *hd44780.Device
}

var _ command.Actuators = (*Board)(nil)

// Configure sets every actuator pin up and drives the baseline.
func (b *Board) Configure() error {
	if err := b.reg.Configure(); err != nil {
		return err
	}
	for _, o := range []*gpioout.Output{b.d5, b.d6, b.relay} {
		if err := o.Configure(); err != nil {
			return err
		}
	}
	return b.Reset()
}

// Reset forces the baseline: all LEDs off, relay off, display cleared.
func (b *Board) Reset() error {
	b.bank.Write(0)
	b.d5.Set(false)
	b.d6.Set(false)
	b.relay.Set(false)
	return b.LCDClear()
}

func (b *Board) SetLED(ch int, on bool) error {
	switch {
	case ch >= 1 && ch <= hc194.LEDCount:
		b.bank.Set(ch, on)
	case ch == 5:
		b.d5.Set(on)
	case ch == 6:
		b.d6.Set(on)
	default:
		return errcode.UnrecognizedCommand
	}
	return nil
}

func (b *Board) SetRelay(on bool) error {
	b.relay.Set(on)
	return nil
}

// LCDClear re-initializes the display, clears it and homes the cursor.
func (b *Board) LCDClear() error {
	if err := b.lcd.Configure(); err != nil {
		return err
	}
	b.lcd.Clear()
	b.lcd.Home()
	return nil
}

// LCDPrint re-initializes the display and writes text from row 1, column 1.
func (b *Board) LCDPrint(text string) error {
	if err := b.lcd.Configure(); err != nil {
		return err
	}
	b.lcd.Display(true)
	if err := b.lcd.SetCursor(1, 1); err != nil {
		return err
	}
	b.lcd.ShowCursor(true)
	if len(text) > hd44780.Cols {
		text = text[:hd44780.Cols]
	}
	b.lcd.PutText(text)
	return nil
}

// LEDPattern returns d1..d4 as bits 0..3 and d5, d6 as bits 4, 5.
func (b *Board) LEDPattern() uint8 {
	p := b.bank.Pattern()
	if b.d5.Get() {
		p |= 1 << 4
	}
	if b.d6.Get() {
		p |= 1 << 5
	}
	return p
}

func (b *Board) Relay() bool { return b.relay.Get() }
