// Package platform binds the board's hardware to halcore capabilities.
// rp2040 builds use machine peripherals; every other build gets a simulated
// board with register-level slave models.
package platform

import (
	"sync"
	"time"

	"sensordash-go/services/hal/halcore"
	"sensordash-go/x/timex"

	"tinygo.org/x/drivers"
)

// Pins groups every GPIO the dashboard drives, by role.
type Pins struct {
	Trigger halcore.GPIOPin
	Echo    halcore.IRQPin

	LCDRS   halcore.GPIOPin
	LCDE    halcore.GPIOPin
	LCDData [4]halcore.GPIOPin // D4..D7

	// Mode selects shared by both 74HC194 registers.
	SRMode0 halcore.GPIOPin
	SRMode1 halcore.GPIOPin

	LEDClock  halcore.GPIOPin
	LEDSerial halcore.GPIOPin

	ButtonClock halcore.GPIOPin
	ButtonQD    halcore.GPIOPin
	PB5         halcore.GPIOPin // active-low
	PB6         halcore.GPIOPin // active-low

	Green halcore.GPIOPin // d5
	Red   halcore.GPIOPin // d6
	Relay halcore.GPIOPin
}

// Resources is everything the dashboard needs from the board.
// Exactly one of Bus and I2C is set: Bus when the bus transport state machine
// runs in software over the shared vector, I2C when the platform's own
// controller does the byte transfers.
type Resources struct {
	Clock  timex.Clock
	Vector *halcore.Vector
	UART   halcore.UARTTx

	Bus     halcore.BusController
	I2C     drivers.I2C
	FreeBus func()

	ADC     halcore.ADC
	Capture halcore.CaptureTimer
	Refresh halcore.Ticker

	Pins Pins
}

// GoTicker implements halcore.Ticker with a goroutine and time.Ticker.
type GoTicker struct {
	mu   sync.Mutex
	quit chan struct{}
}

func (t *GoTicker) Start(period time.Duration, isr func()) {
	t.Stop()
	if period <= 0 || isr == nil {
		return
	}
	q := make(chan struct{})
	t.mu.Lock()
	t.quit = q
	t.mu.Unlock()
	go func() {
		tk := time.NewTicker(period)
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				isr()
			case <-q:
				return
			}
		}
	}()
}

func (t *GoTicker) Stop() {
	t.mu.Lock()
	if t.quit != nil {
		close(t.quit)
		t.quit = nil
	}
	t.mu.Unlock()
}
