//go:build !rp2040 && !rp2350

// Command dashsim runs the dashboard against the simulated board. Stdin is
// the serial receive line and stdout the terminal; telemetry goes to stderr.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"sensordash-go/bus"
	"sensordash-go/services/config"
	"sensordash-go/services/dashboard"
	"sensordash-go/services/hal/platform"
	"sensordash-go/services/heartbeat"
	"sensordash-go/x/timex"
)

var (
	cfgPath  = flag.String("config", "", "YAML configuration file")
	distance = flag.Uint("distance", 30, "simulated ultrasonic distance in cm (0 = no echo)")
	joyX     = flag.Uint("joy-x", 128, "joystick X input")
	joyY     = flag.Uint("joy-y", 128, "joystick Y input")
	ntc      = flag.Uint("ntc", 512, "thermistor ADC reading")
	ldr      = flag.Uint("ldr", 300, "light sensor ADC reading")
	pot      = flag.Uint("pot", 600, "potentiometer ADC reading")
	buttons  = flag.Uint("buttons", 0, "pressed push-buttons, bit 0 = PB1")
	monitor  = flag.Bool("monitor", false, "log dash/# telemetry to stderr")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sim := platform.NewSim(cfg, timex.System{})
	sim.USCI.EchoTo(os.Stdout)
	sim.SetEcho(uint32(*distance) * cfg.Ultrasonic.Divisor)
	sim.SetJoystick(uint8(*joyX), uint8(*joyY))
	sim.SetAnalog(uint16(*ntc), uint16(*ldr), uint16(*pot))
	sim.PressButtons(uint8(*buttons))

	b := bus.NewBus(16)
	if *monitor {
		sub := b.NewConnection("monitor").Subscribe(bus.Topic{"dash", "#"})
		go func() {
			for m := range sub.Channel() {
				log.Printf("[monitor] %s %+v", strings.Join(m.Topic, "/"), m.Payload)
			}
		}()
	}

	hb := &heartbeat.Service{Interval: heartbeat.DefaultInterval}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	d, err := dashboard.Build(cfg, sim.Resources, b.NewConnection("dash"))
	if err != nil {
		log.Fatalf("dashboard: %v", err)
	}

	go func() {
		buf := make([]byte, 64)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				sim.USCI.Inject(buf[:n])
			}
			if err != nil {
				stop()
				return
			}
		}
	}()

	if err := d.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("dashboard: %v", err)
	}
	s := d.Session()
	log.Printf("exit: %d entries, %d commands, %d faults, %d bytes lost",
		s.Entries, s.Commands, s.Faults, sim.USCI.Lost())
}
