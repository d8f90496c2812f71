// services/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sensordash-go/bus"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default invalid: %v", err)
	}
	if c.EnableCommand != "sensorDashboard" || c.Ultrasonic.Divisor != 52 || c.Refresh.Threshold != 4 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestNormalizeFillsZeros(t *testing.T) {
	var c Config
	c.Pins = Default().Pins
	c.Normalize()
	if err := c.Validate(); err != nil {
		t.Fatalf("normalized zero config invalid: %v", err)
	}
	if c.Serial.LineCapacity != 64 || c.Refresh.Period != 500*time.Millisecond {
		t.Fatalf("normalize: %+v", c.Serial)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"range":     func(c *Config) { c.Accel.RangeG = 16 },
		"bits":      func(c *Config) { c.Accel.ResolutionBits = 12 },
		"light":     func(c *Config) { c.Analog.LightLow = 500 },
		"pins":      func(c *Config) { c.Pins.Red = c.Pins.Green },
		"capacity":  func(c *Config) { c.Serial.LineCapacity = 4 },
		"divisor":   func(c *Config) { c.Ultrasonic.Divisor = 0 },
		"enable":    func(c *Config) { c.EnableCommand = "" },
		"exitdelay": func(c *Config) { c.ExitDelay = -time.Second },
	}
	for name, mut := range cases {
		c := Default()
		mut(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dash.yaml")
	doc := []byte(`
enable_command: openDash
refresh:
  period: 250ms
ultrasonic:
  divisor: 58
accel:
  range_g: 8
  resolution_bits: 14
pins:
  relay: 26
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.EnableCommand != "openDash" || c.Refresh.Period != 250*time.Millisecond {
		t.Fatalf("loaded: %q %v", c.EnableCommand, c.Refresh.Period)
	}
	if c.Ultrasonic.Divisor != 58 || c.Ultrasonic.Pulses != 8 {
		t.Fatalf("ultrasonic: %+v", c.Ultrasonic)
	}
	if c.Accel.RangeG != 8 || c.Pins.Relay != 26 || c.Pins.Green != 20 {
		t.Fatalf("accel/pins: %+v %+v", c.Accel, c.Pins)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	if _, err := Parse([]byte("accel:\n  range_g: 3\n")); err == nil {
		t.Fatal("expected error for range_g 3")
	}
	if _, err := Parse([]byte("serial: [")); err == nil {
		t.Fatal("expected YAML syntax error")
	}
}

func TestPublishRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")
	Publish(conn, Default())

	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})
	select {
	case m := <-sub.Channel():
		c, ok := m.Payload.(Config)
		if !ok || c.EnableCommand != "sensorDashboard" {
			t.Fatalf("payload %#v", m.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no retained config")
	}
}
