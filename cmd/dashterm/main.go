//go:build !rp2040 && !rp2350

// Command dashterm connects the local terminal to a dashboard board's serial
// port.
package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"sensordash-go/services/config"

	"github.com/goburrow/serial"
)

var (
	port    = flag.String("port", "/dev/ttyUSB0", "serial port of the board")
	cfgPath = flag.String("config", "", "YAML configuration file (baud, enable command)")
	enter   = flag.Bool("enter", false, "send the enable command on connect")
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

	p, err := serial.Open(&serial.Config{
		Address:  *port,
		BaudRate: int(cfg.Serial.Baud),
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("open %s: %v", *port, err)
	}
	defer p.Close()
	log.Printf("connected to %s at %d baud", *port, cfg.Serial.Baud)

	if *enter {
		if _, err := io.WriteString(p, cfg.EnableCommand+"\r"); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := p.Read(buf)
			if n > 0 {
				_, _ = os.Stdout.Write(buf[:n])
			}
			if err != nil && !errors.Is(err, serial.ErrTimeout) {
				log.Fatalf("read: %v", err)
			}
		}
	}()

	// The board finalizes lines on CR; a following LF is swallowed.
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		if _, err := io.WriteString(p, in.Text()+"\r\n"); err != nil {
			log.Fatalf("write: %v", err)
		}
	}
	if err := in.Err(); err != nil {
		log.Printf("stdin: %v", err)
	}
}
