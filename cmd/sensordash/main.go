//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"sensordash-go/bus"
	"sensordash-go/services/config"
	"sensordash-go/services/dashboard"
	"sensordash-go/services/hal/platform"
	"sensordash-go/services/heartbeat"
)

func printTopic(prefix string, t bus.Topic) {
	print(prefix, " ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		print(tok)
	}
	println()
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.Background()

	println("[main] bootstrapping bus …")
	b := bus.NewBus(4)
	dashConn := b.NewConnection("dash")
	uiConn := b.NewConnection("ui")

	mon := uiConn.Subscribe(bus.Topic{"dash", "phase"})
	go func() {
		for m := range mon.Channel() {
			printTopic("[monitor] <-", m.Topic)
			if s, ok := m.Payload.(string); ok {
				println("[monitor]   ", s)
			}
		}
	}()

	hb := &heartbeat.Service{Interval: 10 * time.Second, Log: true}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	cfg := config.Default()
	println("[main] claiming board …")
	res := platform.NewBoard(ctx, cfg)

	d, err := dashboard.Build(cfg, res, dashConn)
	if err != nil {
		println("[main] build failed:", err.Error())
		select {}
	}
	println("[main] dashboard running")
	for {
		if err := d.Run(ctx); err != nil {
			println("[main] dashboard stopped:", err.Error())
		}
		time.Sleep(time.Second)
	}
}
