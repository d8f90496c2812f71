// Package heartbeat publishes a periodic liveness beat on the bus.
package heartbeat

import (
	"context"
	"time"

	"sensordash-go/bus"
)

var (
	TopicBeat   = bus.Topic{"dash", "heartbeat"}
	topicConfig = bus.Topic{"config", "heartbeat"}
)

const DefaultInterval = 5 * time.Second

// Beat is the heartbeat payload.
type Beat struct {
	Seq    uint32
	Uptime time.Duration
}

// Service beats every Interval. A time.Duration published on
// config/heartbeat changes the interval; zero or negative values are ignored.
type Service struct {
	Interval time.Duration
	// Log prints each beat when set.
	Log bool
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, ready chan<- struct{}) {
	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	close(ready)

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	start := time.Now()
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			if s.Log {
				println("[heartbeat] stopping")
			}
			return
		case t := <-tick.C:
			seq++
			b := Beat{Seq: seq, Uptime: t.Sub(start)}
			conn.Publish(conn.NewMessage(TopicBeat, b, false))
			if s.Log {
				println("[heartbeat]", seq, b.Uptime.String())
			}
		case msg := <-cfgSub.Channel():
			if iv, ok := msg.Payload.(time.Duration); ok && iv > 0 {
				tick.Reset(iv)
				if s.Log {
					println("[heartbeat] interval", iv.String())
				}
			}
		}
	}
}

// Start runs the service until ctx ends. It returns once the config
// subscription is in place.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	ready := make(chan struct{})
	go s.serviceLoop(ctx, conn, ready)
	<-ready
	return nil
}
