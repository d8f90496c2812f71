package bus

import (
	"sort"
	"testing"
	"time"
)

func next(t *testing.T, sub *Subscription) *Message {
	t.Helper()
	select {
	case m, ok := <-sub.Channel():
		if !ok {
			t.Fatal("channel closed")
		}
		return m
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("no message on %v", sub.Topic())
	}
	return nil
}

func quiet(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected %v %v", m.Topic, m.Payload)
	default:
	}
}

func topics(t *testing.T, sub *Subscription, n int) []string {
	t.Helper()
	var out []string
	for i := 0; i < n; i++ {
		m := next(t, sub)
		s := ""
		for j, tok := range m.Topic {
			if j > 0 {
				s += "/"
			}
			s += tok
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func TestPublishReachesExactSubscriber(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("dash")
	sub := c.Subscribe(Topic{"dash", "phase"})

	c.Publish(c.NewMessage(Topic{"dash", "phase"}, "sampling", false))
	m := next(t, sub)
	if m.Payload != "sampling" || m.Retained || m.TSms == 0 {
		t.Fatalf("message %+v", m)
	}
	c.Publish(c.NewMessage(Topic{"dash", "fault"}, "x", false))
	quiet(t, sub)
}

func TestRetainedDeliveredOnSubscribe(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("dash")
	c.Publish(c.NewMessage(Topic{"dash", "phase"}, "awaiting-entry", true))
	c.Publish(c.NewMessage(Topic{"dash", "phase"}, "dashboard-active", true))

	sub := b.NewConnection("mon").Subscribe(Topic{"dash", "phase"})
	if m := next(t, sub); m.Payload != "dashboard-active" {
		t.Fatalf("retained %v", m.Payload)
	}
	quiet(t, sub)
}

func TestNilPayloadClearsRetained(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("dash")
	c.Publish(c.NewMessage(Topic{"dash", "snapshot"}, 1, true))
	c.Publish(c.NewMessage(Topic{"dash", "snapshot"}, nil, true))
	quiet(t, c.Subscribe(Topic{"dash", "snapshot"}))
}

func TestSingleLevelWildcard(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("dash")
	sub := c.Subscribe(Topic{"dash", SingleLevel})

	for _, tp := range []Topic{{"dash", "phase"}, {"dash", "fault"}, {"dash", "a", "b"}, {"config", "dashboard"}} {
		c.Publish(c.NewMessage(tp, 0, false))
	}
	got := topics(t, sub, 2)
	if got[0] != "dash/fault" || got[1] != "dash/phase" {
		t.Fatalf("got %v", got)
	}
	quiet(t, sub)
}

func TestMultiLevelWildcard(t *testing.T) {
	b := NewBus(8)
	c := b.NewConnection("dash")
	c.Publish(c.NewMessage(Topic{"dash", "snapshot"}, 1, true))
	c.Publish(c.NewMessage(Topic{"dash", "actuators"}, 2, true))
	c.Publish(c.NewMessage(Topic{"config", "dashboard"}, 3, true))

	sub := c.Subscribe(Topic{"dash", MultiLevel})
	got := topics(t, sub, 2)
	if got[0] != "dash/actuators" || got[1] != "dash/snapshot" {
		t.Fatalf("retained %v", got)
	}

	c.Publish(c.NewMessage(Topic{"dash", "fault", "bus"}, "nack", false))
	if m := next(t, sub); m.Payload != "nack" {
		t.Fatalf("got %v", m.Payload)
	}

	all := b.NewConnection("all").Subscribe(Topic{MultiLevel})
	if n := len(topics(t, all, 3)); n != 3 {
		t.Fatalf("root wildcard saw %d", n)
	}
}

func TestDeliveryDropsOldest(t *testing.T) {
	b := NewBus(2)
	c := b.NewConnection("dash")
	sub := c.Subscribe(Topic{"dash", "fault"})
	for i := 1; i <= 4; i++ {
		c.Publish(c.NewMessage(Topic{"dash", "fault"}, i, false))
	}
	if a, z := next(t, sub).Payload, next(t, sub).Payload; a != 3 || z != 4 {
		t.Fatalf("kept %v %v", a, z)
	}
}

func TestUnsubscribeAndDisconnect(t *testing.T) {
	b := NewBus(4)
	c := b.NewConnection("mon")
	s1 := c.Subscribe(Topic{"dash", "phase"})
	s2 := c.Subscribe(Topic{"dash", "fault"})

	s1.Unsubscribe()
	if _, ok := <-s1.Channel(); ok {
		t.Fatal("unsubscribed channel open")
	}
	c.Unsubscribe(s1) // second call is a no-op

	c.Disconnect()
	if _, ok := <-s2.Channel(); ok {
		t.Fatal("disconnected channel open")
	}
	// Publishing after disconnect must not reach closed channels.
	p := b.NewConnection("dash")
	p.Publish(p.NewMessage(Topic{"dash", "fault"}, "late", false))
}
