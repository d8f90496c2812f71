package timex

import (
	"errors"
	"testing"
	"time"

	"sensordash-go/errcode"
)

func TestAwaitImmediate(t *testing.T) {
	c := NewFake()
	if err := Await(c, time.Millisecond, 0, func() bool { return true }); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if c.Slept() != 0 {
		t.Fatalf("slept %v for a true condition", c.Slept())
	}
}

func TestAwaitBecomesTrue(t *testing.T) {
	c := NewFake()
	n := 0
	err := Await(c, 10*time.Millisecond, time.Millisecond, func() bool {
		n++
		return n == 4
	})
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got := c.Slept(); got != 3*time.Millisecond {
		t.Fatalf("slept %v", got)
	}
}

func TestAwaitTimeout(t *testing.T) {
	c := NewFake()
	err := Await(c, 5*time.Millisecond, time.Millisecond, func() bool { return false })
	if !errors.Is(err, errcode.Timeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if got := c.Slept(); got < 5*time.Millisecond {
		t.Fatalf("returned early after %v", got)
	}
}

func TestFakeHooks(t *testing.T) {
	c := NewFake()
	var seen []time.Duration
	start := c.Now()
	c.OnAdvance(func(now time.Time) { seen = append(seen, now.Sub(start)) })
	c.Sleep(time.Second)
	c.Advance(2 * time.Second)
	if len(seen) != 2 || seen[0] != time.Second || seen[1] != 3*time.Second {
		t.Fatalf("hooks saw %v", seen)
	}
}
