package timex

import (
	"sync"
	"time"

	"sensordash-go/errcode"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Clock is the time source and delay capability handed to drivers.
// Sleep returns no earlier than requested.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time        { return time.Now() }
func (System) Sleep(d time.Duration) { time.Sleep(d) }

// DefaultPoll is the Await poll interval when none is given.
const DefaultPoll = 50 * time.Microsecond

// Await polls cond until it holds or timeout elapses on c.
// Returns errcode.Timeout on expiry. timeout <= 0 checks cond once.
func Await(c Clock, timeout, poll time.Duration, cond func() bool) error {
	if cond() {
		return nil
	}
	if timeout <= 0 {
		return errcode.Timeout
	}
	if poll <= 0 {
		poll = DefaultPoll
	}
	deadline := c.Now().Add(timeout)
	for {
		c.Sleep(poll)
		if cond() {
			return nil
		}
		if !c.Now().Before(deadline) {
			return errcode.Timeout
		}
	}
}

// Fake is a manual clock for host tests and simulation. Sleep advances
// virtual time immediately and runs the registered hooks.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
	hooks []func(now time.Time)
}

// NewFake returns a Fake starting at a fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) { f.Advance(d) }

// Advance moves virtual time forward by d and runs hooks outside the lock.
func (f *Fake) Advance(d time.Duration) {
	if d < 0 {
		d = 0
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.slept += d
	now := f.now
	hooks := f.hooks
	f.mu.Unlock()
	for _, h := range hooks {
		h(now)
	}
}

// Slept is the total virtual time spent in Sleep/Advance.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// OnAdvance registers h to run after every advance.
func (f *Fake) OnAdvance(h func(now time.Time)) {
	f.mu.Lock()
	f.hooks = append(f.hooks, h)
	f.mu.Unlock()
}
