package testutil

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/roach88/walkthrough/internal/clock"
)

// FakeClock is a virtual clock for deterministic timer tests.
//
// Time only moves when Advance is called. Due callbacks run synchronously on
// the goroutine calling Advance, in deadline order; timers with the same
// deadline fire in the order they were armed. A callback may arm or stop other
// timers, and timers it arms that fall due before the Advance target fire in
// the same call.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
// The mutex is never held while a callback runs.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Duration
	seq      uint64
	f        func()
}

var _ clock.Clock = (*FakeClock)(nil)

// NewFakeClock creates a clock at virtual time zero with no timers armed.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// AfterFunc arms f to run once the virtual time reaches Now()+d.
// A non-positive d fires on the next Advance, including Advance(0).
func (c *FakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	c.seq++
	t := &fakeTimer{clock: c, deadline: addSaturated(c.now, d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves virtual time forward by d, firing every timer that falls due.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := addSaturated(c.now, d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.popDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.deadline
		c.mu.Unlock()

		next.f()
	}
}

// addSaturated returns now+d, pinned to the largest Duration on overflow.
func addSaturated(now, d time.Duration) time.Duration {
	if d > math.MaxInt64-now {
		return math.MaxInt64
	}
	return now + d
}

// popDueLocked removes and returns the earliest timer due at or before target.
func (c *FakeClock) popDueLocked(target time.Duration) *fakeTimer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline != c.timers[j].deadline {
			return c.timers[i].deadline < c.timers[j].deadline
		}
		return c.timers[i].seq < c.timers[j].seq
	})
	first := c.timers[0]
	if first.deadline > target {
		return nil
	}
	c.timers[0] = nil
	c.timers = c.timers[1:]
	return first
}

// Now returns the elapsed virtual time since the clock was created.
func (c *FakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending returns the number of armed timers that have not fired or been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Stop disarms the timer. Returns false if it already fired or was stopped.
func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, armed := range c.timers {
		if armed == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}
