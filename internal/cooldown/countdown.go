// Package cooldown implements the resend cooldown used by the OTP flows.
package cooldown

import (
	"sync"
	"time"

	"github.com/MrEthical07/sensorauth/clock"
)

// Countdown counts whole seconds down to zero on a [clock.Scheduler].
//
// Starting a countdown while one is active replaces it; ticks still pending
// from the previous run are abandoned, never summed. Remaining never goes
// below zero and the countdown stops scheduling once it reaches zero.
type Countdown struct {
	sched clock.Scheduler
	tick  time.Duration

	mu        sync.Mutex
	remaining int
	gen       uint64
	task      clock.Task
}

// New creates an idle countdown. A non-positive tick defaults to one second.
func New(sched clock.Scheduler, tick time.Duration) *Countdown {
	if sched == nil {
		sched = clock.Real{}
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &Countdown{sched: sched, tick: tick}
}

// Start begins counting down from seconds. onTick receives every new value,
// including the final zero; onElapsed runs once when zero is reached. Either
// callback may be nil. Callbacks run without the countdown lock held.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onElapsed func()) {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	gen := c.gen
	if seconds <= 0 {
		c.remaining = 0
		c.mu.Unlock()
		if onTick != nil {
			onTick(0)
		}
		if onElapsed != nil {
			onElapsed()
		}
		return
	}
	c.remaining = seconds
	c.scheduleLocked(gen, onTick, onElapsed)
	c.mu.Unlock()
}

// Cancel stops the countdown and resets it to zero without running callbacks.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
	c.remaining = 0
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Active() bool {
	return c.Remaining() > 0
}

func (c *Countdown) scheduleLocked(gen uint64, onTick func(int), onElapsed func()) {
	c.task = c.sched.AfterFunc(c.tick, func() {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return
		}
		next := c.remaining - 1
		if next < 0 {
			next = 0
		}
		c.remaining = next
		if next > 0 {
			c.scheduleLocked(gen, onTick, onElapsed)
		} else {
			c.task = nil
		}
		c.mu.Unlock()

		if onTick != nil {
			onTick(next)
		}
		if next == 0 && onElapsed != nil {
			onElapsed()
		}
	})
}

func (c *Countdown) stopLocked() {
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
}
