// Package clock provides the scheduling seam used by controllers for cooldown
// ticks, delayed redirects and banner expiry.
//
// Controllers never call time.AfterFunc directly. They schedule through a
// [Scheduler] so hosts run on [Real] while tests drive [Fake] forward in
// virtual time with Advance.
package clock

import "time"

// Task is a scheduled callback that can be cancelled.
type Task interface {
	// Stop cancels the task. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Task
}

// Real schedules callbacks on the runtime timer heap.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}
