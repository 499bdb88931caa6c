// Package inflight provides the per-operation submission guard used by the
// controllers to reject a second submission while one is pending.
package inflight

import "sync"

// State is the lifecycle position of a guarded operation.
type State uint8

const (
	Idle State = iota
	Pending
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Op guards a single logical operation. Only one caller can hold it in the
// Pending state; Done returns to a re-submittable state.
type Op struct {
	mu    sync.Mutex
	state State
	runs  uint64
}

// TryBegin moves the operation to Pending. It reports false, leaving state
// untouched, when a previous submission is still pending.
func (o *Op) TryBegin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Pending {
		return false
	}
	o.state = Pending
	o.runs++
	return true
}

// Finish marks the pending submission as complete.
func (o *Op) Finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Pending {
		o.state = Done
	}
}

// Reset returns the operation to Idle.
func (o *Op) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
}

func (o *Op) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Op) Pending() bool {
	return o.State() == Pending
}

// Runs counts accepted submissions.
func (o *Op) Runs() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runs
}
