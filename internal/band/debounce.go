package band

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer a Debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock schedules on the runtime timer.
var RealClock Clock = realClock{}

// Debouncer runs at most one pending task. Scheduling replaces the previous
// task and Cancel drops it. The task runs through dispatch, so a UI loop can
// keep all band mutation on one goroutine; a task cancelled after its timer
// fired but before dispatch ran it is still skipped.
type Debouncer struct {
	clock    Clock
	dispatch func(func())

	mu      sync.Mutex
	gen     uint64
	pending bool
	timer   Timer
}

// NewDebouncer returns a debouncer. A nil clock uses RealClock, a nil
// dispatch runs tasks on the timer goroutine.
func NewDebouncer(clock Clock, dispatch func(func())) *Debouncer {
	if clock == nil {
		clock = RealClock
	}
	if dispatch == nil {
		dispatch = func(f func()) { f() }
	}
	return &Debouncer{clock: clock, dispatch: dispatch}
}

// Schedule runs task after delay unless another Schedule or Cancel comes
// first.
func (d *Debouncer) Schedule(delay time.Duration, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.clock.AfterFunc(delay, func() {
		d.dispatch(func() {
			if !d.claim(gen) {
				return
			}
			task()
		})
	})
}

func (d *Debouncer) claim(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending || d.gen != gen {
		return false
	}
	d.pending = false
	d.timer = nil
	return true
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

// Pending reports whether a task is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
