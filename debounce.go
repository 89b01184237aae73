package gridview

import (
	"sync"
	"time"
)

// DefaultFilterDelay is the quiet period before typed filter input is applied
const DefaultFilterDelay = 500 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last action triggered within its delay window.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	after   AfterFunc
	timer   Timer
	gen     uint64
	stopped bool
}

// NewDebouncer creates a debouncer. A nil after uses the wall clock.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Trigger schedules fn, replacing any pending action.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.after(d.delay, func() {
		d.mu.Lock()
		current := !d.stopped && d.gen == gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel discards the pending action, if any. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Stop cancels any pending action and refuses new ones. Safe on nil.
func (d *Debouncer) Stop() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}
