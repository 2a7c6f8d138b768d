package service

import (
	"sync"
	"time"
)

// Debouncer runs only the last function scheduled within its delay window.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64
	wg    sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule cancels any pending function and schedules fn after the delay.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
	seq := d.seq
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.seq != seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// stopLocked stops the pending timer. A timer stopped before firing never
// runs its callback, so its wait slot is released here.
func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		if d.timer.Stop() {
			d.wg.Done()
		}
		d.timer = nil
	}
}

// Cancel drops the pending function, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.seq++
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Wait blocks until the pending function, if any, has run. It must not be
// called concurrently with Schedule.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}
