package persist

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single call of fn, run
// delay after the last trigger. Each Trigger supersedes the pending one.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewDebouncer creates a debouncer. A zero delay still runs fn on a
// separate goroutine.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the timer.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.cancelLocked()
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.fn()
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Flush cancels the pending timer and runs fn now on the caller's goroutine.
func (d *Debouncer) Flush() {
	d.Cancel()
	d.fn()
}

// Close cancels the pending call and waits for a running one to finish.
// Later triggers are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.cancelLocked()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
}
