package zone

import (
	"sync"
	"time"
)

// debouncer coalesces triggers: the first Trigger arms a single timer, and
// further triggers before it fires are no-ops. fire runs on the timer
// goroutine and sees whatever state exists at that moment.
type debouncer struct {
	delay time.Duration
	fire  func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fire func()) *debouncer {
	return &debouncer{delay: delay, fire: fire}
}

// Trigger marks the debouncer dirty and arms the timer if none is pending.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending || d.stopped {
		return
	}
	d.pending = true
	d.timer = time.AfterFunc(d.delay, d.run)
}

func (d *debouncer) run() {
	d.mu.Lock()
	d.pending = false
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped {
		d.fire()
	}
}

// Stop cancels any pending fire and disables further triggers.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}
