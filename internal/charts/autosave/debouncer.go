// Package autosave holds the client-facing buffering machinery for chart
// edits: the debouncer that coalesces rapid edits into one batched flush,
// and the load-state gate that keeps the initial chart load's own default
// values from ever being written back to the server.
package autosave

import (
	"sync"
	"time"
)

// Debouncer buffers {fieldPath → value} edits and flushes them as one batch
// after a fixed quiet delay. Every new edit resets the timer; stopping a
// superseded timer before it fires is the entire cancellation mechanism,
// there is no explicit cancel call. An edit to an already-pending field
// overwrites the buffered value, so a flush carries only final values.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	gate    *LoadState
	flush   func(changes map[string]interface{})
	pending map[string]interface{}
	timer   *time.Timer
}

// NewDebouncer wires the flush callback (typically the autosave batch HTTP
// call). gate may be nil when no readiness gating is wanted.
func NewDebouncer(delay time.Duration, gate *LoadState, flush func(map[string]interface{})) *Debouncer {
	return &Debouncer{
		delay:   delay,
		gate:    gate,
		flush:   flush,
		pending: make(map[string]interface{}),
	}
}

// Edit buffers one field change and re-arms the timer. Buffering happens
// regardless of readiness; only the flush itself is gated.
func (d *Debouncer) Edit(fieldPath string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[fieldPath] = value
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush forces an immediate flush attempt (blur, tab close). Like the timer
// path it is suppressed until the gate is ready.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fire()
}

// PendingCount reports how many fields are buffered.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.gate != nil && !d.gate.Ready() {
		// Not armed yet: keep the buffer, write nothing. The next edit (or
		// explicit Flush once ready) picks it up.
		d.mu.Unlock()
		return
	}
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	changes := d.pending
	d.pending = make(map[string]interface{})
	d.timer = nil
	d.mu.Unlock()

	d.flush(changes)
}
