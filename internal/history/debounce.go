package history

import (
	"context"
	"sync"
	"time"
)

// SaveFunc writes a snapshot. Its error is passed to the OnError hook and
// never returned to the editor.
type SaveFunc[T any] func(ctx context.Context, v T) error

// Debouncer coalesces Schedule calls so that only the last value within the
// delay is saved.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	save    SaveFunc[T]
	onError func(error)
	timer   *time.Timer
	pending bool
	value   T
	seq     uint64

	// saveMu serializes saves; saved is the seq of the newest value written.
	// A timer-fired save that loses the race to a later Flush is dropped.
	saveMu sync.Mutex
	saved  uint64
}

func NewDebouncer[T any](delay time.Duration, save SaveFunc[T], onError func(error)) *Debouncer[T] {
	if onError == nil {
		onError = func(error) {}
	}
	return &Debouncer[T]{delay: delay, save: save, onError: onError}
}

// Schedule replaces any pending value with v and restarts the delay.
func (d *Debouncer[T]) Schedule(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
	d.seq++
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	v, seq := d.value, d.seq
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.run(context.Background(), v, seq)
}

func (d *Debouncer[T]) run(ctx context.Context, v T, seq uint64) {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	if seq <= d.saved {
		return
	}
	d.saved = seq
	if err := d.save(ctx, v); err != nil {
		d.onError(err)
	}
}

// Flush saves the pending value now, if any, and reports whether it did.
func (d *Debouncer[T]) Flush(ctx context.Context) bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v, seq := d.value, d.seq
	d.pending = false
	d.mu.Unlock()
	d.run(ctx, v, seq)
	return true
}

// Pending reports whether a save is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Discard drops the pending value without saving it.
func (d *Debouncer[T]) Discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}
