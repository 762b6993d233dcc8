// Package history keeps bounded undo/redo stacks of whole document snapshots
// and debounces writes of the current snapshot to storage.
package history

import (
	"sync"
	"time"
)

const (
	DefaultMaxDepth = 50
	DefaultWindow   = time.Second
)

// Engine tracks the current value of a document plus past and future
// snapshots. Edits that arrive within the coalescing window of the previous
// history push share one undo step. T must be treated as immutable.
type Engine[T any] struct {
	mu       sync.Mutex
	current  T
	past     []T
	future   []T
	lastPush time.Time
	window   time.Duration
	maxDepth int
	now      func() time.Time
}

type Option func(*options)

type options struct {
	window   time.Duration
	maxDepth int
	now      func() time.Time
}

// WithWindow sets the coalescing window. Zero pushes on every edit.
func WithWindow(d time.Duration) Option {
	return func(o *options) { o.window = d }
}

func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[T any](initial T, opts ...Option) *Engine[T] {
	o := options{window: DefaultWindow, maxDepth: DefaultMaxDepth, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[T]{current: initial, window: o.window, maxDepth: o.maxDepth, now: o.now}
}

func (e *Engine[T]) Current() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Apply makes next the current value. When the window since the last push
// has elapsed, the previous value becomes an undo step and redo is cleared.
// It reports whether a step was recorded.
func (e *Engine[T]) Apply(next T) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	pushed := false
	if e.lastPush.IsZero() || now.Sub(e.lastPush) > e.window {
		e.past = e.pushBounded(e.past, e.current)
		e.future = nil
		e.lastPush = now
		pushed = true
	}
	e.current = next
	return pushed
}

// Replace sets the current value without touching history.
func (e *Engine[T]) Replace(next T) {
	e.mu.Lock()
	e.current = next
	e.mu.Unlock()
}

// Undo restores the most recent past snapshot. ok is false when there is none.
func (e *Engine[T]) Undo() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.past) == 0 {
		return e.current, false
	}
	prev := e.past[len(e.past)-1]
	e.past = e.past[:len(e.past)-1]
	e.future = append(e.future, e.current)
	e.current = prev
	return prev, true
}

func (e *Engine[T]) Redo() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.future) == 0 {
		return e.current, false
	}
	next := e.future[len(e.future)-1]
	e.future = e.future[:len(e.future)-1]
	e.past = e.pushBounded(e.past, e.current)
	e.current = next
	return next, true
}

func (e *Engine[T]) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.past) > 0
}

func (e *Engine[T]) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.future) > 0
}

// Depth returns the sizes of the undo and redo stacks.
func (e *Engine[T]) Depth() (past, future int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.past), len(e.future)
}

func (e *Engine[T]) pushBounded(stack []T, v T) []T {
	stack = append(stack, v)
	if over := len(stack) - e.maxDepth; over > 0 {
		stack = append([]T(nil), stack[over:]...)
	}
	return stack
}
