// Package window provides a fixed-capacity sliding window of samples that is safe to share
// between a producer and a consumer goroutine.
package window

import "sync"

// Window is a ring buffer holding the most recent Cap() values in arrival order.
// When full, Push evicts the oldest value.
type Window[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int // index of the oldest value
	size int
}

// New creates a Window with the given capacity. Capacities below 1 are raised to 1.
func New[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{
		buf: make([]T, capacity),
	}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Window[T]) Push(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = v
		w.size++
		return
	}

	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

// Snapshot returns a copy of the current contents, oldest first.
func (w *Window[T]) Snapshot() []T {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Clear empties the window. Capacity is unchanged.
func (w *Window[T]) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	var zero T
	for i := range w.buf {
		w.buf[i] = zero
	}
	w.head = 0
	w.size = 0
}

// Len returns the number of values currently held.
func (w *Window[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}

// Full reports whether the window holds Cap() values.
func (w *Window[T]) Full() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size == len(w.buf)
}
