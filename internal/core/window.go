package core

// Window is a fixed-capacity ring buffer retaining only the most recent
// observations. Pushing onto a full window silently evicts the oldest entry.
type Window[T any] struct {
	entries []T
	size    int
	pos     int
	full    bool
}

// NewWindow creates a window holding up to size entries.
func NewWindow[T any](size int) *Window[T] {
	if size <= 0 {
		size = 1
	}
	return &Window[T]{
		entries: make([]T, size),
		size:    size,
	}
}

// Push appends a value, evicting the oldest entry if the window is full.
func (w *Window[T]) Push(v T) {
	w.entries[w.pos] = v
	w.pos = (w.pos + 1) % w.size
	if w.pos == 0 {
		w.full = true
	}
}

// Len returns the number of entries currently held.
func (w *Window[T]) Len() int {
	if w.full {
		return w.size
	}
	return w.pos
}

// Cap returns the window capacity.
func (w *Window[T]) Cap() int { return w.size }

// Values returns the held entries in chronological order, oldest first.
func (w *Window[T]) Values() []T {
	n := w.Len()
	out := make([]T, n)
	start := w.pos - n
	if start < 0 {
		start += w.size
	}
	for i := 0; i < n; i++ {
		out[i] = w.entries[(start+i)%w.size]
	}
	return out
}

// First returns the oldest entry. The second return value is false if the
// window is empty.
func (w *Window[T]) First() (T, bool) {
	var zero T
	n := w.Len()
	if n == 0 {
		return zero, false
	}
	start := w.pos - n
	if start < 0 {
		start += w.size
	}
	return w.entries[start], true
}

// Last returns the newest entry. The second return value is false if the
// window is empty.
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if w.Len() == 0 {
		return zero, false
	}
	idx := w.pos - 1
	if idx < 0 {
		idx += w.size
	}
	return w.entries[idx], true
}

// Clear empties the window.
func (w *Window[T]) Clear() {
	w.pos = 0
	w.full = false
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Variance returns the population variance of xs, or 0 for fewer than two
// samples.
func Variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mean := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
