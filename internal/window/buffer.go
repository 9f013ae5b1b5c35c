// Package window accumulates per-frame landmark vectors into fixed-length windows.
package window

import (
	"github.com/ayusman/punchalert/internal/pose"
)

// DefaultSize is the number of vectors in one classification window.
const DefaultSize = 20

// Window is an ordered run of exactly Size landmark vectors.
type Window []pose.Vector

// Buffer collects vectors until a window is complete.
// A Buffer is owned by the frame loop and is not safe for concurrent use.
type Buffer struct {
	size    int
	pending []pose.Vector
}

// NewBuffer creates a Buffer producing windows of the given size.
// Sizes less than or equal to 0 fall back to DefaultSize.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		size:    size,
		pending: make([]pose.Vector, 0, size),
	}
}

// Append adds v to the in-progress window. When the window reaches its size it is
// returned as a copy and the buffer starts over from empty.
func (b *Buffer) Append(v pose.Vector) (Window, bool) {
	b.pending = append(b.pending, v)
	if len(b.pending) < b.size {
		return nil, false
	}

	w := make(Window, len(b.pending))
	copy(w, b.pending)
	b.pending = b.pending[:0]

	return w, true
}

// Len returns the number of vectors in the in-progress window.
func (b *Buffer) Len() int {
	return len(b.pending)
}

// Size returns the configured window size.
func (b *Buffer) Size() int {
	return b.size
}

// Reset discards the in-progress window.
func (b *Buffer) Reset() {
	b.pending = b.pending[:0]
}
