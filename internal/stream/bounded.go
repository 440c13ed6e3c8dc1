package stream

import "io"

// Bounded is a fixed-length sequential window over a Shared handle.
// It only reads; it has no notion of seeking or writing.
type Bounded struct {
	shared *Shared
	origin int64
	length int64
	offset int64
}

// NewBounded returns a window of length bytes starting at absolute offset origin.
func NewBounded(shared *Shared, origin, length int64) *Bounded {
	if length < 0 {
		length = 0
	}
	return &Bounded{shared: shared, origin: origin, length: length}
}

// Len returns the window length.
func (b *Bounded) Len() int64 {
	return b.length
}

// Remaining returns the number of bytes not yet read.
func (b *Bounded) Remaining() int64 {
	return b.length - b.offset
}

// Read reads up to len(p) bytes, clamped to the bytes remaining in the window.
func (b *Bounded) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b.shared.mu.Lock()
	defer b.shared.mu.Unlock()

	remaining := b.Remaining()
	if remaining < 1 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := b.shared.readLocked(p, b.origin+b.offset, false)
	b.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}
