// Package buffers provides pooled byte buffers for short-lived chunk processing.
package buffers

import (
	"math/bits"
	"sync"
)

const (
	// minClassShift is the smallest pooled slab, 512 bytes.
	minClassShift = 9
	// maxClassShift is the largest pooled slab, 16MiB. Larger requests bypass the pool.
	maxClassShift = 24
)

// classes holds one pool per power-of-two slab size.
var classes [maxClassShift - minClassShift + 1]sync.Pool

func init() {
	for i := range classes {
		size := 1 << (i + minClassShift)
		classes[i].New = func() any {
			b := make([]byte, size)
			return &b
		}
	}
}

// RentBuffer is a byte slab checked out from the shared pool.
// The slab may be larger than requested; only the first Len bytes are exposed.
type RentBuffer struct {
	slab     *[]byte
	class    int
	length   int
	returned bool
}

// Rent checks out a buffer holding at least length bytes.
// A non-positive length yields an empty buffer whose Return is a no-op.
func Rent(length int) *RentBuffer {
	if length <= 0 {
		return &RentBuffer{class: -1}
	}

	class := classFor(length)
	if class < 0 {
		b := make([]byte, length)
		return &RentBuffer{slab: &b, class: -1, length: length}
	}

	slab := classes[class].Get().(*[]byte)
	return &RentBuffer{slab: slab, class: class, length: length}
}

// Len returns the requested length.
func (b *RentBuffer) Len() int {
	return b.length
}

// Bytes returns the usable portion of the buffer.
// Calling Bytes after Return is a programming error and panics.
func (b *RentBuffer) Bytes() []byte {
	if b.returned {
		panic("buffers: use of returned buffer")
	}
	if b.slab == nil {
		return nil
	}
	return (*b.slab)[:b.length]
}

// Return hands the storage back to the pool. Subsequent calls do nothing.
func (b *RentBuffer) Return() {
	if b.returned {
		return
	}
	b.returned = true

	if b.slab != nil && b.class >= 0 {
		classes[b.class].Put(b.slab)
	}
	b.slab = nil
}

// classFor returns the pool index serving length, or -1 when it exceeds the largest class.
func classFor(length int) int {
	shift := bits.Len(uint(length - 1))
	if shift < minClassShift {
		shift = minClassShift
	}
	if shift > maxClassShift {
		return -1
	}
	return shift - minClassShift
}
