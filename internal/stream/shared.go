// Package stream provides read-only views over a single shared, seekable handle.
//
// Every physical read takes the shared lock, remembers the handle's cursor,
// seeks to the wanted offset, reads, and puts the cursor back before
// releasing the lock. Logical readers never observe each other's cursor, so
// many files can be pulled from one handle at the same time.
package stream

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed is returned by reads issued after the shared handle was closed.
var ErrClosed = errors.New("stream: shared handle is closed")

// Shared serializes access to one io.ReadSeeker.
type Shared struct {
	mu        sync.Mutex
	rs        io.ReadSeeker
	leaveOpen bool
	closed    bool
}

// NewShared wraps rs. When leaveOpen is false, Close also closes rs if it is an io.Closer.
func NewShared(rs io.ReadSeeker, leaveOpen bool) *Shared {
	return &Shared{rs: rs, leaveOpen: leaveOpen}
}

// ReadAt fills p from absolute offset off. It follows io.ReaderAt semantics:
// a short read always comes with a non-nil error.
func (s *Shared) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("stream: negative offset %d", off)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readLocked(p, off, true)
}

// Size reports the length of the underlying handle.
func (s *Shared) Size() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	pos, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("stream: reading position: %w", err)
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("stream: seeking to end: %w", err)
	}
	if _, err := s.rs.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("stream: restoring position: %w", err)
	}
	return end, nil
}

// Close marks the handle closed and releases it unless it was opened with leaveOpen.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.leaveOpen {
		return nil
	}
	if c, ok := s.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// readLocked performs one record/seek/read/restore cycle. The caller holds s.mu.
func (s *Shared) readLocked(p []byte, off int64, full bool) (n int, err error) {
	if s.closed {
		return 0, ErrClosed
	}

	saved, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("stream: reading position: %w", err)
	}

	defer func() {
		if _, serr := s.rs.Seek(saved, io.SeekStart); serr != nil && err == nil {
			err = fmt.Errorf("stream: restoring position: %w", serr)
		}
	}()

	if saved != off {
		if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
			return 0, fmt.Errorf("stream: seeking to %d: %w", off, err)
		}
	}

	if full {
		n, err = io.ReadFull(s.rs, p)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return n, err
	}
	return s.rs.Read(p)
}
