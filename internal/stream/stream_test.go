package stream

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingCloser struct {
	*bytes.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

// slowReader sleeps inside every Read to widen the window for interleaving.
type slowReader struct {
	*bytes.Reader
	delay time.Duration
}

func (s *slowReader) Read(p []byte) (int, error) {
	time.Sleep(s.delay)
	return s.Reader.Read(p)
}

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestSharedReadAtRestoresPosition(t *testing.T) {
	data := sequence(256)
	r := bytes.NewReader(data)
	_, err := r.Seek(10, io.SeekStart)
	require.NoError(t, err)

	s := NewShared(r, true)
	p := make([]byte, 16)
	n, err := s.ReadAt(p, 100)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, data[100:116], p)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)
}

func TestSharedReadAtShortRead(t *testing.T) {
	s := NewShared(bytes.NewReader(sequence(32)), true)
	p := make([]byte, 16)
	n, err := s.ReadAt(p, 24)
	assert.Equal(t, 8, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = s.ReadAt(p, -1)
	assert.Error(t, err)
}

func TestSharedSize(t *testing.T) {
	r := bytes.NewReader(sequence(77))
	_, err := r.Seek(5, io.SeekStart)
	require.NoError(t, err)

	s := NewShared(r, true)
	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(77), size)

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(5), pos)
}

func TestSharedClose(t *testing.T) {
	owned := &trackingCloser{Reader: bytes.NewReader(sequence(8))}
	s := NewShared(owned, false)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, owned.closed)

	_, err := s.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = NewBounded(s, 0, 4).Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrClosed)

	borrowed := &trackingCloser{Reader: bytes.NewReader(sequence(8))}
	s = NewShared(borrowed, true)
	require.NoError(t, s.Close())
	assert.False(t, borrowed.closed)
}

func TestBoundedClampsToWindow(t *testing.T) {
	data := sequence(128)
	s := NewShared(bytes.NewReader(data), true)

	b := NewBounded(s, 40, 20)
	assert.Equal(t, int64(20), b.Len())

	got, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Equal(t, data[40:60], got)
	assert.Equal(t, int64(0), b.Remaining())

	n, err := b.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBoundedNegativeLength(t *testing.T) {
	s := NewShared(bytes.NewReader(sequence(8)), true)
	b := NewBounded(s, 0, -5)
	assert.Equal(t, int64(0), b.Len())
	got, err := io.ReadAll(b)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBoundedWindowsInterleave(t *testing.T) {
	data := sequence(64)
	r := bytes.NewReader(data)
	s := NewShared(r, true)

	a := NewBounded(s, 0, 32)
	b := NewBounded(s, 32, 32)

	var gotA, gotB []byte
	p := make([]byte, 5)
	for a.Remaining() > 0 || b.Remaining() > 0 {
		if n, _ := a.Read(p); n > 0 {
			gotA = append(gotA, p[:n]...)
		}
		if n, _ := b.Read(p); n > 0 {
			gotB = append(gotB, p[:n]...)
		}
	}

	assert.Equal(t, data[:32], gotA)
	assert.Equal(t, data[32:], gotB)

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(0), pos)
}

func TestBoundedConcurrentReaders(t *testing.T) {
	data := sequence(4096)
	s := NewShared(&slowReader{Reader: bytes.NewReader(data), delay: 50 * time.Microsecond}, true)

	const readers = 8
	span := len(data) / readers
	results := make([][]byte, readers)

	var wg sync.WaitGroup
	for i := range readers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := NewBounded(s, int64(i*span), int64(span))
			p := make([]byte, 37)
			for {
				n, err := b.Read(p)
				results[i] = append(results[i], p[:n]...)
				if err == io.EOF {
					return
				}
				if err != nil {
					t.Errorf("reader %d: %v", i, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := range readers {
		assert.Equal(t, data[i*span:(i+1)*span], results[i], "reader %d", i)
	}
}
