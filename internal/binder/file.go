package binder

import (
	"bytes"
	"context"
	"crypto/cipher"
	"fmt"
	"io"
	"log/slog"

	"github.com/jchantrell/eblextract/internal/bhd5"
	"github.com/jchantrell/eblextract/internal/buffers"
	"github.com/jchantrell/eblextract/internal/stream"
)

// File is one record of an open Reader. Files share the reader's data handle
// and may be read concurrently.
type File struct {
	reader  *Reader
	record  *bhd5.FileRecord
	path    string
	unknown bool
	length  int64
}

// Path returns the file's name, or /_unknown/<hash> when its name is not known.
func (f *File) Path() string { return f.path }

// PathUnknown reports whether Path is synthetic.
func (f *File) PathUnknown() bool { return f.unknown }

// Length returns the authoritative file length for the archive's format.
func (f *File) Length() int64 { return f.length }

// Hash returns the stored name hash.
func (f *File) Hash() uint64 { return f.record.NameHash }

// Record returns the underlying header record. It must not be modified.
func (f *File) Record() *bhd5.FileRecord { return f.record }

// Encrypted reports whether the record carries an AES key.
func (f *File) Encrypted() bool { return f.record.AESKey != nil }

// WriteTo writes the file's content to w.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	return f.writeTo(blockingIO{}, w)
}

// WriteToContext is WriteTo that stops at the next I/O boundary once ctx is done.
// Bytes already written stay written.
func (f *File) WriteToContext(ctx context.Context, w io.Writer) (int64, error) {
	return f.writeTo(contextIO{ctx: ctx}, w)
}

// Bytes returns the file's content in memory.
func (f *File) Bytes() ([]byte, error) {
	return f.bytes(blockingIO{})
}

// BytesContext is Bytes with cancellation.
func (f *File) BytesContext(ctx context.Context) ([]byte, error) {
	return f.bytes(contextIO{ctx: ctx})
}

// Extract creates or truncates the file at path and writes the content to it.
// A zero-length file still produces an empty file.
func (f *File) Extract(path string) error {
	return f.extract(blockingIO{}, path)
}

// ExtractContext is Extract with cancellation. A partially written file is left in place.
func (f *File) ExtractContext(ctx context.Context, path string) error {
	return f.extract(contextIO{ctx: ctx}, path)
}

func (f *File) bytes(t transport) ([]byte, error) {
	var buf bytes.Buffer
	if f.length > 0 {
		buf.Grow(int(f.length))
	}
	if _, err := f.writeTo(t, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *File) extract(t transport, path string) (err error) {
	out, err := t.create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	if _, err := f.writeTo(t, out); err != nil {
		return err
	}
	return nil
}

func (f *File) writeTo(t transport, w io.Writer) (int64, error) {
	if f.length == 0 {
		return 0, nil
	}

	key := f.record.AESKey
	if key == nil {
		r := stream.NewBounded(f.reader.data, f.record.FileOffset, f.length)
		n, err := t.copy(w, r, f.length)
		if err != nil {
			return n, fmt.Errorf("reading %s: %w", f.path, err)
		}
		return n, nil
	}

	block, err := newRangeCipher(key.Key)
	if err != nil {
		return 0, err
	}

	var written int64
	for i, rng := range key.Ranges {
		n, err := f.writeRange(t, w, block, i, rng)
		written += n
		if err != nil {
			return written, fmt.Errorf("reading %s: range %d: %w", f.path, i, err)
		}
	}
	return written, nil
}

// writeRange decrypts one encrypted range into w. Malformed and empty ranges produce no output.
func (f *File) writeRange(t transport, w io.Writer, block cipher.Block, i int, rng bhd5.Range) (int64, error) {
	if rng.Len() == 0 {
		if rng.Start < 0 || rng.End < 0 || rng.Start > rng.End {
			slog.Debug("skipping encrypted range",
				"path", f.path,
				"range", i,
				"start", rng.Start,
				"end", rng.End,
				"reason", ErrMalformedRange)
		}
		return 0, nil
	}

	buf := buffers.Rent(int(rng.Len()))
	defer buf.Return()

	p := buf.Bytes()
	if err := t.readAt(f.reader.data, p, rng.Start); err != nil {
		return 0, err
	}
	if err := decryptECB(block, p); err != nil {
		return 0, err
	}

	n, err := t.write(w, p)
	return int64(n), err
}
