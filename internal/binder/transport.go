package binder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jchantrell/eblextract/internal/buffers"
	"github.com/jchantrell/eblextract/internal/stream"
)

const copyBufferSize = 80 * 1024

// transport performs the I/O steps of a file read. The blocking and
// context-aware backends share one read algorithm in File.
type transport interface {
	readAt(src *stream.Shared, p []byte, off int64) error
	write(w io.Writer, p []byte) (int, error)
	copy(w io.Writer, r io.Reader, n int64) (int64, error)
	create(path string) (*os.File, error)
}

type blockingIO struct{}

func (blockingIO) readAt(src *stream.Shared, p []byte, off int64) error {
	if _, err := src.ReadAt(p, off); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func (blockingIO) write(w io.Writer, p []byte) (int, error) {
	n, err := w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (blockingIO) copy(w io.Writer, r io.Reader, n int64) (int64, error) {
	buf := buffers.Rent(int(min(n, copyBufferSize)))
	defer buf.Return()

	written, err := io.CopyBuffer(w, r, buf.Bytes())
	if err == nil && written < n {
		err = io.ErrUnexpectedEOF
	}
	return written, err
}

func (blockingIO) create(path string) (*os.File, error) {
	return os.Create(path)
}

// contextIO checks for cancellation before every backing read, destination write and create.
type contextIO struct {
	ctx context.Context
}

func (c contextIO) readAt(src *stream.Shared, p []byte, off int64) error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	return blockingIO{}.readAt(src, p, off)
}

func (c contextIO) write(w io.Writer, p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return blockingIO{}.write(w, p)
}

func (c contextIO) copy(w io.Writer, r io.Reader, n int64) (int64, error) {
	buf := buffers.Rent(int(min(n, copyBufferSize)))
	defer buf.Return()

	var written int64
	for written < n {
		if err := c.ctx.Err(); err != nil {
			return written, err
		}

		chunk := buf.Bytes()
		if rem := n - written; rem < int64(len(chunk)) {
			chunk = chunk[:rem]
		}
		nr, rerr := r.Read(chunk)
		if nr > 0 {
			nw, werr := c.write(w, chunk[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
		}
		if rerr == io.EOF {
			if written < n {
				return written, io.ErrUnexpectedEOF
			}
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}
	return written, nil
}

func (c contextIO) create(path string) (*os.File, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return os.Create(path)
}
