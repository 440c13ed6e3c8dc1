package binder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/jchantrell/eblextract/internal/stream"
)

var (
	// ErrNotFound is returned when a name does not resolve to a record. It matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("binder: file not found: %w", fs.ErrNotExist)

	// ErrHashCollision is returned when two different names hash to the same value.
	ErrHashCollision = errors.New("binder: hash collision")

	// ErrDuplicate is returned when the same name is added twice.
	ErrDuplicate = errors.New("binder: duplicate name")

	// ErrMalformedRange marks an encrypted range with negative or inverted bounds.
	// Such ranges are skipped and only logged.
	ErrMalformedRange = errors.New("binder: malformed encrypted range")

	// ErrRangeNotBlockAligned is returned when an encrypted range is not a whole number of AES blocks.
	ErrRangeNotBlockAligned = errors.New("binder: encrypted range is not block aligned")

	// ErrClosed is returned by reads after the reader was closed.
	ErrClosed = stream.ErrClosed
)

// HashError describes a rejected dictionary insertion.
type HashError struct {
	Hash     uint64
	Name     string
	Existing string
	Err      error
}

func (e *HashError) Error() string {
	if errors.Is(e.Err, ErrDuplicate) {
		return fmt.Sprintf("name already added: hash %d, name %q", e.Hash, e.Name)
	}
	return fmt.Sprintf("hash collision between two different names: hash %d, names %q and %q", e.Hash, e.Existing, e.Name)
}

func (e *HashError) Unwrap() error {
	return e.Err
}
