// Package dcx unwraps DCX compressed containers found inside archives.
package dcx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/oriath-net/gooz"
)

const (
	magic     = "DCX\x00"
	dcsMagic  = "DCS\x00"
	dcpMagic  = "DCP\x00"
	dcaMagic  = "DCA\x00"
	headerLen = 0x4C
)

// Compression formats named in the DCP block.
const (
	FormatDeflate = "DFLT"
	FormatKraken  = "KRAK"
	FormatEdge    = "EDGE"
)

var (
	// ErrNotDCX is returned when the data does not start with a DCX header.
	ErrNotDCX = errors.New("dcx: not a DCX container")
	// ErrUnsupportedFormat is returned for compression formats that cannot be decoded.
	ErrUnsupportedFormat = errors.New("dcx: unsupported compression format")
)

// Header is the parsed DCX container header.
type Header struct {
	Format           string
	UncompressedSize uint32
	CompressedSize   uint32
	DataOffset       uint32
}

// IsDCX reports whether b starts with the DCX signature.
func IsDCX(b []byte) bool {
	return len(b) >= 4 && string(b[:4]) == magic
}

// ReadHeader parses the container header at the start of b.
func ReadHeader(b []byte) (*Header, error) {
	if !IsDCX(b) {
		return nil, ErrNotDCX
	}
	if len(b) < headerLen {
		return nil, fmt.Errorf("dcx: header truncated at %d bytes", len(b))
	}

	be := binary.BigEndian
	if string(b[0x18:0x1C]) != dcsMagic {
		return nil, fmt.Errorf("dcx: missing DCS block")
	}
	if string(b[0x24:0x28]) != dcpMagic {
		return nil, fmt.Errorf("dcx: missing DCP block")
	}

	h := &Header{
		Format:           string(b[0x28:0x2C]),
		UncompressedSize: be.Uint32(b[0x1C:]),
		CompressedSize:   be.Uint32(b[0x20:]),
	}

	// The DCP block length at 0x2C is measured from the DCP magic.
	dcaOffset := 0x24 + be.Uint32(b[0x2C:])
	if int(dcaOffset)+8 > len(b) || string(b[dcaOffset:dcaOffset+4]) != dcaMagic {
		return nil, fmt.Errorf("dcx: missing DCA block")
	}
	h.DataOffset = dcaOffset + be.Uint32(b[dcaOffset+4:])

	return h, nil
}

// Decompress returns the payload of the DCX container in b.
func Decompress(b []byte) ([]byte, error) {
	h, err := ReadHeader(b)
	if err != nil {
		return nil, err
	}

	end := uint64(h.DataOffset) + uint64(h.CompressedSize)
	if end > uint64(len(b)) {
		return nil, fmt.Errorf("dcx: compressed payload of %d bytes runs past end of %d byte file", h.CompressedSize, len(b))
	}
	payload := b[h.DataOffset:end]

	switch h.Format {
	case FormatDeflate:
		return inflate(payload, h.UncompressedSize)
	case FormatKraken:
		out := make([]byte, h.UncompressedSize)
		n, err := gooz.Decompress(payload, out)
		if err != nil {
			return nil, fmt.Errorf("dcx: kraken decompression: %w", err)
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, h.Format)
	}
}

func inflate(payload []byte, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dcx: opening deflate stream: %w", err)
	}
	defer zr.Close()

	out := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(out, zr); err != nil {
		return nil, fmt.Errorf("dcx: inflating: %w", err)
	}
	if out.Len() != int(size) {
		return nil, fmt.Errorf("dcx: inflated %d bytes, header says %d", out.Len(), size)
	}
	return out.Bytes(), nil
}
