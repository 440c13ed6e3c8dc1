package bhd5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Magic is the four-byte signature at the start of every header.
const Magic = "BHD5"

// ErrInvalidHeader marks any structural problem found while parsing.
var ErrInvalidHeader = errors.New("invalid BHD5 header")

// FormatError reports where parsing failed.
type FormatError struct {
	Offset int64
	Msg    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid BHD5 header at offset 0x%X: %s", e.Offset, e.Msg)
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidHeader
}

// ReadFile reads and parses the header at path.
func ReadFile(path string, format Format) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading header %s: %w", path, err)
	}
	return Parse(data, format)
}

// Read reads the whole of r and parses it.
func Read(r io.Reader, format Format) (*Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	return Parse(data, format)
}

// Parse decodes a plaintext header.
func Parse(data []byte, format Format) (*Header, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported BHD5 format %v", format)
	}

	p := &parser{data: data}
	if string(p.bytes(4)) != Magic {
		return nil, &FormatError{Offset: 0, Msg: "missing BHD5 magic"}
	}

	endian := p.u8()
	switch endian {
	case 0x00:
		p.order = binary.BigEndian
	case 0xFF:
		p.order = binary.LittleEndian
	default:
		return nil, &FormatError{Offset: 4, Msg: fmt.Sprintf("unexpected endian marker 0x%02X", endian)}
	}

	h := &Header{Format: format, BigEndian: endian == 0x00}
	h.Unk05 = p.u8() != 0
	p.skip(2)

	if v := p.i32(); v != 1 && p.err == nil {
		return nil, &FormatError{Offset: 8, Msg: fmt.Sprintf("unexpected version %d", v)}
	}
	p.i32() // file size
	bucketCount := p.i32()
	bucketsOffset := p.i32()

	if format.HasExtendedRecords() {
		saltLen := p.i32()
		if saltLen < 0 {
			return nil, &FormatError{Offset: p.pos - 4, Msg: fmt.Sprintf("negative salt length %d", saltLen)}
		}
		h.Salt = string(p.bytes(int(saltLen)))
	}
	if p.err != nil {
		return nil, p.err
	}

	if bucketCount < 0 {
		return nil, &FormatError{Offset: 0x10, Msg: fmt.Sprintf("negative bucket count %d", bucketCount)}
	}

	h.Buckets = make([]Bucket, 0, min(int(bucketCount), len(data)/8))
	p.seek(int64(bucketsOffset))
	for i := int32(0); i < bucketCount; i++ {
		count := p.i32()
		offset := p.i32()
		if p.err != nil {
			return nil, fmt.Errorf("reading bucket %d: %w", i, p.err)
		}
		if count < 0 {
			return nil, &FormatError{Offset: p.pos - 8, Msg: fmt.Sprintf("bucket %d has negative record count", i)}
		}

		bucket, err := p.bucket(int64(offset), int(count), format)
		if err != nil {
			return nil, fmt.Errorf("reading bucket %d: %w", i, err)
		}
		h.Buckets = append(h.Buckets, bucket)
	}

	return h, nil
}

// parser is a bounds-checked cursor over header bytes. The first failure sticks in err.
type parser struct {
	data  []byte
	pos   int64
	order binary.ByteOrder
	err   error
}

func (p *parser) bytes(n int) []byte {
	if p.err != nil {
		return make([]byte, n)
	}
	if n < 0 || p.pos < 0 || p.pos+int64(n) > int64(len(p.data)) {
		p.err = &FormatError{Offset: p.pos, Msg: fmt.Sprintf("read of %d bytes past end of %d byte header", n, len(p.data))}
		return make([]byte, max(n, 0))
	}
	b := p.data[p.pos : p.pos+int64(n)]
	p.pos += int64(n)
	return b
}

func (p *parser) skip(n int)  { p.bytes(n) }
func (p *parser) u8() byte    { return p.bytes(1)[0] }
func (p *parser) i32() int32  { return int32(p.order.Uint32(p.bytes(4))) }
func (p *parser) u32() uint32 { return p.order.Uint32(p.bytes(4)) }
func (p *parser) i64() int64  { return int64(p.order.Uint64(p.bytes(8))) }
func (p *parser) u64() uint64 { return p.order.Uint64(p.bytes(8)) }

func (p *parser) seek(off int64) {
	if p.err == nil && (off < 0 || off > int64(len(p.data))) {
		p.err = &FormatError{Offset: off, Msg: "offset outside header"}
	}
	p.pos = off
}

// bucket reads count records at offset and returns to the current position.
func (p *parser) bucket(offset int64, count int, format Format) (Bucket, error) {
	back := p.pos
	defer func() { p.pos = back }()

	p.seek(offset)
	if p.err != nil {
		return nil, p.err
	}

	bucket := make(Bucket, 0, min(count, len(p.data)/16))
	for j := 0; j < count; j++ {
		rec, err := p.record(format)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", j, err)
		}
		bucket = append(bucket, rec)
	}
	return bucket, nil
}

func (p *parser) record(format Format) (FileRecord, error) {
	t := formats[format]

	var rec FileRecord
	if t.hash64 {
		rec.NameHash = p.u64()
	} else {
		rec.NameHash = uint64(p.u32())
	}
	rec.PaddedSize = int64(p.i32())
	if t.inlineUnpadded {
		rec.UnpaddedSize = int64(p.i32())
	}
	rec.FileOffset = p.i64()

	if t.extended {
		shaOffset := p.i64()
		aesOffset := p.i64()
		if p.err != nil {
			return rec, p.err
		}
		if shaOffset != 0 {
			rec.SHAHash = p.shaHash(shaOffset)
		}
		if aesOffset != 0 {
			rec.AESKey = p.aesKey(aesOffset)
		}
	}

	if t.unpadded && !t.inlineUnpadded {
		rec.UnpaddedSize = p.i64()
	}
	if !t.unpadded {
		rec.UnpaddedSize = rec.PaddedSize
	}

	return rec, p.err
}

func (p *parser) aesKey(offset int64) *AESKey {
	back := p.pos
	defer func() { p.pos = back }()

	p.seek(offset)
	key := &AESKey{}
	copy(key.Key[:], p.bytes(16))
	key.Ranges = p.ranges()
	return key
}

func (p *parser) shaHash(offset int64) *SHAHash {
	back := p.pos
	defer func() { p.pos = back }()

	p.seek(offset)
	sha := &SHAHash{}
	copy(sha.Hash[:], p.bytes(32))
	sha.Ranges = p.ranges()
	return sha
}

func (p *parser) ranges() []Range {
	count := p.i32()
	if p.err != nil {
		return nil
	}
	if count < 0 || int64(count)*16 > int64(len(p.data))-p.pos {
		p.err = &FormatError{Offset: p.pos - 4, Msg: fmt.Sprintf("invalid range count %d", count)}
		return nil
	}

	ranges := make([]Range, count)
	for i := range ranges {
		ranges[i] = Range{Start: p.i64(), End: p.i64()}
	}
	return ranges
}
