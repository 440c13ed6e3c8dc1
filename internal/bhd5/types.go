// Package bhd5 parses BHD5 archive headers into buckets of file records.
package bhd5

// Header is the parsed structural index of an archive. It is immutable once read.
type Header struct {
	Format    Format
	BigEndian bool
	// Unk05 is the flag byte following the endian marker.
	Unk05   bool
	Salt    string
	Buckets []Bucket
}

// Bucket holds the records sharing one bucket index, in stored order.
type Bucket []FileRecord

// FileRecord describes one file in the data stream.
type FileRecord struct {
	NameHash     uint64
	PaddedSize   int64
	UnpaddedSize int64
	// FileOffset is the absolute offset of the file in the data stream.
	FileOffset int64
	AESKey     *AESKey
	SHAHash    *SHAHash
}

// AESKey holds a 128-bit key and the absolute data ranges it encrypts.
type AESKey struct {
	Key    [16]byte
	Ranges []Range
}

// SHAHash holds a SHA-256 digest and the ranges it covers. It is never verified.
type SHAHash struct {
	Hash   [32]byte
	Ranges []Range
}

// Range is a half-open span [Start, End) of absolute data offsets.
type Range struct {
	Start int64
	End   int64
}

// Len returns End-Start, or 0 when the range is malformed or empty.
func (r Range) Len() int64 {
	if r.Start < 0 || r.End < 0 || r.Start >= r.End {
		return 0
	}
	return r.End - r.Start
}

// FileLength returns the authoritative length of rec for this header's format.
func (h *Header) FileLength(rec *FileRecord) int64 {
	if h.Format.UsesUnpaddedSize() {
		return rec.UnpaddedSize
	}
	return rec.PaddedSize
}

// FileCount returns the number of records across all buckets.
func (h *Header) FileCount() int {
	n := 0
	for _, b := range h.Buckets {
		n += len(b)
	}
	return n
}
