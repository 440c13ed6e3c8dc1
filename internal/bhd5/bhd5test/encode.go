// Package bhd5test builds BHD5 header bytes for tests.
package bhd5test

import (
	"encoding/binary"

	"github.com/jchantrell/eblextract/internal/bhd5"
)

// Encode serializes h in its format's layout. Buckets are followed by their
// record blocks, then by every AES key and SHA hash block in record order.
func Encode(h *bhd5.Header) []byte {
	var order binary.ByteOrder = binary.LittleEndian
	if h.BigEndian {
		order = binary.BigEndian
	}

	f := h.Format
	headerLen := 0x18
	if f.HasExtendedRecords() {
		headerLen += 4 + len(h.Salt)
	}
	recSize := recordSize(f)

	tableOff := headerLen
	recOff := tableOff + 8*len(h.Buckets)
	auxOff := recOff + recSize*h.FileCount()
	size := auxOff
	for _, b := range h.Buckets {
		for _, rec := range b {
			if rec.SHAHash != nil {
				size += 32 + 4 + 16*len(rec.SHAHash.Ranges)
			}
			if rec.AESKey != nil {
				size += 16 + 4 + 16*len(rec.AESKey.Ranges)
			}
		}
	}

	buf := make([]byte, size)
	copy(buf, bhd5.Magic)
	if !h.BigEndian {
		buf[4] = 0xFF
	}
	if h.Unk05 {
		buf[5] = 1
	}
	order.PutUint32(buf[0x08:], 1)
	order.PutUint32(buf[0x0C:], uint32(size))
	order.PutUint32(buf[0x10:], uint32(len(h.Buckets)))
	order.PutUint32(buf[0x14:], uint32(tableOff))
	if f.HasExtendedRecords() {
		order.PutUint32(buf[0x18:], uint32(len(h.Salt)))
		copy(buf[0x1C:], h.Salt)
	}

	rp := recOff
	ap := auxOff
	for i, b := range h.Buckets {
		order.PutUint32(buf[tableOff+8*i:], uint32(len(b)))
		order.PutUint32(buf[tableOff+8*i+4:], uint32(rp))

		for _, rec := range b {
			p := rp
			if f.Uses64BitHashes() {
				order.PutUint64(buf[p:], rec.NameHash)
				p += 8
			} else {
				order.PutUint32(buf[p:], uint32(rec.NameHash))
				p += 4
			}
			order.PutUint32(buf[p:], uint32(rec.PaddedSize))
			p += 4
			if f == bhd5.EldenRing {
				order.PutUint32(buf[p:], uint32(rec.UnpaddedSize))
				p += 4
			}
			order.PutUint64(buf[p:], uint64(rec.FileOffset))
			p += 8

			if f.HasExtendedRecords() {
				if rec.SHAHash != nil {
					order.PutUint64(buf[p:], uint64(ap))
					copy(buf[ap:], rec.SHAHash.Hash[:])
					ap = putRanges(buf, ap+32, order, rec.SHAHash.Ranges)
				}
				p += 8
				if rec.AESKey != nil {
					order.PutUint64(buf[p:], uint64(ap))
					copy(buf[ap:], rec.AESKey.Key[:])
					ap = putRanges(buf, ap+16, order, rec.AESKey.Ranges)
				}
				p += 8
			}

			if f.UsesUnpaddedSize() && f != bhd5.EldenRing {
				order.PutUint64(buf[p:], uint64(rec.UnpaddedSize))
			}
			rp += recSize
		}
	}

	return buf[:ap]
}

func recordSize(f bhd5.Format) int {
	n := 4 + 4 + 8
	if f.Uses64BitHashes() {
		n += 4
	}
	if f == bhd5.EldenRing {
		n += 4
	}
	if f.HasExtendedRecords() {
		n += 16
	}
	if f.UsesUnpaddedSize() && f != bhd5.EldenRing {
		n += 8
	}
	return n
}

func putRanges(buf []byte, p int, order binary.ByteOrder, ranges []bhd5.Range) int {
	order.PutUint32(buf[p:], uint32(len(ranges)))
	p += 4
	for _, r := range ranges {
		order.PutUint64(buf[p:], uint64(r.Start))
		order.PutUint64(buf[p+8:], uint64(r.End))
		p += 16
	}
	return p
}
