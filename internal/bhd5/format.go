package bhd5

import (
	"fmt"
	"strings"
)

// Format identifies the header generation. It decides record layout, hash
// width and which length field is authoritative.
type Format int

const (
	DarkSouls1 Format = iota
	DarkSouls2
	DarkSouls3
	Sekiro
	EldenRing
)

// formatTraits describes one header generation.
type formatTraits struct {
	name string
	// hash64 means name hashes are 64-bit.
	hash64 bool
	// unpadded means UnpaddedSize is the exact content length.
	unpadded bool
	// extended means the header carries a salt and records carry SHA/AES offsets.
	extended bool
	// inlineUnpadded means the unpadded size is an int32 stored right after the padded size.
	inlineUnpadded bool
}

var formats = map[Format]formatTraits{
	DarkSouls1: {name: "DarkSouls1"},
	DarkSouls2: {name: "DarkSouls2", extended: true},
	DarkSouls3: {name: "DarkSouls3", extended: true, unpadded: true},
	Sekiro:     {name: "Sekiro", extended: true, unpadded: true},
	EldenRing:  {name: "EldenRing", extended: true, unpadded: true, hash64: true, inlineUnpadded: true},
}

// ParseFormat resolves a format by name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	for f, t := range formats {
		if strings.EqualFold(t.name, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown BHD5 format %q", name)
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

func (f Format) String() string {
	if t, ok := formats[f]; ok {
		return t.name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Uses64BitHashes reports whether name hashes are 64-bit.
func (f Format) Uses64BitHashes() bool {
	return formats[f].hash64
}

// UsesUnpaddedSize reports whether UnpaddedSize is the authoritative file length.
// Older generations only store the block-padded size.
func (f Format) UsesUnpaddedSize() bool {
	return formats[f].unpadded
}

// HasExtendedRecords reports whether the header has a salt and records carry SHA/AES offsets.
func (f Format) HasExtendedRecords() bool {
	return formats[f].extended
}
