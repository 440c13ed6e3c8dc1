// Package binder reads files out of hash-indexed archives.
//
// Names are never stored in the archive itself. A HashDictionary built from an
// external name list maps the stored hashes back to paths; records whose hash
// has no known name are still readable under a synthetic path.
package binder

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
)

const (
	prime32 uint32 = 37
	prime64 uint64 = 133
)

// HashDictionary maps name hashes to the names they were computed from.
// It is not safe for concurrent mutation; once loaded it may be read from many goroutines.
type HashDictionary struct {
	bit64 bool
	names map[uint64]string
}

// NewHashDictionary returns an empty dictionary using 64-bit hashes when bit64 is set.
func NewHashDictionary(bit64 bool) *HashDictionary {
	return &HashDictionary{bit64: bit64, names: make(map[uint64]string)}
}

// normalizeName trims, converts backslashes, lower-cases and roots a path.
func normalizeName(name string) string {
	s := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

// ComputeHash hashes the normalized form of path over its UTF-16 code units.
// 32-bit hashes are zero-extended.
func ComputeHash(path string, bit64 bool) uint64 {
	units := utf16.Encode([]rune(normalizeName(path)))

	if bit64 {
		var acc uint64
		for _, c := range units {
			acc = acc*prime64 + uint64(c)
		}
		return acc
	}

	var acc uint32
	for _, c := range units {
		acc = acc*prime32 + uint32(c)
	}
	return uint64(acc)
}

// Is64Bit reports the hash width.
func (d *HashDictionary) Is64Bit() bool {
	return d.bit64
}

// Hash computes the hash of name at the dictionary's width.
func (d *HashDictionary) Hash(name string) uint64 {
	return ComputeHash(name, d.bit64)
}

// Collides reports whether a and b normalize to the same name or hash to the same value.
func (d *HashDictionary) Collides(a, b string) bool {
	return normalizeName(a) == normalizeName(b) || d.Hash(a) == d.Hash(b)
}

// Add inserts name. The dictionary is unchanged when an error is returned.
// Adding a name that normalizes to one already present returns ErrDuplicate;
// a different name with the same hash returns ErrHashCollision.
func (d *HashDictionary) Add(name string) error {
	hash := d.Hash(name)
	existing, ok := d.names[hash]
	if !ok {
		d.names[hash] = name
		return nil
	}

	err := ErrHashCollision
	if normalizeName(existing) == normalizeName(name) {
		err = ErrDuplicate
	}
	return &HashError{Hash: hash, Name: name, Existing: existing, Err: err}
}

// TryAdd inserts name unless its hash is already taken. The first name added for a hash wins.
func (d *HashDictionary) TryAdd(name string) bool {
	_, ok := d.TryAddHash(name)
	return ok
}

// TryAddHash is TryAdd that also returns the computed hash.
func (d *HashDictionary) TryAddHash(name string) (uint64, bool) {
	hash := d.Hash(name)
	if _, ok := d.names[hash]; ok {
		return hash, false
	}
	d.names[hash] = name
	return hash, true
}

// AddRange adds every name in order and stops at the first failure.
// Names added before the failure stay in the dictionary.
func (d *HashDictionary) AddRange(names []string) error {
	for _, name := range names {
		if err := d.Add(name); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the entry for name's hash.
func (d *HashDictionary) Remove(name string) bool {
	hash := d.Hash(name)
	if _, ok := d.names[hash]; !ok {
		return false
	}
	delete(d.names, hash)
	return true
}

// Contains reports whether name's hash is present.
func (d *HashDictionary) Contains(name string) bool {
	_, ok := d.names[d.Hash(name)]
	return ok
}

// Get returns the name stored for hash.
func (d *HashDictionary) Get(hash uint64) (string, bool) {
	name, ok := d.names[hash]
	return name, ok
}

// Len returns the number of entries.
func (d *HashDictionary) Len() int {
	return len(d.names)
}

// LoadNames adds every non-blank line of r.
//
// In strict mode the first duplicate or collision aborts loading with an error.
// Otherwise rejected lines are returned and loading continues.
func (d *HashDictionary) LoadNames(r io.Reader, strict bool) (rejected []string, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}

		if strict {
			if err := d.Add(name); err != nil {
				return rejected, fmt.Errorf("name list line %d: %w", line, err)
			}
			continue
		}
		if !d.TryAdd(name) {
			rejected = append(rejected, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return rejected, fmt.Errorf("reading name list: %w", err)
	}
	return rejected, nil
}
