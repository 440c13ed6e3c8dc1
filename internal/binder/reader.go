package binder

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"strconv"

	"github.com/jchantrell/eblextract/internal/bhd5"
	"github.com/jchantrell/eblextract/internal/keys"
	"github.com/jchantrell/eblextract/internal/stream"
)

// UnknownDir is the synthetic directory holding records with no known name.
const UnknownDir = "/_unknown/"

// ReaderConfig controls how a Reader resolves names.
type ReaderConfig struct {
	// Names maps hashes to paths. Nil means an empty dictionary of the header's hash width.
	Names *HashDictionary
	// Strategy maps hashes to buckets. Nil means ModulusStrategy over the header's buckets.
	Strategy BucketIndexStrategy
	// LeaveDataOpen keeps the data handle open when the Reader is closed.
	LeaveDataOpen bool
}

// Reader resolves names against a parsed header and reads file content from the data stream.
type Reader struct {
	header   *bhd5.Header
	data     *stream.Shared
	names    *HashDictionary
	strategy BucketIndexStrategy
}

// NewReader builds a Reader over header and data. The Reader takes ownership of data
// unless cfg.LeaveDataOpen is set.
func NewReader(header *bhd5.Header, data io.ReadSeeker, cfg ReaderConfig) (*Reader, error) {
	if header == nil {
		return nil, errors.New("binder: nil header")
	}
	if data == nil {
		return nil, errors.New("binder: nil data stream")
	}

	bit64 := header.Format.Uses64BitHashes()
	names := cfg.Names
	if names == nil {
		names = NewHashDictionary(bit64)
	}
	if names.Is64Bit() != bit64 {
		return nil, fmt.Errorf("binder: name dictionary uses 64-bit hashes=%t, header %v expects %t", names.Is64Bit(), header.Format, bit64)
	}

	strategy := cfg.Strategy
	if strategy == nil {
		strategy = ModulusStrategy{Count: len(header.Buckets)}
	}

	return &Reader{
		header:   header,
		data:     stream.NewShared(data, cfg.LeaveDataOpen),
		names:    names,
		strategy: strategy,
	}, nil
}

// OpenOptions configures Open.
type OpenOptions struct {
	Format bhd5.Format
	// Keys locates the name list and header key. Nil opens a plaintext header with no names.
	Keys *keys.Set
	// StrictNames fails on the first duplicate or colliding name instead of skipping it.
	StrictNames bool
}

// Open reads the header at headerPath, decrypting it when a key is available,
// loads the archive's name list and opens the data file.
func Open(headerPath, dataPath string, opts OpenOptions) (*Reader, error) {
	names := NewHashDictionary(opts.Format.Uses64BitHashes())

	var pemKey []byte
	if opts.Keys != nil {
		if err := loadNameList(names, opts.Keys, headerPath, opts.StrictNames); err != nil {
			return nil, err
		}

		key, ok, err := opts.Keys.ReadKey(headerPath)
		if err != nil {
			return nil, err
		}
		if ok {
			pemKey = key
		}
	}

	var header *bhd5.Header
	var err error
	if pemKey != nil {
		header, err = bhd5.ReadEncryptedFile(headerPath, pemKey, opts.Format)
	} else {
		header, err = bhd5.ReadFile(headerPath, opts.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("opening archive header: %w", err)
	}

	data, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive data: %w", err)
	}

	r, err := NewReader(header, data, ReaderConfig{Names: names})
	if err != nil {
		data.Close()
		return nil, err
	}

	slog.Debug("opened archive",
		"header", headerPath,
		"data", dataPath,
		"encrypted_header", pemKey != nil,
		"buckets", len(header.Buckets),
		"files", header.FileCount(),
		"names", names.Len())

	return r, nil
}

func loadNameList(names *HashDictionary, set *keys.Set, headerPath string, strict bool) error {
	rc, ok, err := set.OpenHashList(headerPath)
	if err != nil {
		return err
	}
	if !ok {
		slog.Warn("no name list found, files will be extracted under unknown names", "path", set.HashListPath(headerPath))
		return nil
	}
	defer rc.Close()

	rejected, err := names.LoadNames(rc, strict)
	if err != nil {
		return fmt.Errorf("loading %s: %w", set.HashListPath(headerPath), err)
	}
	for _, name := range rejected {
		slog.Warn("skipping name with a taken hash", "name", name, "hash", names.Hash(name))
	}
	return nil
}

// Header returns the parsed header.
func (r *Reader) Header() *bhd5.Header { return r.header }

// Names returns the name dictionary.
func (r *Reader) Names() *HashDictionary { return r.names }

// Len returns the number of records in the archive.
func (r *Reader) Len() int { return r.header.FileCount() }

// FileExists reports whether name resolves to a record.
func (r *Reader) FileExists(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

// OpenFile resolves name to a File. A missing name returns an *fs.PathError wrapping ErrNotFound.
func (r *Reader) OpenFile(name string) (*File, error) {
	f, ok := r.TryOpenFile(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrNotFound}
	}
	return f, nil
}

// TryOpenFile resolves name to a File, reporting false when it is not in the archive.
// A record whose hash has no dictionary entry is named as Files names it.
func (r *Reader) TryOpenFile(name string) (*File, bool) {
	rec, ok := r.lookup(name)
	if !ok {
		return nil, false
	}
	return r.newFile(rec), true
}

// Files yields every record, bucket by bucket in stored order.
func (r *Reader) Files() iter.Seq[*File] {
	return func(yield func(*File) bool) {
		for bi := range r.header.Buckets {
			bucket := r.header.Buckets[bi]
			for ri := range bucket {
				if !yield(r.newFile(&bucket[ri])) {
					return
				}
			}
		}
	}
}

// Close releases the data handle. Reads from the Reader's files fail with ErrClosed afterwards.
func (r *Reader) Close() error {
	return r.data.Close()
}

// newFile names rec from the dictionary, falling back to UnknownDir + decimal hash.
func (r *Reader) newFile(rec *bhd5.FileRecord) *File {
	path, known := r.names.Get(rec.NameHash)
	if !known {
		path = UnknownDir + strconv.FormatUint(rec.NameHash, 10)
	}
	return &File{
		reader:  r,
		record:  rec,
		path:    path,
		unknown: !known,
		length:  r.header.FileLength(rec),
	}
}

// lookup hashes name, selects its bucket and returns the first record with a matching hash.
func (r *Reader) lookup(name string) (*bhd5.FileRecord, bool) {
	hash := r.names.Hash(name)
	idx := r.strategy.BucketIndex(hash)
	if idx < 0 || idx >= len(r.header.Buckets) {
		return nil, false
	}

	bucket := r.header.Buckets[idx]
	for i := range bucket {
		if bucket[i].NameHash == hash {
			return &bucket[i], true
		}
	}
	return nil, false
}
