package export

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jchantrell/eblextract/internal/bhd5"
	"github.com/jchantrell/eblextract/internal/binder"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

type fixture struct {
	name    string
	content []byte
	known   bool
}

func newReader(t *testing.T, files ...fixture) *binder.Reader {
	t.Helper()

	const buckets = 3
	names := binder.NewHashDictionary(false)
	h := &bhd5.Header{Format: bhd5.DarkSouls1, Buckets: make([]bhd5.Bucket, buckets)}
	var data []byte
	for _, f := range files {
		hash := binder.ComputeHash(f.name, false)
		if f.known {
			require.NoError(t, names.Add(f.name))
		}
		rec := bhd5.FileRecord{
			NameHash:     hash,
			PaddedSize:   int64(len(f.content)),
			UnpaddedSize: int64(len(f.content)),
			FileOffset:   int64(len(data)),
		}
		idx := binder.ModulusStrategy{Count: buckets}.BucketIndex(hash)
		h.Buckets[idx] = append(h.Buckets[idx], rec)
		data = append(data, f.content...)
	}

	r, err := binder.NewReader(h, bytes.NewReader(data), binder.ReaderConfig{Names: names})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func TestExportWritesTree(t *testing.T) {
	r := newReader(t,
		fixture{name: "/chr/c0000.chrbnd", content: []byte("chr data"), known: true},
		fixture{name: "/Map/M10.msb", content: []byte("map data"), known: true},
		fixture{name: "/empty.txt", content: nil, known: true},
		fixture{name: "/hidden.bin", content: []byte("hidden"), known: false},
	)

	out := t.TempDir()
	var calls int
	results, stats, err := NewExporter(Options{OutputDir: out, Lowercase: true, Workers: 2}).
		Export(context.Background(), r, func(current, total int, _ string) {
			calls++
			assert.LessOrEqual(t, current, total)
		})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, int64(len("chr data")+len("map data")+len("hidden")), stats.Bytes)
	assert.Equal(t, 4, calls)
	require.Len(t, results, 4)

	got, err := os.ReadFile(filepath.Join(out, "chr", "c0000.chrbnd"))
	require.NoError(t, err)
	assert.Equal(t, "chr data", string(got))

	got, err = os.ReadFile(filepath.Join(out, "map", "m10.msb"))
	require.NoError(t, err)
	assert.Equal(t, "map data", string(got))

	info, err := os.Stat(filepath.Join(out, "empty.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	unknownOut := filepath.Join(out, "_unknown", binderHashString(t, "/hidden.bin"))
	got, err = os.ReadFile(unknownOut)
	require.NoError(t, err)
	assert.Equal(t, "hidden", string(got))

	for _, res := range results {
		content, err := os.ReadFile(filepath.Join(out, res.Output))
		require.NoError(t, err)
		assert.Equal(t, digest(content), res.Digest, res.Path)
	}
}

func binderHashString(t *testing.T, name string) string {
	t.Helper()
	return strconv.FormatUint(binder.ComputeHash(name, false), 10)
}

func TestExportSkipUnknown(t *testing.T) {
	r := newReader(t,
		fixture{name: "/known.bin", content: []byte("k"), known: true},
		fixture{name: "/unknown.bin", content: []byte("u"), known: false},
	)

	out := t.TempDir()
	results, stats, err := NewExporter(Options{OutputDir: out, SkipUnknown: true}).Export(context.Background(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, results, 1)
	assert.Equal(t, "/known.bin", results[0].Path)

	_, err = os.Stat(filepath.Join(out, "_unknown"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportDecompressesDCX(t *testing.T) {
	raw := bytes.Repeat([]byte("param "), 200)
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	container := make([]byte, 0x4C)
	be := binary.BigEndian
	copy(container, "DCX\x00")
	copy(container[0x18:], "DCS\x00")
	be.PutUint32(container[0x1C:], uint32(len(raw)))
	be.PutUint32(container[0x20:], uint32(z.Len()))
	copy(container[0x24:], "DCP\x00")
	copy(container[0x28:], "DFLT")
	be.PutUint32(container[0x2C:], 0x20)
	copy(container[0x44:], "DCA\x00")
	be.PutUint32(container[0x48:], 8)
	container = append(container, z.Bytes()...)

	r := newReader(t,
		fixture{name: "/param/gameparam.parambnd.dcx", content: container, known: true},
		fixture{name: "/plain.txt", content: []byte("plain"), known: true},
	)

	out := t.TempDir()
	results, _, err := NewExporter(Options{OutputDir: out, DecompressDCX: true}).Export(context.Background(), r, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(out, "param", "gameparam.parambnd.dcx"))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	for _, res := range results {
		if res.Path == "/param/gameparam.parambnd.dcx" {
			assert.True(t, res.Decompressed)
			assert.Equal(t, digest(raw), res.Digest)
		} else {
			assert.False(t, res.Decompressed)
		}
	}
}

func TestExportCancelled(t *testing.T) {
	r := newReader(t, fixture{name: "/a.bin", content: []byte("abc"), known: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewExporter(Options{OutputDir: t.TempDir()}).Export(ctx, r, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportSharedOutputLastWins(t *testing.T) {
	r := newReader(t,
		fixture{name: "c:/data/x.bin", content: []byte("from c"), known: true},
		fixture{name: "d:/data/x.bin", content: bytes.Repeat([]byte("from d "), 4096), known: true},
		fixture{name: "/data/y.bin", content: []byte("y"), known: true},
	)

	out := t.TempDir()
	results, stats, err := NewExporter(Options{OutputDir: out, Workers: 4}).Export(context.Background(), r, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, stats.Files)

	want := map[string]string{"c:/data/x.bin": "from c", "d:/data/x.bin": string(bytes.Repeat([]byte("from d "), 4096))}
	var last string
	for _, res := range results {
		if res.Output == filepath.Join("data", "x.bin") {
			last = res.Path
		}
	}
	require.NotEmpty(t, last)

	got, err := os.ReadFile(filepath.Join(out, "data", "x.bin"))
	require.NoError(t, err)
	assert.Equal(t, want[last], string(got))
}

func TestCleanComponentPath(t *testing.T) {
	tests := []struct {
		in        string
		lowercase bool
		want      string
	}{
		{in: "/chr/c0000.chrbnd", want: "chr/c0000.chrbnd"},
		{in: `N:\FRPG\data\Model\chr.bnd`, want: "FRPG/data/Model/chr.bnd"},
		{in: `N:\FRPG\data\Model\chr.bnd`, lowercase: true, want: "frpg/data/model/chr.bnd"},
		{in: "//double/slash", want: "double/slash"},
		{in: "/_unknown/12345", want: "_unknown/12345"},
	}
	for _, tt := range tests {
		assert.Equal(t, filepath.FromSlash(tt.want), CleanComponentPath(tt.in, tt.lowercase), tt.in)
	}
}

func TestCreatePath(t *testing.T) {
	base := t.TempDir()

	out, err := CreatePath(base, filepath.Join("a", "b", "c.bin"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "a", "b", "c.bin"), out)
	info, err := os.Stat(filepath.Join(base, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = CreatePath(base, filepath.Join("..", "escape.bin"))
	assert.Error(t, err)
	_, err = CreatePath(base, "")
	assert.Error(t, err)
}
