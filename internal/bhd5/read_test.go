package bhd5_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/jchantrell/eblextract/internal/bhd5"
	"github.com/jchantrell/eblextract/internal/bhd5/bhd5test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader(format bhd5.Format, bigEndian bool) *bhd5.Header {
	h := &bhd5.Header{
		Format:    format,
		BigEndian: bigEndian,
		Buckets: []bhd5.Bucket{
			{
				{NameHash: 0x1234, PaddedSize: 32, UnpaddedSize: 32, FileOffset: 0},
				{NameHash: 0x5678, PaddedSize: 16, UnpaddedSize: 16, FileOffset: 32},
			},
			{},
			{
				{NameHash: 0x9ABC, PaddedSize: 48, UnpaddedSize: 48, FileOffset: 48},
			},
		},
	}
	if format.HasExtendedRecords() {
		h.Salt = "FDP_salt"
		h.Buckets[2][0].AESKey = &bhd5.AESKey{
			Key:    [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			Ranges: []bhd5.Range{{Start: 48, End: 64}, {Start: -1, End: -1}},
		}
		h.Buckets[0][1].SHAHash = &bhd5.SHAHash{
			Hash:   [32]byte{0xAA},
			Ranges: []bhd5.Range{{Start: 32, End: 48}},
		}
	}
	if format.UsesUnpaddedSize() {
		h.Buckets[0][0].UnpaddedSize = 27
		h.Buckets[2][0].UnpaddedSize = 40
	}
	if format.Uses64BitHashes() {
		h.Buckets[0][0].NameHash = 0xDEADBEEF_CAFEBABE
	}
	return h
}

func TestParseRoundTrip(t *testing.T) {
	formats := []bhd5.Format{bhd5.DarkSouls1, bhd5.DarkSouls2, bhd5.DarkSouls3, bhd5.Sekiro, bhd5.EldenRing}
	for _, format := range formats {
		for _, bigEndian := range []bool{true, false} {
			want := sampleHeader(format, bigEndian)
			name := format.String()
			if bigEndian {
				name += "/BE"
			}
			t.Run(name, func(t *testing.T) {
				got, err := bhd5.Parse(bhd5test.Encode(want), format)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := bhd5test.Encode(sampleHeader(bhd5.DarkSouls1, true))
	copy(data, "BND3")

	_, err := bhd5.Parse(data, bhd5.DarkSouls1)
	require.ErrorIs(t, err, bhd5.ErrInvalidHeader)

	var fe *bhd5.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, int64(0), fe.Offset)
}

func TestParseRejectsBadEndianMarker(t *testing.T) {
	data := bhd5test.Encode(sampleHeader(bhd5.DarkSouls1, true))
	data[4] = 0x7F
	_, err := bhd5.Parse(data, bhd5.DarkSouls1)
	assert.ErrorIs(t, err, bhd5.ErrInvalidHeader)
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	data := bhd5test.Encode(sampleHeader(bhd5.DarkSouls3, false))
	for _, n := range []int{3, 10, 0x20, len(data) - 1} {
		_, err := bhd5.Parse(data[:n], bhd5.DarkSouls3)
		assert.ErrorIs(t, err, bhd5.ErrInvalidHeader, "truncated to %d", n)
	}
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := bhd5.Parse(nil, bhd5.Format(42))
	assert.Error(t, err)
}

func TestFileLengthFollowsFormat(t *testing.T) {
	rec := &bhd5.FileRecord{PaddedSize: 32, UnpaddedSize: 27}

	assert.Equal(t, int64(32), (&bhd5.Header{Format: bhd5.DarkSouls1}).FileLength(rec))
	assert.Equal(t, int64(32), (&bhd5.Header{Format: bhd5.DarkSouls2}).FileLength(rec))
	assert.Equal(t, int64(27), (&bhd5.Header{Format: bhd5.DarkSouls3}).FileLength(rec))
	assert.Equal(t, int64(27), (&bhd5.Header{Format: bhd5.EldenRing}).FileLength(rec))
}

func TestFormatTraits(t *testing.T) {
	assert.False(t, bhd5.DarkSouls1.Uses64BitHashes())
	assert.False(t, bhd5.Sekiro.Uses64BitHashes())
	assert.True(t, bhd5.EldenRing.Uses64BitHashes())
	assert.False(t, bhd5.DarkSouls1.HasExtendedRecords())
	assert.True(t, bhd5.DarkSouls2.HasExtendedRecords())

	f, err := bhd5.ParseFormat("darksouls3")
	require.NoError(t, err)
	assert.Equal(t, bhd5.DarkSouls3, f)

	_, err = bhd5.ParseFormat("bloodborne")
	assert.Error(t, err)
}

func TestRangeLen(t *testing.T) {
	assert.Equal(t, int64(16), bhd5.Range{Start: 16, End: 32}.Len())
	assert.Equal(t, int64(0), bhd5.Range{Start: 32, End: 32}.Len())
	assert.Equal(t, int64(0), bhd5.Range{Start: 32, End: 16}.Len())
	assert.Equal(t, int64(0), bhd5.Range{Start: -1, End: -1}.Len())
}

// rawEncrypt applies the private exponent block by block, the inverse of DecryptRSA.
func rawEncrypt(t *testing.T, key *rsa.PrivateKey, plain []byte) []byte {
	t.Helper()

	inSize := (key.N.BitLen() - 1) / 8
	outSize := (key.N.BitLen() + 7) / 8
	require.Zero(t, len(plain)%inSize)

	var out []byte
	for off := 0; off < len(plain); off += inSize {
		m := new(big.Int).SetBytes(plain[off : off+inSize])
		c := new(big.Int).Exp(m, key.D, key.N)
		block := make([]byte, outSize)
		c.FillBytes(block)
		out = append(out, block...)
	}
	return out
}

func TestReadEncryptedFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	want := sampleHeader(bhd5.DarkSouls1, true)
	plain := bhd5test.Encode(want)
	blockSize := (key.N.BitLen() - 1) / 8
	if rem := len(plain) % blockSize; rem != 0 {
		plain = append(plain, make([]byte, blockSize-rem)...)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "dvdbnd5.bhd")
	require.NoError(t, os.WriteFile(path, rawEncrypt(t, key, plain), 0o644))

	for _, pemKey := range [][]byte{
		pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)}),
		mustPKIX(t, &key.PublicKey),
	} {
		got, err := bhd5.ReadEncryptedFile(path, pemKey, bhd5.DarkSouls1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func mustPKIX(t *testing.T, pub *rsa.PublicKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func TestDecryptRSARejectsBadInput(t *testing.T) {
	_, err := bhd5.DecryptRSA([]byte{1, 2, 3}, []byte("not a pem"))
	assert.ErrorIs(t, err, bhd5.ErrInvalidKey)

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})

	_, err = bhd5.DecryptRSA(bytes.Repeat([]byte{1}, 100), pemKey)
	assert.ErrorIs(t, err, bhd5.ErrInvalidHeader)
}
