package binder

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// newRangeCipher builds the AES-128 block cipher for one file read.
func newRangeCipher(key [16]byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	return block, nil
}

// decryptECB decrypts p in place, one block at a time with no chaining or padding.
func decryptECB(block cipher.Block, p []byte) error {
	bs := block.BlockSize()
	if len(p)%bs != 0 {
		return fmt.Errorf("%w: %d bytes", ErrRangeNotBlockAligned, len(p))
	}
	for off := 0; off < len(p); off += bs {
		block.Decrypt(p[off:off+bs], p[off:off+bs])
	}
	return nil
}
