package bhd5

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
)

// ErrInvalidKey is returned when the PEM key material cannot be used.
var ErrInvalidKey = errors.New("invalid RSA header key")

// ParsePublicKey decodes a PKCS#1 or PKIX PEM encoded RSA public key.
func ParsePublicKey(pemKey []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidKey)
	}

	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		return key, nil
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: key is %T, not RSA", ErrInvalidKey, parsed)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrInvalidKey, block.Type)
	}
}

// DecryptRSA undoes the raw RSA transform applied to encrypted headers.
// Input is consumed in blocks of the modulus size; each block is raised to the
// public exponent and written left-padded to one byte less than the modulus size.
func DecryptRSA(data []byte, pemKey []byte) ([]byte, error) {
	key, err := ParsePublicKey(pemKey)
	if err != nil {
		return nil, err
	}

	bitLen := key.N.BitLen()
	inSize := (bitLen + 7) / 8
	outSize := (bitLen - 1) / 8
	if len(data)%inSize != 0 {
		return nil, fmt.Errorf("%w: encrypted header length %d is not a multiple of %d", ErrInvalidHeader, len(data), inSize)
	}

	e := big.NewInt(int64(key.E))
	out := make([]byte, 0, len(data)/inSize*outSize)
	c := new(big.Int)
	m := new(big.Int)
	for off := 0; off < len(data); off += inSize {
		c.SetBytes(data[off : off+inSize])
		m.Exp(c, e, key.N)

		block := m.Bytes()
		if pad := outSize - len(block); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
		out = append(out, block...)
	}

	return out, nil
}

// ReadEncryptedFile decrypts the header at path with pemKey and parses it.
func ReadEncryptedFile(path string, pemKey []byte, format Format) (*Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading header %s: %w", path, err)
	}

	plain, err := DecryptRSA(data, pemKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting header %s: %w", path, err)
	}
	return Parse(plain, format)
}
