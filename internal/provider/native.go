package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// NameNative is the registry name of the streaming provider.
const NameNative = "native"

// nativeProvider implements Provider with incremental CBC contexts in the
// style of a Node/mobile runtime: every complete block is emitted as soon as
// it is available and only the trailing partial block waits for Final.
type nativeProvider struct{}

// NewNative returns the streaming provider.
func NewNative() Provider {
	return &nativeProvider{}
}

func (nativeProvider) Name() string { return NameNative }

func (nativeProvider) RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid random byte count: %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read secure random bytes: %w", err)
	}
	return buf, nil
}

func (nativeProvider) DeriveBits(password, salt []byte, iterations, length int) ([]byte, error) {
	if iterations <= 0 || length <= 0 {
		return nil, fmt.Errorf("invalid derivation parameters: iterations=%d length=%d", iterations, length)
	}
	return pbkdf2.Key(password, salt, iterations, length, sha256.New), nil
}

func (nativeProvider) NewCipherContext(key, iv []byte) (CipherContext, error) {
	if err := validateKeyAndIV(key, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &cbcEncryptContext{mode: cipher.NewCBCEncrypter(block, iv)}, nil
}

func (nativeProvider) NewDecipherContext(key, iv []byte) (CipherContext, error) {
	if err := validateKeyAndIV(key, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &cbcDecryptContext{mode: cipher.NewCBCDecrypter(block, iv)}, nil
}

// cbcEncryptContext streams plaintext through CBC. Complete blocks are
// encrypted immediately; the carry holds the trailing partial block until
// Final pads it.
type cbcEncryptContext struct {
	mode  cipher.BlockMode
	carry []byte
	done  bool
}

func (c *cbcEncryptContext) Update(chunk []byte) ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.carry = append(c.carry, chunk...)
	n := len(c.carry) / BlockSize * BlockSize
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	c.mode.CryptBlocks(out, c.carry[:n])
	c.carry = append(c.carry[:0], c.carry[n:]...)
	return out, nil
}

func (c *cbcEncryptContext) Final() ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.done = true
	// PKCS#7 always appends 1..BlockSize bytes, so the final block is
	// non-empty even for zero-length input.
	padded := pkcs7Pad(c.carry, BlockSize)
	out := make([]byte, len(padded))
	c.mode.CryptBlocks(out, padded)
	c.carry = nil
	return out, nil
}

// cbcDecryptContext streams ciphertext through CBC. The last complete block
// is always held back because it may carry the padding, which only Final can
// strip.
type cbcDecryptContext struct {
	mode  cipher.BlockMode
	carry []byte
	done  bool
}

func (c *cbcDecryptContext) Update(chunk []byte) ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.carry = append(c.carry, chunk...)
	if len(c.carry) <= BlockSize {
		return nil, nil
	}
	n := (len(c.carry) - BlockSize) / BlockSize * BlockSize
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	c.mode.CryptBlocks(out, c.carry[:n])
	c.carry = append(c.carry[:0], c.carry[n:]...)
	return out, nil
}

func (c *cbcDecryptContext) Final() ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.done = true
	if len(c.carry) != BlockSize {
		return nil, fmt.Errorf("ciphertext is truncated or not block-aligned: %d trailing bytes", len(c.carry))
	}
	out := make([]byte, BlockSize)
	c.mode.CryptBlocks(out, c.carry)
	c.carry = nil
	return pkcs7Unpad(out)
}

func init() {
	Register(NewNative())
}
