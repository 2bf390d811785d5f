package provider

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// NameWebCrypto is the registry name of the buffered provider.
const NameWebCrypto = "webcrypto"

// webCryptoProvider implements Provider in the shape of the browser
// SubtleCrypto API: there is no incremental cipher interface, so Update
// buffers input and Final performs the whole CBC pass in one shot. The wire
// output is byte-identical to the native provider for the same inputs.
type webCryptoProvider struct {
	native nativeProvider
}

// NewWebCrypto returns the buffered provider.
func NewWebCrypto() Provider {
	return &webCryptoProvider{}
}

func (webCryptoProvider) Name() string { return NameWebCrypto }

func (p *webCryptoProvider) RandomBytes(n int) ([]byte, error) {
	return p.native.RandomBytes(n)
}

func (p *webCryptoProvider) DeriveBits(password, salt []byte, iterations, length int) ([]byte, error) {
	return p.native.DeriveBits(password, salt, iterations, length)
}

func (p *webCryptoProvider) NewCipherContext(key, iv []byte) (CipherContext, error) {
	return newOneShotContext(key, iv, true)
}

func (p *webCryptoProvider) NewDecipherContext(key, iv []byte) (CipherContext, error) {
	return newOneShotContext(key, iv, false)
}

// oneShotContext accumulates all input and runs a single CBC pass at Final.
type oneShotContext struct {
	block   cipher.Block
	iv      []byte
	encrypt bool
	buf     []byte
	done    bool
}

func newOneShotContext(key, iv []byte, encrypt bool) (*oneShotContext, error) {
	if err := validateKeyAndIV(key, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	ivCopy := make([]byte, len(iv))
	copy(ivCopy, iv)
	return &oneShotContext{block: block, iv: ivCopy, encrypt: encrypt}, nil
}

func (c *oneShotContext) Update(chunk []byte) ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.buf = append(c.buf, chunk...)
	return nil, nil
}

func (c *oneShotContext) Final() ([]byte, error) {
	if c.done {
		return nil, errFinalized
	}
	c.done = true

	if c.encrypt {
		padded := pkcs7Pad(c.buf, BlockSize)
		out := make([]byte, len(padded))
		cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
		c.buf = nil
		return out, nil
	}

	if len(c.buf) == 0 || len(c.buf)%BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is truncated or not block-aligned: %d bytes", len(c.buf))
	}
	out := make([]byte, len(c.buf))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, c.buf)
	c.buf = nil
	return pkcs7Unpad(out)
}

func init() {
	Register(NewWebCrypto())
}
