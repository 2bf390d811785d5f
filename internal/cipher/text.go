// Package cipher orchestrates AES-256-CBC encryption of in-memory text and
// chunked binary streams over a crypto provider. It owns the sequencing and
// encoding transitions; the primitives live behind the provider interface.
package cipher

import (
	"encoding/base64"
	"fmt"

	"github.com/packseal/packseal/internal/keyderive"
	"github.com/packseal/packseal/internal/provider"
)

// EncryptText encrypts plaintext with the derived key and salt-as-IV and
// returns the base64-encoded ciphertext. Deterministic for a fixed
// (key, salt, plaintext) triple. Zero-length plaintext yields the
// padding-only block, so the result is never empty.
func EncryptText(p provider.Provider, key keyderive.Key, salt, plaintext string) (string, error) {
	cctx, err := newContext(p, key, salt, true)
	if err != nil {
		return "", err
	}

	out, err := cctx.Update([]byte(plaintext))
	if err != nil {
		return "", &CipherError{Op: "encrypt", Err: err}
	}
	fin, err := cctx.Final()
	if err != nil {
		return "", &CipherError{Op: "encrypt", Err: err}
	}

	return base64.StdEncoding.EncodeToString(append(out, fin...)), nil
}

// DecryptText is the inverse of EncryptText. A ciphertext that is malformed,
// truncated to a non-block-aligned length, or produced under a different
// key/salt fails with a CipherError wrapping the primitive's rejection.
func DecryptText(p provider.Provider, key keyderive.Key, salt, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &CipherError{Op: "decrypt", Err: fmt.Errorf("invalid ciphertext encoding: %w", err)}
	}

	dctx, err := newContext(p, key, salt, false)
	if err != nil {
		return "", err
	}

	out, err := dctx.Update(raw)
	if err != nil {
		return "", &CipherError{Op: "decrypt", Err: err}
	}
	fin, err := dctx.Final()
	if err != nil {
		return "", &CipherError{Op: "decrypt", Err: err}
	}

	return string(append(out, fin...)), nil
}

// newContext decodes the key and salt and builds a cipher or decipher
// context. The capability check happens before any key material reaches the
// provider.
func newContext(p provider.Provider, key keyderive.Key, salt string, encrypt bool) (provider.CipherContext, error) {
	op := "decrypt"
	if encrypt {
		op = "encrypt"
	}
	if p == nil {
		return nil, &CipherError{Op: op, Err: fmt.Errorf("cipher primitive: %w", provider.ErrNotSupported)}
	}

	rawKey, err := base64.StdEncoding.DecodeString(string(key))
	if err != nil {
		return nil, &CipherError{Op: op, Err: fmt.Errorf("invalid key encoding: %w", err)}
	}
	rawIV, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, &CipherError{Op: op, Err: fmt.Errorf("invalid salt encoding: %w", err)}
	}

	var cctx provider.CipherContext
	if encrypt {
		cctx, err = p.NewCipherContext(rawKey, rawIV)
	} else {
		cctx, err = p.NewDecipherContext(rawKey, rawIV)
	}
	// The context holds its own key schedule; the decoded key material is
	// not needed past this point.
	zeroBytes(rawKey)
	if err != nil {
		return nil, &CipherError{Op: op, Err: err}
	}
	return cctx, nil
}

// zeroBytes securely wipes sensitive data from memory.
func zeroBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
