// Package keyderive turns a password and a per-package random salt into the
// AES-256 key and the persistable fingerprint hash of the sealing protocol.
package keyderive

import (
	"encoding/base64"
	"fmt"

	"github.com/packseal/packseal/internal/provider"
)

// Key is a base64-encoded 32-byte derived encryption key. It is as sensitive
// as the password it was derived from and must never be persisted.
type Key string

// Fingerprint is a base64-encoded 32-byte hash produced by a second
// derivation pass over a Key. It is safe to persist for package lookup and
// password verification: the extra pass is what prevents recovering the Key,
// so a Fingerprint must never be submitted where a Key is expected. The
// distinct types exist to keep callers from crossing the two.
type Fingerprint string

// DerivationError wraps a failure of the underlying derivation primitive.
type DerivationError struct {
	Err error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("key derivation failed: %v", e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// GenerateSalt returns a fresh base64-encoded 16-byte salt. The salt doubles
// as the AES-CBC initialization vector and is generated once per protected
// package.
func GenerateSalt(p provider.Provider) (string, error) {
	if p == nil {
		return "", fmt.Errorf("secure random source: %w", provider.ErrNotSupported)
	}
	raw, err := p.RandomBytes(provider.SaltLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DeriveKey derives the AES-256 key from the password and base64-encoded
// salt. Deterministic: identical inputs always yield the identical key.
func DeriveKey(p provider.Provider, password, salt string) (Key, error) {
	if p == nil {
		return "", fmt.Errorf("key derivation function: %w", provider.ErrNotSupported)
	}
	rawSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", &DerivationError{Err: fmt.Errorf("invalid salt encoding: %w", err)}
	}
	bits, err := p.DeriveBits([]byte(password), rawSalt, provider.Iterations, provider.KeyLength)
	if err != nil {
		return "", &DerivationError{Err: err}
	}
	return Key(base64.StdEncoding.EncodeToString(bits)), nil
}

// DeriveFingerprint runs two full derivation passes: the base64 form of the
// derived key feeds the second pass as its password. Failures from either
// pass propagate unchanged.
func DeriveFingerprint(p provider.Provider, password, salt string) (Fingerprint, error) {
	key, err := DeriveKey(p, password, salt)
	if err != nil {
		return "", err
	}
	second, err := DeriveKey(p, string(key), salt)
	if err != nil {
		return "", err
	}
	return Fingerprint(second), nil
}
