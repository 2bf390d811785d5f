package provider

import (
	"errors"
	"fmt"
	"sync"
)

// Protocol constants shared by every provider. These are exact values of the
// wire format: changing any of them breaks compatibility with packages sealed
// on other runtimes.
const (
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100000

	// KeyLength is the derived key length in bytes (AES-256).
	KeyLength = 32

	// SaltLength is the salt/IV length in bytes. The salt doubles as the
	// AES-CBC initialization vector.
	SaltLength = 16

	// BlockSize is the AES cipher block size in bytes.
	BlockSize = 16
)

// ErrNotSupported is returned when a provider lacks a required primitive on
// the current runtime. Operations check for it before touching any key
// material.
var ErrNotSupported = errors.New("required crypto primitive is not supported by this provider")

// errFinalized is returned when a cipher context is used after Final.
var errFinalized = errors.New("cipher context already finalized")

// CipherContext is a stateful AES-256-CBC encryption or decryption context.
// Block-chaining state carries across Update calls, so a single context must
// process all chunks of one logical operation, strictly in order. Final must
// be called exactly once; the context is unusable afterward.
type CipherContext interface {
	// Update feeds a chunk and returns the incremental output, which may be
	// empty while the context is buffering toward a block boundary.
	Update(chunk []byte) ([]byte, error)

	// Final flushes the remaining state. For encryption this emits the
	// padded trailing block; for decryption it validates and strips padding.
	Final() ([]byte, error)
}

// Provider is the capability set consumed by the key derivation and cipher
// orchestration layers. Two implementations ship with the module: the
// streaming "native" provider and the buffered "webcrypto" provider. Both
// produce byte-identical output for identical inputs.
type Provider interface {
	// Name returns the registry name of the provider.
	Name() string

	// RandomBytes returns n cryptographically secure random bytes.
	RandomBytes(n int) ([]byte, error)

	// DeriveBits runs PBKDF2-HMAC-SHA256 over the password and salt.
	DeriveBits(password, salt []byte, iterations, length int) ([]byte, error)

	// NewCipherContext creates an AES-256-CBC encryption context.
	NewCipherContext(key, iv []byte) (CipherContext, error)

	// NewDecipherContext creates an AES-256-CBC decryption context.
	NewDecipherContext(key, iv []byte) (CipherContext, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Provider)
)

// Register makes a provider available under its name. Later registrations
// with the same name replace earlier ones.
func Register(p Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Name()] = p
}

// Get returns the provider registered under name.
func Get(name string) (Provider, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown crypto provider %q", name)
	}
	return p, nil
}

// Default returns the native provider.
func Default() Provider {
	p, _ := Get(NameNative)
	return p
}

// validateKeyAndIV checks the parameter sizes shared by both providers.
func validateKeyAndIV(key, iv []byte) error {
	if len(key) != KeyLength {
		return fmt.Errorf("invalid key size: expected %d bytes, got %d", KeyLength, len(key))
	}
	if len(iv) != SaltLength {
		return fmt.Errorf("invalid IV size: expected %d bytes, got %d", SaltLength, len(iv))
	}
	return nil
}
