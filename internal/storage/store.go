// Package storage persists sealed packages: the ciphertext object plus the
// salt and fingerprint the caller must keep alongside it. The derived key
// itself is never stored.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a package does not exist in the store.
var ErrNotFound = errors.New("package not found")

// PackageInfo describes a sealed package. Salt and Fingerprint travel with
// the ciphertext so any holder of the password can locate and unseal it.
type PackageInfo struct {
	Name        string
	Salt        string
	Fingerprint string
	Size        int64
	CreatedAt   time.Time
}

// Store is the package store consumed by the CLI.
type Store interface {
	// Put uploads a sealed package.
	Put(ctx context.Context, name string, body io.Reader, info PackageInfo) error

	// Get retrieves a sealed package and its info.
	Get(ctx context.Context, name string) (io.ReadCloser, PackageInfo, error)

	// Delete removes a sealed package.
	Delete(ctx context.Context, name string) error

	// List returns info for packages under the prefix.
	List(ctx context.Context, prefix string) ([]PackageInfo, error)
}
