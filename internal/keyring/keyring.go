// Package keyring fetches cryptographic key material from the secret store.
//
// The secret store is the sole source of truth for the master encryption key,
// the fixed deterministic-mode IV, and the signing secret used for blind
// indexes. Everything else in the process goes through a Provider so tests and
// dev environments can run on static material.
package keyring

import (
	"context"
	"errors"
)

// ErrSecretUnavailable marks any failure to obtain key material: unreachable
// backend, missing path or field, malformed encoding. Callers surface it
// instead of hanging or guessing.
var ErrSecretUnavailable = errors.New("secret unavailable")

// Material is one consistent snapshot of key material.
type Material struct {
	// EncryptionKey is the 256-bit master key for both encryption modes.
	EncryptionKey []byte
	// IV is the fixed 16-byte initialization vector for deterministic mode.
	IV []byte
	// SigningSecret keys the HMAC blind indexes. Never used as a cipher key.
	SigningSecret []byte
}

// Provider supplies key material on demand.
type Provider interface {
	Material(ctx context.Context) (Material, error)
}
