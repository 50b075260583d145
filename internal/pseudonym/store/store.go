// Package store persists pseudonym bindings. Rows hold nothing but
// ciphertext; encryption and decryption stay in the directory layer above.
package store

import (
	"context"

	"veil/pkg/platform/sentinel"
)

// Binding is one stored row: the only link between a pseudonym and the two
// internal row keys.
type Binding struct {
	// PseudonymCipher is the deterministic ciphertext of the pseudonym; the
	// store enforces uniqueness on it.
	PseudonymCipher string
	// PersonalRowIDCipher is the randomized ciphertext of the personal-data
	// row id, stored as text.
	PersonalRowIDCipher string
	// AuthRowIDCipher is the deterministic ciphertext of the auth row id so
	// inverse lookups can search by equality.
	AuthRowIDCipher string
}

// Error Contract:
// - Insert returns sentinel.ErrConflict (wrapped) on a duplicate pseudonym cipher.
// - Find* return sentinel.ErrNotFound (wrapped) when no row matches.
// - Delete reports whether a row was removed; absence is not an error.
type Store interface {
	Insert(ctx context.Context, b Binding) error
	FindByPseudonym(ctx context.Context, pseudonymCipher string) (Binding, error)
	FindByAuthRowID(ctx context.Context, authRowIDCipher string) (Binding, error)
	Delete(ctx context.Context, pseudonymCipher string) (bool, error)
}

// Re-exported for call sites that only import the store.
var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
)
