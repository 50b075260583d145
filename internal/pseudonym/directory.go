// Package pseudonym maintains the binding between an external pseudonym and
// the internal row keys of the personal-data and auth stores. The binding is
// the only path from a pseudonym to either row, so every operation here
// passes its values through the encryption engine first: nothing in the
// directory's own store is plaintext.
package pseudonym

import (
	"context"
	"errors"
	"fmt"

	"veil/internal/crypto"
	"veil/internal/pseudonym/store"
	"veil/pkg/domain"
)

// ErrDuplicatePseudonym reports a collision on the deterministic pseudonym
// ciphertext. Astronomically unlikely for random 128-bit tokens, but handled:
// the orchestrator regenerates and retries once.
var ErrDuplicatePseudonym = errors.New("duplicate pseudonym")

// ErrNotFound reports an unresolvable pseudonym or auth row id.
var ErrNotFound = store.ErrNotFound

// Directory encrypts, stores and resolves pseudonym bindings.
//
// Field modes are fixed by lookup needs: pseudonym and auth row id are
// deterministic (both are equality search keys and both are high-entropy or
// meaningless on their own), the personal row id is randomized since nothing
// searches by it.
type Directory struct {
	store  store.Store
	engine *crypto.Engine
}

func New(s store.Store, engine *crypto.Engine) *Directory {
	return &Directory{store: s, engine: engine}
}

// Save registers one binding. The binding is immutable once created.
func (d *Directory) Save(ctx context.Context, p domain.Pseudonym, personalID domain.PersonalRowID, authID domain.AuthRowID) error {
	pseudonymCipher, err := d.engine.Encrypt(ctx, crypto.Deterministic, p.String())
	if err != nil {
		return fmt.Errorf("encrypt pseudonym: %w", err)
	}
	personalCipher, err := d.engine.Encrypt(ctx, crypto.Randomized, personalID.String())
	if err != nil {
		return fmt.Errorf("encrypt personal row id: %w", err)
	}
	authCipher, err := d.engine.Encrypt(ctx, crypto.Deterministic, authID.String())
	if err != nil {
		return fmt.Errorf("encrypt auth row id: %w", err)
	}

	err = d.store.Insert(ctx, store.Binding{
		PseudonymCipher:     pseudonymCipher,
		PersonalRowIDCipher: personalCipher,
		AuthRowIDCipher:     authCipher,
	})
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrDuplicatePseudonym, p)
	}
	return err
}

// Resolve maps a pseudonym to both internal row ids. Crypto failures surface
// as such; only a genuinely absent binding is ErrNotFound.
func (d *Directory) Resolve(ctx context.Context, p domain.Pseudonym) (domain.PersonalRowID, domain.AuthRowID, error) {
	searchKey, err := d.engine.Encrypt(ctx, crypto.Deterministic, p.String())
	if err != nil {
		return 0, 0, fmt.Errorf("encrypt search key: %w", err)
	}

	b, err := d.store.FindByPseudonym(ctx, searchKey)
	if err != nil {
		return 0, 0, err
	}

	personalText, err := d.engine.Decrypt(ctx, crypto.Randomized, b.PersonalRowIDCipher)
	if err != nil {
		return 0, 0, fmt.Errorf("decrypt personal row id: %w", err)
	}
	personalID, err := domain.ParsePersonalRowID(personalText)
	if err != nil {
		return 0, 0, err
	}

	authText, err := d.engine.Decrypt(ctx, crypto.Deterministic, b.AuthRowIDCipher)
	if err != nil {
		return 0, 0, fmt.Errorf("decrypt auth row id: %w", err)
	}
	authID, err := domain.ParseAuthRowID(authText)
	if err != nil {
		return 0, 0, err
	}

	return personalID, authID, nil
}

// ResolveByAuthRowID is the inverse lookup used when enumerating auth rows.
func (d *Directory) ResolveByAuthRowID(ctx context.Context, authID domain.AuthRowID) (domain.Pseudonym, error) {
	searchKey, err := d.engine.Encrypt(ctx, crypto.Deterministic, authID.String())
	if err != nil {
		return "", fmt.Errorf("encrypt search key: %w", err)
	}

	b, err := d.store.FindByAuthRowID(ctx, searchKey)
	if err != nil {
		return "", err
	}

	plaintext, err := d.engine.Decrypt(ctx, crypto.Deterministic, b.PseudonymCipher)
	if err != nil {
		return "", fmt.Errorf("decrypt pseudonym: %w", err)
	}
	return domain.ParsePseudonym(plaintext)
}

// Delete removes the binding. Absence is a no-op, not an error: delete by key
// is idempotent and safe to retry.
func (d *Directory) Delete(ctx context.Context, p domain.Pseudonym) error {
	searchKey, err := d.engine.Encrypt(ctx, crypto.Deterministic, p.String())
	if err != nil {
		return fmt.Errorf("encrypt search key: %w", err)
	}
	_, err = d.store.Delete(ctx, searchKey)
	return err
}
