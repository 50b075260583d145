// Package personal persists the encrypted personal-data rows.
package personal

import (
	"context"
	"errors"
	"fmt"

	"veil/internal/user/models"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Duplicate errors carry which business field collided so the service can
// translate without parsing storage error text. Both chain to
// sentinel.ErrConflict.
var (
	ErrDuplicateEmail      = fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	ErrDuplicateNationalID = fmt.Errorf("national id already registered: %w", sentinel.ErrConflict)
)

// ErrNotFound re-exports the sentinel for call sites that only import this store.
var ErrNotFound = sentinel.ErrNotFound

// Error Contract:
// - Insert/Update return ErrDuplicateEmail or ErrDuplicateNationalID when a
//   blind-index uniqueness constraint rejects the write.
// - FindByID returns sentinel.ErrNotFound (wrapped) for absent rows.
// - Delete reports whether a row was removed; absence is not an error.
type Store interface {
	Insert(ctx context.Context, rec models.PersonalDataRecord) (domain.PersonalRowID, error)
	FindByID(ctx context.Context, id domain.PersonalRowID) (models.PersonalDataRecord, error)
	Update(ctx context.Context, rec models.PersonalDataRecord) error
	Delete(ctx context.Context, id domain.PersonalRowID) (bool, error)
}

// IsDuplicate reports whether err is either uniqueness rejection.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateNationalID)
}
