// Package auth persists the credential rows. This store never sees personal
// data; it knows a username, a password hash, an organization and a role.
package auth

import (
	"context"
	"fmt"

	"veil/internal/user/models"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// ErrUsernameTaken reports the username uniqueness constraint.
var ErrUsernameTaken = fmt.Errorf("username already taken: %w", sentinel.ErrConflict)

// ErrNotFound re-exports the sentinel for call sites that only import this store.
var ErrNotFound = sentinel.ErrNotFound

type Store interface {
	Insert(ctx context.Context, rec models.AuthRecord) (domain.AuthRowID, error)
	FindByID(ctx context.Context, id domain.AuthRowID) (models.AuthRecord, error)
	List(ctx context.Context) ([]models.AuthRecord, error)
	Delete(ctx context.Context, id domain.AuthRowID) (bool, error)
}
