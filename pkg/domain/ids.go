// Package domain holds the identifier types shared across stores and services.
//
// Typed IDs keep the three stores' keyspaces from being mixed up at compile
// time: a Pseudonym can never be passed where a row key is expected and the
// two row keys cannot be swapped for each other.
package domain

import (
	"strconv"

	"github.com/google/uuid"

	dErrors "veil/pkg/domain-errors"
)

// Pseudonym is the opaque external identifier for a logical user. It is a
// 128-bit random token in uuid textual form, minted once and never reused.
// It is the only identifier clients ever see.
type Pseudonym string

// NewPseudonym mints a fresh random pseudonym.
func NewPseudonym() Pseudonym {
	return Pseudonym(uuid.NewString())
}

// ParsePseudonym validates the textual form supplied by a caller. IDs must be
// valid, non-empty, non-nil UUIDs.
func ParsePseudonym(s string) (Pseudonym, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "pseudonym required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "malformed pseudonym")
	}
	if parsed == uuid.Nil {
		return "", dErrors.New(dErrors.CodeValidation, "nil pseudonym")
	}
	return Pseudonym(parsed.String()), nil
}

func (p Pseudonym) String() string { return string(p) }

// PersonalRowID is the store-assigned key of a personal_data row. Internal
// only; it leaves the process exclusively as ciphertext inside a binding.
type PersonalRowID int64

// AuthRowID is the store-assigned key of an auth_users row. Internal only.
type AuthRowID int64

func (id PersonalRowID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id AuthRowID) String() string     { return strconv.FormatInt(int64(id), 10) }

// ParsePersonalRowID decodes the textual form recovered from a binding.
func ParsePersonalRowID(s string) (PersonalRowID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeIntegrityViolation, "malformed personal row id in binding")
	}
	return PersonalRowID(n), nil
}

// ParseAuthRowID decodes the textual form recovered from a binding.
func ParseAuthRowID(s string) (AuthRowID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeIntegrityViolation, "malformed auth row id in binding")
	}
	return AuthRowID(n), nil
}
