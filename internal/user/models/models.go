// Package models defines the logical-user shapes and the per-store row types.
//
// A logical user is spread over three rows in three stores; no single type
// here maps to one database. User and UserSummary are the assembled,
// decrypted views; PersonalDataRecord and AuthRecord mirror what each store
// actually persists.
package models

import "veil/pkg/domain"

// Role is the coarse access role kept next to the credentials.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// CreateUserInput is the raw material for a new logical user. The password
// is hashed before it touches any store and is never returned.
type CreateUserInput struct {
	Name           string
	Address        string
	NationalID     int
	Phone          string
	Email          string
	Username       string
	Password       string
	OrganizationID string
	Role           Role
}

// UpdateUserInput carries the personal-data fields that may change. Auth
// fields and the binding are immutable through this path.
type UpdateUserInput struct {
	Name       string
	Address    string
	NationalID int
	Phone      string
	Email      string
}

// User is the assembled view returned to callers. ID is the pseudonym; the
// internal row keys never appear here.
type User struct {
	ID             domain.Pseudonym
	Username       string
	Email          string
	Name           string
	Address        string
	NationalID     int
	Phone          string
	OrganizationID string
	Role           Role
}

// UserSummary is the listing view. It is assembled from the auth store and
// the pseudonym directory alone; personal data is never touched for it.
type UserSummary struct {
	ID             domain.Pseudonym
	Username       string
	OrganizationID string
	Role           Role
}

// PersonalDataRecord is one row of the personal-data store. Every field is
// randomized ciphertext; the two index columns are keyed blind indexes that
// make the store's uniqueness constraints effective over encrypted values.
type PersonalDataRecord struct {
	ID               domain.PersonalRowID
	NameCipher       string
	AddressCipher    string
	NationalIDCipher string
	PhoneCipher      string
	EmailCipher      string
	EmailIndex       string
	NationalIDIndex  string
}

// AuthRecord is one row of the auth store. Username stays plaintext (it is
// the login handle and store-unique); the password exists only as a one-way
// hash.
type AuthRecord struct {
	ID             domain.AuthRowID
	Username       string
	PasswordHash   string
	OrganizationID string
	Role           Role
}
