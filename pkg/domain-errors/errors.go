// Package domainerrors carries coded errors across the service boundary.
//
// Stores return sentinel errors (pkg/platform/sentinel); services classify
// them into coded errors here so callers can branch on Code without ever
// seeing raw storage error text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeDuplicateEmail      Code = "duplicate_email"
	CodeDuplicateNationalID Code = "duplicate_national_id"
	CodeIntegrityViolation  Code = "integrity_violation"
	CodeCryptoFailure       Code = "crypto_failure"
	CodeSecretUnavailable   Code = "secret_unavailable"
	CodeStoreUnavailable    Code = "store_unavailable"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal"
)

// Error is a coded error with a short human-readable summary. The wrapped
// cause stays available for logs but is never part of the summary.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and summary to an underlying cause.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is lets coded errors match on code identity through errors.Is.
func (e *Error) Is(target error) bool {
	var de *Error
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
