package core

import "errors"

// Validation errors. They are reported before any filesystem mutation.
var (
	ErrInvalidID      = errors.New("invalid note id")
	ErrInvalidContent = errors.New("invalid note content")
	ErrInvalidRoot    = errors.New("invalid workspace root")
)

// Expected outcomes that are not faults.
var (
	ErrNotFound      = errors.New("note not found")
	ErrAlreadyExists = errors.New("note already exists")
)

// ErrReadOnly is returned by mutating operations on a read-only store.
var ErrReadOnly = errors.New("repository is in read-only mode")

// IsValidation reports whether err is a client fault.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidContent) ||
		errors.Is(err, ErrInvalidRoot)
}
