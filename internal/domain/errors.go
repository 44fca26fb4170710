package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a write that lost to an existing row, e.g. a
	// duplicate ledger entry. Callers treat it as "already recorded".
	ErrConflict = errors.New("conflict")
)
