// Package apperrors holds the error taxonomy shared by the ledger core, its
// stores and the HTTP glue. Callers wrap a sentinel with context and test for
// it with errors.Is.
package apperrors

import (
	"errors"
)

var (
	// ErrInvalidRequest is a failed business precondition. Nothing was written.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is a missing account, currency or system account.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientFunds is a non-system balance that would go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict is a duplicate key on a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrInternal is an unexpected storage failure or broken invariant.
	ErrInternal = errors.New("internal error")
	// ErrTransient marks a store conflict that is safe to retry as a whole unit of work.
	ErrTransient = errors.New("transient conflict")
)

// IsBusiness reports whether err is a business outcome that must never be retried.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientFunds)
}
