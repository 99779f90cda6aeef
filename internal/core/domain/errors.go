package domain

import "errors"

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Circulation errors
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRecordNotFound      = errors.New("circulation record not found")
	ErrBookUnavailable     = errors.New("book is not available for borrowing")
	ErrDuplicateLoan       = errors.New("user already has this book borrowed")
	ErrAlreadyReturned     = errors.New("book is already returned")
	ErrRenewalLimitReached = errors.New("maximum renewal limit reached")
	ErrNotAuthorized       = errors.New("not authorized for this record")

	// ErrStaleRecord means a version-checked update lost a race with a
	// concurrent writer. Callers may retry against fresh state.
	ErrStaleRecord = errors.New("circulation record was modified concurrently")

	// ErrInvariantViolation means the availability counter was found in a
	// state the preconditions should have made impossible (a negative
	// count). It signals a bug, not a business-rule rejection.
	ErrInvariantViolation = errors.New("availability counter invariant violated")
)
