package engine

import "errors"

// Error taxonomy. Every public operation classifies its failures into one of
// these so callers can branch with errors.Is; nothing is retried internally.
var (
	// ErrValidation marks bad input rejected before any custody transfer.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a caller lacking the right to the operation
	// (non-owner cancel, non-operator fee withdrawal). No mutation occurs.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound marks a missing order record.
	ErrNotFound = errors.New("order not found")

	// ErrStateConflict marks an order that is not Active, or a lost
	// settlement race. No mutation occurs; safe to retry against a fresh
	// lookup.
	ErrStateConflict = errors.New("order state conflict")

	// ErrExternal marks a collaborator failure (transfer, swap, price
	// read). The enclosing operation aborts with no partial state change.
	ErrExternal = errors.New("external call failed")
)
