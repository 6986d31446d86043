package lifecycle

import "errors"

var (
	// ErrInvalidTransition means a state machine rule was violated.
	// Rejected before any remote call.
	ErrInvalidTransition = errors.New("invalid transition")

	ErrSelfClaim    = errors.New("cannot claim own item")
	ErrNotOwner     = errors.New("only the item owner may do this")
	ErrNotClaimer   = errors.New("only the claimer may do this")
	ErrNotDeletable = errors.New("item can no longer be deleted")
)
