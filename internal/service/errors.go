package service

import "errors"

// Caller-visible failure taxonomy. All of these are synchronous and leave no
// partial effect; the transactional boundary guarantees it.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("user already has an occupying session")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidState        = errors.New("invalid state")
	ErrNoRatesConfigured   = errors.New("zone has no rates configured")
	ErrUndoExpired         = errors.New("undo window expired")
	ErrNothingToUndo       = errors.New("nothing to undo")
)
