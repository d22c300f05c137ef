package models

import (
	"errors"
	"fmt"
)

// Category roots. Every error below wraps exactly one of them so callers can
// branch with errors.Is on either the root or the specific error.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnexpected   = errors.New("unexpected")
)

var (
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)

	ErrAlreadyRegistered = fmt.Errorf("%w: already registered", ErrInvalidState)
	ErrNotRegistered     = fmt.Errorf("%w: not registered", ErrInvalidState)
	ErrSeatsExhausted    = fmt.Errorf("%w: no seats available", ErrInvalidState)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

	// ErrInconsistentState means stored records already break the seat or
	// registration invariants. Nothing is written when it is returned.
	ErrInconsistentState = fmt.Errorf("%w: registration records disagree", ErrUnexpected)
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidEvent = errors.New("invalid event")
)
