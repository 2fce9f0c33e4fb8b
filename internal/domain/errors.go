package domain

import "errors"

// Errors shared between the session guard, middleware and handlers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrDuplicateLogin     = errors.New("session evicted by a newer login")
)
