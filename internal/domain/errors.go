package domain

import "errors"

var (
	// ErrInvalidRequest is returned when a required field is missing.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProviderUnavailable wraps missing credentials and failed provider calls.
	// It is never surfaced to HTTP clients.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
