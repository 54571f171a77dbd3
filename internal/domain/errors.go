package domain

import "errors"

var (
	// ErrValidation marks field presence, type, or length failures.
	ErrValidation = errors.New("validation error")
	// ErrMalformedInput marks request bodies that could not be parsed at all.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnauthorized marks requests with a missing or incorrect API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited marks requests rejected by the admission window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNotFound marks lookups for notifications that do not exist.
	ErrNotFound = errors.New("not found")
)
