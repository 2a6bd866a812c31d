// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across session/transport/list layers.
var (
	// ErrSessionMissing indicates that no valid session exists; the call was not sent.
	ErrSessionMissing = errors.New("session missing")

	// ErrUnauthorized indicates the server rejected the credential; the session is dead.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedMetadata indicates pagination metadata matching neither known shape.
	ErrMalformedMetadata = errors.New("malformed pagination metadata")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// IsSessionLoss reports whether err means the operator has to log in again.
func IsSessionLoss(err error) bool {
	return errors.Is(err, ErrSessionMissing) || errors.Is(err, ErrUnauthorized)
}
