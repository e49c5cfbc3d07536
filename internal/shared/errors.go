package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")

	// ErrSubjectNotFound indicates the subject is unknown, inactive or deleted.
	// Surfaced upstream as an authorization failure.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrResolutionUnavailable indicates the permission backing store failed.
	// Retryable; never to be conflated with an empty permission set.
	ErrResolutionUnavailable = errors.New("permission resolution unavailable")
	// ErrNodeNotFound indicates an ordering operation on a missing or deleted node.
	ErrNodeNotFound = errors.New("menu node not found")
	// ErrCycleDetected indicates the menu node parent graph contains a loop.
	ErrCycleDetected = errors.New("menu node cycle detected")
)
