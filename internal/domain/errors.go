package domain

import "errors"

var (
	// ErrNotFound is returned when an id has no matching document
	ErrNotFound = errors.New("not found")

	// ErrDuplicateBid is returned when the bidder already placed a bid on the job
	ErrDuplicateBid = errors.New("you have already placed a bid on this job")

	// ErrUnauthorized covers missing, malformed, expired and mismatched credentials
	ErrUnauthorized = errors.New("unauthorized access")

	// ErrStoreFailure wraps any failure of the underlying persistence operation
	ErrStoreFailure = errors.New("store failure")

	// ErrInvalidInput is returned by the API edge adapters for unusable request data
	ErrInvalidInput = errors.New("invalid input")
)
