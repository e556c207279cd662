package domain

import "errors"

var (
	// ErrInvalidPayload marks a delivery whose body is not a bid.placed event
	ErrInvalidPayload = errors.New("invalid bid event payload")

	// ErrMaxRetriesExceeded marks an event that failed again after redelivery
	ErrMaxRetriesExceeded = errors.New("bid event failed after redelivery")
)

// TransientError is a failure that may succeed on another delivery
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for op
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err carries a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
