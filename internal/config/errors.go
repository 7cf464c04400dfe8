package config

import (
	"errors"
	"time"
)

// Sentinel errors for internal use.
var (
	ErrInvalidConfig    = errors.New("invalid config")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrUpstreamStatus   = errors.New("unexpected upstream status")
	ErrCircuitOpen      = errors.New("circuit breaker is open")
	ErrSnapshotEmpty    = errors.New("snapshot store is empty")
	ErrInvalidTicket    = errors.New("invalid ticket")
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrMetadataNotFound = errors.New("metadata file not found")
)

// TransientError wraps an error that should be retried.
type TransientError struct {
	Err        error
	RetryAfter time.Duration // 0 = use default backoff
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient (retriable).
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewTransientErrorWithRetry wraps with explicit retry delay.
func NewTransientErrorWithRetry(err error, retryAfter time.Duration) error {
	return &TransientError{Err: err, RetryAfter: retryAfter}
}

// IsTransient returns true if the error is transient (retriable).
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// GetRetryAfter returns the retry delay if set, or 0.
func GetRetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// Error codes, shared with the dashboard via API responses.
const (
	ErrorDataUnavailable = "ERROR_DATA_UNAVAILABLE"
	ErrorTicketNotFound  = "ERROR_TICKET_NOT_FOUND"
	ErrorInvalidStatus   = "ERROR_INVALID_STATUS"
	ErrorInternal        = "ERROR_INTERNAL"
)
