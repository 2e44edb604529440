package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the session token is missing, expired, or
	// rejected. Callers sign out instead of retrying.
	ErrUnauthorized = errors.New("session expired or unauthorized")

	// ErrConflict means the server rejected a mutation that already exists,
	// e.g. adding a duplicate verse reference.
	ErrConflict = errors.New("conflicting resource")
)

// ValidationError is a 400-class rejection. It is surfaced inline at the
// point of entry; no state mutation happened.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// TransientError wraps network failures and 5xx responses. Transient
// failures are recovered by retry-on-next-debounce (dispatcher) or left in
// the ledger (pending changes).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient request failure: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err should be retried later rather than
// treated as final.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classify maps a non-2xx response to a typed error. The server's error body
// is `{"error": string}`; absence of a 2xx is always a failure.
func classify(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	switch {
	case status == 401 || status == 403:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case status == 409:
		return fmt.Errorf("%w: %s", ErrConflict, message)
	case status >= 400 && status < 500:
		return &ValidationError{Message: message}
	default:
		return &TransientError{Err: fmt.Errorf("HTTP %d: %s", status, message)}
	}
}
