package docvault

import "errors"

var (
	// ErrNotFound is returned when no document exists under a name
	ErrNotFound = errors.New("not found")
	// ErrTransient is returned for connectivity failures and timeouts; the operation may be retried
	ErrTransient = errors.New("transient failure")
	// ErrAccessDenied is returned when the backend rejects credentials or permissions
	ErrAccessDenied = errors.New("access denied")
	// ErrConfiguration is returned when backend parameters are invalid or missing
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when a conditional write loses against a concurrent writer
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when request authentication fails
	ErrUnauthorized = errors.New("unauthorized")
)

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
