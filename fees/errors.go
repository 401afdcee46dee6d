package fees

import (
	"errors"
	"net/http"
)

// LookupError is a failed fee lookup, classified by whether a retry can
// succeed.
type LookupError struct {
	// Code is the fee code requested, when known.
	Code string

	// Status is the HTTP status returned by the fee service; zero when the
	// request never got a response.
	Status int

	Retryable bool
	err       error
}

func (e *LookupError) Error() string { return e.err.Error() }

func (e *LookupError) Unwrap() error { return e.err }

// NewTransientError wraps err as a retryable lookup failure.
func NewTransientError(err error) error {
	return &LookupError{Retryable: true, err: err}
}

// NewFatalError wraps err as a lookup failure that retrying cannot fix.
func NewFatalError(err error) error {
	return &LookupError{err: err}
}

func statusError(code string, status int, err error) error {
	return &LookupError{
		Code:      code,
		Status:    status,
		Retryable: status == http.StatusTooManyRequests || status >= 500,
		err:       err,
	}
}

// IsTransient reports whether err is a retryable lookup failure.
func IsTransient(err error) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Retryable
}

// IsFatal reports whether err is a lookup failure that must not be retried.
func IsFatal(err error) bool {
	var le *LookupError
	return errors.As(err, &le) && !le.Retryable
}
