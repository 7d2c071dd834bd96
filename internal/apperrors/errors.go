package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
// Nothing has been written when this is returned.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInsufficientFunds indicates that a withdrawal exceeds the vault balance.
var ErrInsufficientFunds = errors.New("insufficient vault balance")

// ErrConcurrencyConflict indicates that a per-user serialization point was contended
// or a conditional write lost a race. The caller may retry.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrExternalProvider indicates that a broker or payout call failed or timed out.
var ErrExternalProvider = errors.New("external provider error")

// ErrDataIntegrity indicates that the ledger for a user is in a state that must be
// reconciled manually (negative raw balance, duplicate live round-up entries).
var ErrDataIntegrity = errors.New("ledger data integrity error")

// ErrInternal is returned to callers in place of unexpected lower-level failures.
var ErrInternal = errors.New("internal error")

// AppError wraps a lower-level failure with an HTTP-ish status code and a message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// IsBusinessFailure reports whether err is an ordinary, user-recoverable outcome
// as opposed to a provider, integrity or internal failure.
func IsBusinessFailure(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate)
}
