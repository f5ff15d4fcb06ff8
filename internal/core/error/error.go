package errx

import (
	"errors"
	"fmt"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// StorageErrorMessage describes history-backend failures.
	StorageErrorMessage = "conversation storage operation failed"
	// StorageNotFoundMessage describes a missing history key.
	StorageNotFoundMessage = "conversation not found"
	// UnsupportedQueryMessage is returned when no category matches a query.
	UnsupportedQueryMessage = "The query does not match any supported category."
)

// Sentinel errors for the query-routing taxonomy. Parse and category
// resolution failures are folded into classification verdicts rather than
// raised, so these mostly serve errors.Is checks in logs and tests.
var (
	ErrVerdictParse     = errors.New("classifier output could not be parsed")
	ErrUnsupportedQuery = errors.New("query does not match any supported category")
	ErrNoHandler        = errors.New("no handler registered for category")
	ErrExternalData     = errors.New("external data call failed")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the HTTP status carried by err, or fallback when err is
// not an AppError.
func StatusOf(err error, fallback int) int {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return fallback
}
