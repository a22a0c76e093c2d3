package core

import (
	"errors"
	"fmt"
)

// baseError provides common error functionality.
type baseError struct {
	msg string
}

func (e *baseError) Error() string { return e.msg }

// ValidationError reports a malformed query, a bad dataset id or a dataset
// that cannot be ingested.
type ValidationError struct {
	baseError
}

// NewValidationError creates a new validation error.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{baseError: baseError{msg: msg}}
}

// NewValidationErrorf creates a new validation error with formatting.
func NewValidationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{baseError: baseError{msg: fmt.Sprintf(format, args...)}}
}

// NotFoundError reports a dataset id that is not registered.
type NotFoundError struct {
	baseError
	ID    string
	Cause error // set when the lookup also failed validation
}

// NewNotFoundError creates a new not-found error for the dataset id.
func NewNotFoundError(id string, cause error) *NotFoundError {
	msg := fmt.Sprintf("dataset %q not found", id)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &NotFoundError{baseError: baseError{msg: msg}, ID: id, Cause: cause}
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// ResultTooLargeError reports a query whose result exceeds MaxResultRows.
type ResultTooLargeError struct {
	baseError
	Count int
	Limit int
}

// NewResultTooLargeError creates a new result-too-large error.
func NewResultTooLargeError(count, limit int) *ResultTooLargeError {
	return &ResultTooLargeError{
		baseError: baseError{msg: fmt.Sprintf("result too large: %d rows exceeds the limit of %d", count, limit)},
		Count:     count,
		Limit:     limit,
	}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsResultTooLarge reports whether err carries a ResultTooLargeError.
func IsResultTooLarge(err error) bool {
	var rt *ResultTooLargeError
	return errors.As(err, &rt)
}
