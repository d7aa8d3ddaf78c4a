// Package errors provides the structured error taxonomy used across the pipeline.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeMalformedEvent indicates a trigger payload that could not be decoded.
	// Fatal for the event: a malformed event never becomes well-formed on redelivery.
	ErrCodeMalformedEvent ErrorCode = "malformed_event"
	// ErrCodeInvalidPath indicates an object path outside the allowed root or with
	// a malformed component. Fatal, never retried.
	ErrCodeInvalidPath ErrorCode = "invalid_path"
	// ErrCodeInvalidPathStructure indicates an object path under the allowed root
	// that is missing required segments. Fatal, never retried.
	ErrCodeInvalidPathStructure ErrorCode = "invalid_path_structure"
	// ErrCodeValidation indicates the video failed a local bound check (size, duration).
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAnalysis indicates the pose analysis reported failure for this input.
	ErrCodeAnalysis ErrorCode = "analysis"
	// ErrCodeDeliveryExhausted indicates the notification send gave up after all
	// retry attempts.
	ErrCodeDeliveryExhausted ErrorCode = "delivery_exhausted"
	// ErrCodeConflict indicates a claim lost the race to a concurrent worker.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeUnavailable indicates a backing store could not be reached.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError is a structured application error with a code, message, and optional
// cause. It supports errors.Is / errors.As through Unwrap.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with a code and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsMalformedEvent checks for a malformed event error.
func IsMalformedEvent(err error) bool { return isCode(err, ErrCodeMalformedEvent) }

// IsInvalidPath checks for an invalid path error.
func IsInvalidPath(err error) bool { return isCode(err, ErrCodeInvalidPath) }

// IsInvalidPathStructure checks for an invalid path structure error.
func IsInvalidPathStructure(err error) bool { return isCode(err, ErrCodeInvalidPathStructure) }

// IsValidation checks for a validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsAnalysis checks for an analysis failure error.
func IsAnalysis(err error) bool { return isCode(err, ErrCodeAnalysis) }

// IsDeliveryExhausted checks for a delivery exhaustion error.
func IsDeliveryExhausted(err error) bool { return isCode(err, ErrCodeDeliveryExhausted) }

// IsConflict checks for a claim conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsUnavailable checks for a store unavailability error.
func IsUnavailable(err error) bool { return isCode(err, ErrCodeUnavailable) }

// IsSkippable reports whether the error belongs to the skip class: the event is
// dropped without a job record because reprocessing it can never succeed.
func IsSkippable(err error) bool {
	return IsMalformedEvent(err) || IsInvalidPath(err) || IsInvalidPathStructure(err)
}

// GetCode returns the ErrorCode from an error, or empty string if it is not an
// AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
