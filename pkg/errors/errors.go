package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss  = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Enrollment engine failure taxonomy. Every terminal outcome of an
// enroll/drop attempt maps to exactly one of these codes.
var (
	ErrStudentNotFound  = New("STUDENT_NOT_FOUND", http.StatusNotFound, "student not found")
	ErrSectionNotFound  = New("SECTION_NOT_FOUND", http.StatusNotFound, "section not found")
	ErrAlreadyEnrolled  = New("ALREADY_ENROLLED", http.StatusConflict, "student is already enrolled in section")
	ErrScheduleConflict = New("SCHEDULE_CONFLICT", http.StatusConflict, "section conflicts with current schedule")
	ErrSectionFull      = New("SECTION_FULL", http.StatusConflict, "section is at full capacity")
	ErrNotEnrolled      = New("NOT_ENROLLED", http.StatusNotFound, "student is not enrolled in section")
	// ErrRetryable flags transient storage contention (serialization
	// failure or deadlock). Callers may safely redo the whole attempt;
	// a completed enrollment is caught by the ALREADY_ENROLLED check.
	ErrRetryable = New("RETRYABLE_CONFLICT", http.StatusServiceUnavailable, "transient storage contention, retry the request")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsRetryable reports whether the error carries the retryable code.
func IsRetryable(err error) bool {
	e := FromError(err)
	return e != nil && e.Code == ErrRetryable.Code
}
