// Package domainerrors carries typed failures from services to transports.
//
// A Code names the error category and decides the HTTP status. A Reason names
// the specific failure inside that category so clients can show an actionable
// message ("this event is full" vs "you are already registered").
//
// Services build errors with New or Wrap:
//
//	return dErrors.Wrap(models.ReasonEventFull, dErrors.CodeCapacityExceeded, "This event is full")
//
// and callers test them with HasCode or errors.Is against the Reason.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code is the category of a domain error.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeInvalidInput       Code = "invalid_input"
	CodeConflict           Code = "conflict"
	CodeCapacityExceeded   Code = "capacity_exceeded"
	CodeDeadlineExceeded   Code = "deadline_exceeded"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodeDependency         Code = "dependency_unavailable"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Reason names a specific failure kind. Reasons are comparable values so
// errors.Is(err, SomeReason) works through any wrapping.
type Reason string

func (r Reason) Error() string { return string(r) }

// Error is the domain error envelope.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error with the given code and user-facing message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether the outermost domain error in err's chain has code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the outermost code, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf returns the first Reason in err's chain, if any.
func ReasonOf(err error) (Reason, bool) {
	var r Reason
	if errors.As(err, &r) {
		return r, true
	}
	return "", false
}

// Message returns the user-facing message of the outermost domain error.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code onto the HTTP status the transport should use.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeInvariantViolation, CodeDeadlineExceeded:
		return http.StatusBadRequest
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeConflict, CodeCapacityExceeded:
		return http.StatusConflict
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDependency:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
