// Package domainerrors defines coded errors shared by services and the HTTP
// layer. Services attach a Code describing what went wrong in domain terms;
// the transport layer maps codes to HTTP statuses and JSON envelopes.
//
// Infrastructure facts (row missing, conflict, stale state) originate in
// stores as pkg/platform/sentinel errors and are wrapped into coded errors at
// the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. Values are wire-stable: they appear
// verbatim in JSON error envelopes.
type Code string

const (
	CodeValidation      Code = "validation_failed"
	CodeInvalidDate     Code = "invalid_date"
	CodeNotFound        Code = "not_found"
	CodeDriverNotFound  Code = "driver_not_found"
	CodeDuplicateTicket Code = "duplicate_ticket_id"
	CodeStaleState      Code = "stale_state"
	CodeAlreadySettled  Code = "already_settled"
	CodeConflict        Code = "conflict"
	CodeUnauthorized    Code = "unauthorized"
	CodeForbidden       Code = "forbidden"
	CodeTimeout         Code = "timeout"
	CodeUnavailable     Code = "store_unavailable"
	CodeInternal        Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working across layers.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on a
// single code.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// is not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the outermost message, or a generic one for uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes are treated as
// internal errors rather than leaking a misleading status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidDate:
		return http.StatusBadRequest
	case CodeNotFound, CodeDriverNotFound:
		return http.StatusNotFound
	case CodeDuplicateTicket, CodeStaleState, CodeAlreadySettled, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
