// Package derrors provides coded domain errors shared by services and the HTTP
// layer. Services attach a Code describing the failure class; transport maps
// codes to HTTP statuses without inspecting error strings.
//
// For infrastructure facts (row missing, resource expired) stores return
// pkg/platform/sentinel errors instead; services translate those into coded
// errors at the boundary.
package derrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeBadRequest covers malformed requests: bodies that do not decode,
	// missing required fields, malformed ids.
	CodeBadRequest Code = "bad_request"

	// CodeInvalidInput covers well-formed but invalid values: out-of-range
	// scores, unknown enum values, empty reasons.
	CodeInvalidInput Code = "invalid_input"

	// CodeUnauthorized means no authenticated session was presented.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden means the session exists but the actor's role does not
	// permit the operation.
	CodeForbidden Code = "forbidden"

	// CodeNotFound means the target user or job does not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict covers no-op transitions that must be reported rather than
	// silently swallowed (tier already at boundary, account already frozen).
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks a domain invariant breach detected by a
	// model method. Services usually translate it to CodeConflict.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeRateLimited means the caller exceeded a request quota.
	CodeRateLimited Code = "rate_limited"

	// CodeUnavailable marks a temporarily unavailable dependency.
	CodeUnavailable Code = "unavailable"

	// CodeInternal is the generic server-side failure. The message must not
	// leak internal detail; the real cause is logged server-side.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. The message is safe for API responses.
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

// New creates a coded error with a caller-facing message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. The cause is kept
// for logs and errors.Is; only Message is exposed to callers.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the Code from an error chain. Unknown errors map to
// CodeInternal so transport always has a status to send.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Is is a readability alias for HasCode, matching call sites like
// dErrors.Is(err, dErrors.CodeInvalidInput).
func Is(err error, code Code) bool { return HasCode(err, code) }

// MessageOf returns the caller-safe message, falling back to a generic one for
// unknown errors so internals never leak.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a Code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
