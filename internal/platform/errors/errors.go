// Package errors provides a coded error type shared by every layer of echokit
package errors

// Import this package as perr so it never shadows the standard library errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for callers and for the HTTP layer
// Values are part of the wire format; append only
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeUnavailable is for local dependencies that are down but may come back
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests is for rate limiting, local or remote
	ErrorCodeTooManyRequests

	// ErrorCodeConflict is for state conflicts
	ErrorCodeConflict

	// ErrorCodeUnauthorized is for missing or unusable credentials
	ErrorCodeUnauthorized

	// ErrorCodeForbidden is for requests the remote service refuses to run
	ErrorCodeForbidden

	// ErrorCodeInvalidArgument is for malformed selectors, descriptors and ids
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for request payloads that fail validation
	ErrorCodeValidation

	// ErrorCodeJSON is for JSON decoding failures
	ErrorCodeJSON

	// ErrorCodeNotFound is for missing resources
	ErrorCodeNotFound

	// ErrorCodeDuplicateKey is for unique constraint violations
	ErrorCodeDuplicateKey

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeEmptyResult is for queries that produced no rows or an unusable payload
	ErrorCodeEmptyResult

	// ErrorCodeKeyNotFound is for a requested key column missing from a result
	ErrorCodeKeyNotFound

	// ErrorCodeUpstream is for transport failures talking to the remote data service
	ErrorCodeUpstream
)

var codeNames = map[ErrorCode]string{
	ErrorCodeUnknown:         "unknown",
	ErrorCodePanic:           "panic",
	ErrorCodeUnavailable:     "unavailable",
	ErrorCodeTooManyRequests: "too_many_requests",
	ErrorCodeConflict:        "conflict",
	ErrorCodeUnauthorized:    "unauthorized",
	ErrorCodeForbidden:       "forbidden",
	ErrorCodeInvalidArgument: "invalid_argument",
	ErrorCodeValidation:      "validation",
	ErrorCodeJSON:            "json",
	ErrorCodeNotFound:        "not_found",
	ErrorCodeDuplicateKey:    "duplicate_key",
	ErrorCodeDB:              "db",
	ErrorCodeEmptyResult:     "empty_result",
	ErrorCodeKeyNotFound:     "key_not_found",
	ErrorCodeUpstream:        "upstream",
}

// String returns a stable snake case name, used as a metrics label
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code_%d", uint16(c))
}

// HTTPStatusCode maps an ErrorCode to an http status
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound, ErrorCodeEmptyResult:
		return http.StatusNotFound
	case ErrorCodeInvalidArgument, ErrorCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrorCodeDuplicateKey, ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeTooManyRequests:
		return http.StatusTooManyRequests
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a code, a developer facing message, and optional field and op labels
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
	op    string
}

// Wire is the JSON form returned by the API
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error implements error
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return e.msg + ": " + e.orig.Error()
	}
	return e.msg
}

// Unwrap returns the wrapped cause
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if any
func (e *Error) Op() string { return e.op }

// ToWire converts to the wire payload
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom converts any error to a wire payload; nil maps to the zero Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf returns the code of the outermost *Error in the chain
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether the outermost code equals code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HasCode reports whether any *Error in the chain carries code
// joined errors are searched too
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if HasCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}

// HTTPStatus returns the mapped status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As returns the outermost *Error in the chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithField copies an *Error with field set; foreign errors pass through
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp copies an *Error with op set; foreign errors pass through
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// New returns an *Error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns an *Error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap wraps orig under code
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf wraps orig under code with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only a non nil err
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf returns an unauthorized error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// Forbiddenf returns a forbidden error
func Forbiddenf(format string, a ...any) error { return Newf(ErrorCodeForbidden, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Upstreamf returns a transport failure
func Upstreamf(format string, a ...any) error { return Newf(ErrorCodeUpstream, format, a...) }

// EmptyResultf returns an empty result error
func EmptyResultf(format string, a ...any) error { return Newf(ErrorCodeEmptyResult, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// HTTP bundles status and wire payload for handlers
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}
