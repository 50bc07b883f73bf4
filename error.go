package calregs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Application error codes.
const (
	ECONFLICT = "conflict"
	EINTERNAL = "internal"
	EINVALID  = "invalid"
	ENOTFOUND = "not_found"
)

// Error represents an application-specific error. Application errors can be
// unwrapped by the caller to extract out the code & message.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface. Not used by the application otherwise.
func (e *Error) Error() string {
	return fmt.Sprintf("calregs error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and
// formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// StatusError is returned by fetchers when the remote source answers with a
// non-success status code.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Failure classes recorded in FailedURL.ErrorType.
const (
	ErrorTypeTimeout    = "Timeout"
	ErrorTypeHTTPStatus = "HTTPStatus"
	ErrorTypeParse      = "ParseError"
	ErrorTypeFetch      = "FetchError"
	ErrorTypeCanceled   = "Canceled"
)

// ErrorType classifies err into one of the failure classes recorded in the
// failure ledger.
func ErrorType(err error) string {
	var statusErr *StatusError
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.As(err, &statusErr):
		return ErrorTypeHTTPStatus
	case errors.As(err, &netErr) && netErr.Timeout():
		return ErrorTypeTimeout
	case ErrorCode(err) == EINVALID:
		return ErrorTypeParse
	default:
		return ErrorTypeFetch
	}
}
