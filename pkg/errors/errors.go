package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeTransport       ErrorType = "transport"
	ErrorTypeRateLimit       ErrorType = "rate_limit"
	ErrorTypeAuth            ErrorType = "auth"
	ErrorTypeParsing         ErrorType = "parsing"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeMalformedRecord ErrorType = "malformed_record"
	ErrorTypeConfiguration   ErrorType = "configuration"
	ErrorTypeUnknown         ErrorType = "unknown"
)

// Error is a typed failure carrying an optional HTTP status and cause.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type.
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given type around a cause.
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// Transport reports a fetch or network failure.
func Transport(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeTransport, err, format, args...)
}

// MalformedRecord reports a raw record that cannot become a post.
func MalformedRecord(format string, args ...interface{}) *Error {
	return New(ErrorTypeMalformedRecord, format, args...)
}

// Configuration reports an invalid or incomplete run configuration.
func Configuration(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfiguration, format, args...)
}

// Parsing reports an undecodable payload.
func Parsing(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeParsing, err, format, args...)
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is an *Error of type t anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}
