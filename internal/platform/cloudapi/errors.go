package cloudapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-success response from the remote API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// NewError returns an API error with the given status code.
func NewError(statusCode int, format string, args ...any) *Error {
	return &Error{StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a 404 API error.
func NotFound(format string, args ...any) *Error {
	return NewError(http.StatusNotFound, format, args...)
}

// ServiceNotSupportedError is returned when the deployment does not offer a service.
type ServiceNotSupportedError struct {
	Service string
}

func (e *ServiceNotSupportedError) Error() string {
	return fmt.Sprintf("%s service is not supported", e.Service)
}

// TransportError is a failure to reach the remote API at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of an API error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound checks if the error is a 404 API error.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsServiceNotSupported checks if the error reports a missing service.
func IsServiceNotSupported(err error) bool {
	var e *ServiceNotSupportedError
	return errors.As(err, &e)
}
