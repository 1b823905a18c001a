package cloud

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Callers branch on the kind, never on the message.
type Kind int

// Error kinds surfaced by every provider operation.
const (
	KindAuthentication Kind = iota + 1
	KindPermissionDenied
	KindObjectNotFound
	KindBadInput
	KindQuotaExceeded
	KindInvalidOperation
	KindImproperlyConfigured
	KindUnsupportedOperation
	KindCommunication
	KindOperationTimedOut
)

var kindNames = map[Kind]string{
	KindAuthentication:       "authentication",
	KindPermissionDenied:     "permission_denied",
	KindObjectNotFound:       "object_not_found",
	KindBadInput:             "bad_input",
	KindQuotaExceeded:        "quota_exceeded",
	KindInvalidOperation:     "invalid_operation",
	KindImproperlyConfigured: "improperly_configured",
	KindUnsupportedOperation: "unsupported_operation",
	KindCommunication:        "communication",
	KindOperationTimedOut:    "operation_timed_out",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the domain error returned by all provider operations.
type Error struct {
	Kind    Kind
	Message string
	// Err is the underlying cause, kept for logging only.
	Err error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error of the same kind.
// This lets callers use errors.Is(err, cloud.ErrObjectNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthentication       = &Error{Kind: KindAuthentication}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrObjectNotFound       = &Error{Kind: KindObjectNotFound}
	ErrBadInput             = &Error{Kind: KindBadInput}
	ErrQuotaExceeded        = &Error{Kind: KindQuotaExceeded}
	ErrInvalidOperation     = &Error{Kind: KindInvalidOperation}
	ErrImproperlyConfigured = &Error{Kind: KindImproperlyConfigured}
	ErrUnsupportedOperation = &Error{Kind: KindUnsupportedOperation}
	ErrCommunication        = &Error{Kind: KindCommunication}
	ErrOperationTimedOut    = &Error{Kind: KindOperationTimedOut}
)

// NewError builds a domain error of the given kind.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds a domain error of the given kind that keeps cause for logging.
func WrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func AuthenticationError(format string, args ...any) *Error {
	return NewError(KindAuthentication, format, args...)
}

func PermissionDeniedError(format string, args ...any) *Error {
	return NewError(KindPermissionDenied, format, args...)
}

func ObjectNotFoundError(format string, args ...any) *Error {
	return NewError(KindObjectNotFound, format, args...)
}

func BadInputError(format string, args ...any) *Error {
	return NewError(KindBadInput, format, args...)
}

func QuotaExceededError(format string, args ...any) *Error {
	return NewError(KindQuotaExceeded, format, args...)
}

func InvalidOperationError(format string, args ...any) *Error {
	return NewError(KindInvalidOperation, format, args...)
}

func ImproperlyConfiguredError(format string, args ...any) *Error {
	return NewError(KindImproperlyConfigured, format, args...)
}

func UnsupportedOperationError(format string, args ...any) *Error {
	return NewError(KindUnsupportedOperation, format, args...)
}

func CommunicationError(format string, args ...any) *Error {
	return NewError(KindCommunication, format, args...)
}

func OperationTimedOutError(format string, args ...any) *Error {
	return NewError(KindOperationTimedOut, format, args...)
}

// KindOf returns the kind of a domain error, or 0 if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsDomainError reports whether err is (or wraps) a domain error.
func IsDomainError(err error) bool {
	return KindOf(err) != 0
}
