// Package apperr provides the typed error shared by the store, the retry
// wrapper and the service layer. Retry decisions and result flattening look
// only at Kind, never at message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and presentation purposes.
type Kind int

const (
	KindUnexpected Kind = iota
	KindContention
	KindNotFound
	KindDuplicate
	KindValidation
	KindCredential
)

func (k Kind) String() string {
	switch k {
	case KindContention:
		return "contention"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindValidation:
		return "validation"
	case KindCredential:
		return "credential"
	default:
		return "unexpected"
	}
}

// Domain reports whether errors of this kind are ordinary business outcomes
// that callers see verbatim.
func (k Kind) Domain() bool {
	switch k {
	case KindNotFound, KindDuplicate, KindValidation, KindCredential:
		return true
	default:
		return false
	}
}

// HTTPStatus maps a kind to the status code used by the HTTP adapter.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicate:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindCredential:
		return http.StatusForbidden
	case KindContention:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the typed error. Code identifies the specific condition
// (e.g. "vehicle_not_found"); Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Code, so sentinels survive wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// New returns a domain error without a cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnexpected when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the caller-safe message of err when it is a domain error.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind.Domain() {
		return e.Message, true
	}
	return "", false
}
