package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures so the delivery layer can pick a transport status.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindForbidden          ErrorKind = "forbidden"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindInvalidState       ErrorKind = "invalid_state"
	KindCapacityExceeded   ErrorKind = "capacity_exceeded"
	KindDuplicate          ErrorKind = "duplicate"
	KindInvalidTeamSize    ErrorKind = "invalid_team_size"
	KindInvalidPID         ErrorKind = "invalid_pid"
	KindCollegeMismatch    ErrorKind = "college_mismatch"
	KindRateLimited        ErrorKind = "rate_limited"
	KindServiceUnavailable ErrorKind = "service_unavailable"
)

// Error is a classified domain error. Message is safe to show to API clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return strings.ReplaceAll(string(e.Kind), "_", " ")
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any target of the same kind that carries no message, so the kind
// sentinels below work with errors.Is. Targets with a message only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// NewError returns a classified error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies cause under kind with a client-safe message.
func WrapError(kind ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Kind sentinels. Use with errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrCapacityExceeded   = &Error{Kind: KindCapacityExceeded}
	ErrDuplicate          = &Error{Kind: KindDuplicate}
	ErrInvalidTeamSize    = &Error{Kind: KindInvalidTeamSize}
	ErrInvalidPID         = &Error{Kind: KindInvalidPID}
	ErrCollegeMismatch    = &Error{Kind: KindCollegeMismatch}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
)

// Storage uniqueness violations, returned by repositories.
var (
	ErrDuplicateEmail      = &Error{Kind: KindDuplicate, Message: "email already in use"}
	ErrDuplicateRollNumber = &Error{Kind: KindDuplicate, Message: "roll number already in use"}
	ErrDuplicatePID        = &Error{Kind: KindDuplicate, Message: "participant id already assigned"}
	ErrDuplicateTID        = &Error{Kind: KindDuplicate, Message: "team id already assigned"}
	ErrAlreadyRegistered   = &Error{Kind: KindDuplicate, Message: "You are already registered for this event"}
)

// NewCapacityError reports a full event with the number of slots still open.
func NewCapacityError(remaining int) *Error {
	if remaining < 0 {
		remaining = 0
	}
	return NewError(KindCapacityExceeded, "Not enough spots available. Event has %d slots remaining.", remaining)
}
