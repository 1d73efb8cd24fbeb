package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transport layers can map it to a
// status code without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindState
	KindCapacity
	KindCancellationWindow
	KindForbidden
	KindBusiness
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindCapacity:
		return "capacity"
	case KindCancellationWindow:
		return "cancellation_window"
	case KindForbidden:
		return "forbidden"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Error is a domain error with a kind and a user-presentable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a domain error with the given kind.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef builds a domain error with a formatted message.
func Ef(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, unwrapping as needed.
// Returns KindUnknown for non-domain errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Message returns the user-presentable message of a domain error, or a
// generic fallback for everything else.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Msg
	}
	return "internal error"
}
