package services

import (
	"errors"
	"fmt"
)

// Kind classifies ledger and store failures.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindInvariant    Kind = "invariant"
	KindRepository   Kind = "repository"
)

// Sentinels for errors.Is. Any *Error with the same Kind matches.
var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "invalid session state"}
	ErrInvariant    = &Error{Kind: KindInvariant, Message: "points invariant violated"}
	ErrRepository   = &Error{Kind: KindRepository, Message: "repository failure"}
)

// Error is the single error type returned by the ledger and the store.
type Error struct {
	Kind    Kind
	Message string
	// Details carries identifiers useful to the caller, e.g. "active_session_id".
	Details map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by kind so callers can write errors.Is(err, services.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(what, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", what, id),
		Details: map[string]string{what + "_id": id},
	}
}

func invalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func repositoryError(op string, cause error) *Error {
	return &Error{Kind: KindRepository, Message: op + " failed", Cause: cause}
}
