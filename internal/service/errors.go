package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// Kind classifies a domain failure. The HTTP layer maps each kind to a
// status code.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindValidation       Kind = "validation"
	KindPermissionDenied Kind = "permission_denied"
	KindInternal         Kind = "internal"
)

// Error is returned by every service operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrInternal         = &Error{Kind: KindInternal}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error  { return newError(KindNotFound, format, args...) }
func conflict(format string, args ...any) *Error  { return newError(KindConflict, format, args...) }
func invalid(format string, args ...any) *Error   { return newError(KindValidation, format, args...) }
func forbidden(format string, args ...any) *Error { return newError(KindPermissionDenied, format, args...) }

// KindOf returns the kind of err, or KindInternal for anything that is
// not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// storeErr translates a repository error about the named entity.
// Service errors pass through untouched.
func storeErr(err error, entity string) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return notFound("%s not found", entity)
	case errors.Is(err, repository.ErrConflict):
		return conflict("%s was modified concurrently", entity)
	default:
		return &Error{Kind: KindInternal, Message: "failed to access " + entity, Err: err}
	}
}
