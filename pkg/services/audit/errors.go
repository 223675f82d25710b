package audit

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindUnknownCheck        ErrorKind = "unknown_check"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
)

var (
	ErrUnknownCheck        = &Error{Kind: KindUnknownCheck}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable}
)

// Error is a run-level failure: no check was dispatched.
type Error struct {
	Kind  ErrorKind
	Names []string
	Cause error
}

func (e *Error) Error() string {
	switch {
	case len(e.Names) > 0:
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(e.Names, ", "))
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}
