package credentials

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindMalformedMaterial ErrorKind = "malformed_material"
	KindSecretUnavailable ErrorKind = "secret_unavailable"
	KindProjectMismatch   ErrorKind = "project_mismatch"
)

var (
	ErrMalformedMaterial = &Error{Kind: KindMalformedMaterial}
	ErrSecretUnavailable = &Error{Kind: KindSecretUnavailable}
	ErrProjectMismatch   = &Error{Kind: KindProjectMismatch}
)

// Error is returned when a credential reference cannot be turned into a Session.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("credential %s", e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
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

func malformed(format string, args ...any) *Error {
	return &Error{Kind: KindMalformedMaterial, Message: fmt.Sprintf(format, args...)}
}
