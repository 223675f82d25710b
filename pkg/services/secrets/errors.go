package secrets

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindMalformedMaterial ErrorKind = "malformed_material"
	KindNotFound          ErrorKind = "not_found"
	KindAccessDenied      ErrorKind = "access_denied"
	KindUnavailable       ErrorKind = "unavailable"
)

var (
	ErrMalformedMaterial = &Error{Kind: KindMalformedMaterial}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
)

type Error struct {
	Kind    ErrorKind
	Locator string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("secret %s", e.Kind)
	if e.Locator != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Locator)
	}
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
