package checks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ErrorKind string

const (
	KindUnauthorized      ErrorKind = "unauthorized"
	KindNotFound          ErrorKind = "not_found"
	KindTransient         ErrorKind = "transient"
	KindMalformedResponse ErrorKind = "malformed_response"
)

var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrTransient         = &Error{Kind: KindTransient}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
)

// Error is the failure outcome of a single check.
type Error struct {
	Kind         ErrorKind
	ResourceKind string
	Cause        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("check %s", e.Kind)
	if e.ResourceKind != "" {
		msg = fmt.Sprintf("%s on %s", msg, e.ResourceKind)
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

// Classify maps a provider, collector or context error onto a check Error.
// Errors that already are check errors are returned as is.
func Classify(resourceKind string, err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Kind: kindOf(err), ResourceKind: resourceKind, Cause: err}
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, collector.ErrPaginationLoop) {
		return KindMalformedResponse
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return KindNotFound
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return kindOfStatus(gErr.Code)
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return kindOfCode(s.Code())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindMalformedResponse
	}
	return KindTransient
}

func kindOfStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindUnauthorized
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return KindTransient
	default:
		return KindMalformedResponse
	}
}

func kindOfCode(code codes.Code) ErrorKind {
	switch code {
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindUnauthorized
	case codes.NotFound:
		return KindNotFound
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return KindMalformedResponse
	default:
		return KindTransient
	}
}
