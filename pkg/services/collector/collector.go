// Package collector follows provider pagination cursors until exhaustion.
package collector

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxPages bounds a single collection when no other limit is set.
const DefaultMaxPages = 10000

type ErrorKind string

const (
	KindUpstreamFailure ErrorKind = "upstream_failure"
	KindPaginationLoop  ErrorKind = "pagination_loop"
)

var (
	ErrUpstreamFailure = &Error{Kind: KindUpstreamFailure}
	ErrPaginationLoop  = &Error{Kind: KindPaginationLoop}
)

// Error is returned by Collect and CollectGrouped.
type Error struct {
	Kind   ErrorKind
	Cursor string
	Pages  int
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("collector %s after %d page(s)", e.Kind, e.Pages)
	if e.Cursor != "" {
		msg = fmt.Sprintf("%s at cursor %q", msg, e.Cursor)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Page is one response of a flat listing. An empty Next ends the listing.
type Page[T any] struct {
	Items []T
	Next  string
}

type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Group is one partition (zone, region, ...) of a grouped listing page.
type Group[T any] struct {
	Key   string
	Items []T
}

type GroupedPage[T any] struct {
	Groups []Group[T]
	Next   string
}

type GroupedPageFunc[T any] func(ctx context.Context, cursor string) (GroupedPage[T], error)

// Partitioned is an item flattened out of a grouped page, annotated with the
// partition it was listed under.
type Partitioned[T any] struct {
	Partition string
	Item      T
}

type options struct {
	maxPages int
}

type Option func(*options)

// WithMaxPages overrides DefaultMaxPages.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

// Collect calls fn until it stops returning a cursor and returns every item in
// call order. A cursor handed out twice is reported as ErrPaginationLoop.
func Collect[T any](ctx context.Context, fn PageFunc[T], opts ...Option) ([]T, error) {
	o := options{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&o)
	}

	var items []T
	seen := make(map[string]struct{})
	cursor := ""
	for pages := 0; ; pages++ {
		if pages >= o.maxPages {
			return nil, &Error{Kind: KindPaginationLoop, Cursor: cursor, Pages: pages}
		}
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindUpstreamFailure, Cursor: cursor, Pages: pages, Cause: err}
		}

		page, err := fn(ctx, cursor)
		if err != nil {
			return nil, &Error{Kind: KindUpstreamFailure, Cursor: cursor, Pages: pages, Cause: err}
		}
		items = append(items, page.Items...)

		if page.Next == "" {
			return items, nil
		}
		if _, dup := seen[page.Next]; dup || page.Next == cursor {
			return nil, &Error{Kind: KindPaginationLoop, Cursor: page.Next, Pages: pages + 1}
		}
		seen[page.Next] = struct{}{}
		cursor = page.Next
	}
}

// CollectGrouped is Collect for listings partitioned by a key, such as
// compute aggregatedList responses keyed by zone.
func CollectGrouped[T any](ctx context.Context, fn GroupedPageFunc[T], opts ...Option) ([]Partitioned[T], error) {
	flat := func(ctx context.Context, cursor string) (Page[Partitioned[T]], error) {
		gp, err := fn(ctx, cursor)
		if err != nil {
			return Page[Partitioned[T]]{}, err
		}
		var out []Partitioned[T]
		for _, g := range gp.Groups {
			for _, item := range g.Items {
				out = append(out, Partitioned[T]{Partition: g.Key, Item: item})
			}
		}
		return Page[Partitioned[T]]{Items: out, Next: gp.Next}, nil
	}
	return Collect(ctx, flat, opts...)
}

// Single adapts a non-paginated call to the collector contract.
func Single[T any](fn func(ctx context.Context) ([]T, error)) PageFunc[T] {
	return func(ctx context.Context, _ string) (Page[T], error) {
		items, err := fn(ctx)
		return Page[T]{Items: items}, err
	}
}
