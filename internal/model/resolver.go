package model

import (
	"context"
	"errors"
	"fmt"
)

// ResolverFunc resolves one field. parent is the entity of the enclosing
// object (nil for root fields); args holds the coerced arguments in
// declaration order. The result may be a Future.
type ResolverFunc func(fc FieldContext, parent any, args Args) (any, error)

// FieldContext is the per-field view of a running request handed to resolvers.
type FieldContext interface {
	Context() context.Context
	FieldName() string
	Path() []any
	User() any
	AddError(err error)
	// Abort stops resolution of the field subtree.
	Abort()
	Get(key string) (any, bool)
	Set(key string, v any)
	// GetAllParentEntities returns the parents of every scope taking part
	// in a batched call, in scope order.
	GetAllParentEntities() []any
	// SetBatchedResults hands the values of a batched call keyed by parent
	// entity. Parents without a key get valueForMissingKeys, or the
	// field's declared missing-key value when it is nil.
	SetBatchedResults(results map[any]any, valueForMissingKeys any)
}

// Entity lets a value name the object type it should be dispatched to when
// returned from an interface or union field.
type Entity interface {
	EntityKind() string
}

// ErrObjectNotFound reports a lookup miss. The engine reports it with the
// OBJECT_NOT_FOUND code.
var ErrObjectNotFound = errors.New("object not found")

// CodedError is an error carrying its own response error code.
type CodedError interface {
	error
	Code() string
}

type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Code() string  { return e.code }
func (e *codedError) Unwrap() error { return e.err }

// WithCode attaches a response error code to err.
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// Future is the pending result of an asynchronous resolver.
type Future interface {
	Await(ctx context.Context) (any, error)
}

type future struct {
	done  chan struct{}
	value any
	err   error
}

// Async runs fn on its own goroutine and returns its pending result.
func Async(fn func() (any, error)) Future {
	f := &future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("panic in async resolver: %v", r)
			}
		}()
		f.value, f.err = fn()
	}()
	return f
}

func (f *future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resolved returns an already completed Future.
func Resolved(v any, err error) Future {
	f := &future{done: make(chan struct{}), value: v, err: err}
	close(f.done)
	return f
}

// Args holds coerced argument values in declaration order.
type Args struct {
	names  []string
	values []any
}

// NewArgs pairs names with values; both slices must have the same length.
func NewArgs(names []string, values []any) Args {
	return Args{names: names, values: values}
}

func (a Args) Len() int          { return len(a.names) }
func (a Args) Name(i int) string { return a.names[i] }
func (a Args) Value(i int) any   { return a.values[i] }

// Get returns the value of the named argument, or nil.
func (a Args) Get(name string) any {
	for i, n := range a.names {
		if n == name {
			return a.values[i]
		}
	}
	return nil
}

// Has reports whether the named argument is present.
func (a Args) Has(name string) bool {
	for _, n := range a.names {
		if n == name {
			return true
		}
	}
	return false
}

func (a Args) String(name string) string {
	s, _ := a.Get(name).(string)
	return s
}

func (a Args) Int(name string) int {
	switch v := a.Get(name).(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (a Args) Bool(name string) bool {
	b, _ := a.Get(name).(bool)
	return b
}

func (a Args) Float(name string) float64 {
	switch v := a.Get(name).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// With returns a copy of a with name set to v.
func (a Args) With(name string, v any) Args {
	names := append([]string(nil), a.names...)
	values := append([]any(nil), a.values...)
	for i, n := range names {
		if n == name {
			values[i] = v
			return Args{names: names, values: values}
		}
	}
	return Args{names: append(names, name), values: append(values, v)}
}

// Map returns the arguments as a map.
func (a Args) Map() map[string]any {
	m := make(map[string]any, len(a.names))
	for i, n := range a.names {
		m[n] = a.values[i]
	}
	return m
}

// Prop builds a field reader for parents of type T.
func Prop[T any](get func(T) any) func(parent any) (any, error) {
	return func(parent any) (any, error) {
		p, ok := parent.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("expected parent of type %T, got %T", zero, parent)
		}
		return get(p), nil
	}
}

// MapReader reads key from a map[string]any parent.
func MapReader(key string) func(parent any) (any, error) {
	return func(parent any) (any, error) {
		m, ok := parent.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map parent, got %T", parent)
		}
		return m[key], nil
	}
}
