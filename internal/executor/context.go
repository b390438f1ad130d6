package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Metrics are the counters of one request.
type Metrics struct {
	ResolverCalls atomic.Int64
	OutputObjects atomic.Int64
	Duration      time.Duration
}

// RequestContext holds the state of one request execution.
type RequestContext struct {
	ID        string
	Request   *response.Request
	Operation *mapping.MappedOperation
	User      any
	FromCache bool
	Started   time.Time
	Metrics   Metrics
	Response  *response.Response

	ctx    context.Context
	cancel context.CancelFunc
	vars   map[string]any

	mu     sync.Mutex
	errors response.Errors

	aborted atomic.Bool
	data    sync.Map
}

func newRequestContext(parent context.Context, id string, req *response.Request) *RequestContext {
	ctx, cancel := context.WithCancel(parent)
	return &RequestContext{
		ID:       id,
		Request:  req,
		Started:  time.Now(),
		Response: &response.Response{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Context returns the request context, cancelled when the request aborts.
func (rc *RequestContext) Context() context.Context { return rc.ctx }

// Get returns request-scoped custom data.
func (rc *RequestContext) Get(key string) (any, bool) { return rc.data.Load(key) }

// Set stores request-scoped custom data.
func (rc *RequestContext) Set(key string, v any) { rc.data.Store(key, v) }

// Aborted reports whether the request was aborted by a quota or cancellation.
func (rc *RequestContext) Aborted() bool { return rc.aborted.Load() }

// Errors returns a copy of the errors recorded so far.
func (rc *RequestContext) Errors() response.Errors {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.errors) == 0 {
		return nil
	}
	return append(response.Errors(nil), rc.errors...)
}

func (rc *RequestContext) addError(err *gqlerror.Error) {
	rc.mu.Lock()
	rc.errors = append(rc.errors, err)
	rc.mu.Unlock()
}

// abort stops the request. Only the first abort records its error.
func (rc *RequestContext) abort(err *gqlerror.Error) bool {
	if !rc.aborted.CompareAndSwap(false, true) {
		return false
	}
	rc.addError(err)
	rc.cancel()
	return true
}

// fieldContext is the FieldContext of one resolver call. For batched calls
// it spans every scope of the batch.
type fieldContext struct {
	rc    *RequestContext
	field *mapping.MappedField
	path  ast.Path

	batch      []*fieldTask
	results    map[any]any
	missing    any
	resultsSet bool

	aborted atomic.Bool
}

var _ model.FieldContext = (*fieldContext)(nil)

func (fc *fieldContext) Context() context.Context { return fc.rc.ctx }
func (fc *fieldContext) FieldName() string        { return fc.field.Name }
func (fc *fieldContext) User() any                { return fc.rc.User }
func (fc *fieldContext) Abort()                   { fc.aborted.Store(true) }

func (fc *fieldContext) Path() []any {
	out := make([]any, len(fc.path))
	for i, el := range fc.path {
		switch el := el.(type) {
		case ast.PathName:
			out[i] = string(el)
		case ast.PathIndex:
			out[i] = int(el)
		}
	}
	return out
}

func (fc *fieldContext) AddError(err error) {
	if err == nil {
		return
	}
	fc.rc.addError(fieldError(err, fc.field, fc.path))
}

func (fc *fieldContext) Get(key string) (any, bool) { return fc.rc.Get(key) }
func (fc *fieldContext) Set(key string, v any)      { fc.rc.Set(key, v) }

func (fc *fieldContext) GetAllParentEntities() []any {
	if fc.batch == nil {
		return nil
	}
	out := make([]any, len(fc.batch))
	for i, t := range fc.batch {
		out[i] = t.scope.Entity
	}
	return out
}

func (fc *fieldContext) SetBatchedResults(results map[any]any, valueForMissingKeys any) {
	fc.results = results
	fc.missing = valueForMissingKeys
	fc.resultsSet = true
}
