package executor

import (
	"context"
	"time"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/reqcache"
	"github.com/hanpama/gqlengine/internal/reqid"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/hanpama/gqlengine/internal/values"
	"go.uber.org/zap"
)

// Quotas bound the work of a single request. Zero disables a limit.
type Quotas struct {
	MaxOutputObjects int
	MaxDepth         int
}

// Engine executes requests against a model. It is safe for concurrent use.
type Engine struct {
	model           *model.Model
	logger          *zap.Logger
	cache           *reqcache.Cache[*mapping.MappedRequest]
	quotas          Quotas
	parallel        bool
	slowThreshold   time.Duration
	resolverTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithCache sets the cache of mapped requests. A nil cache disables caching.
func WithCache(c *reqcache.Cache[*mapping.MappedRequest]) Option {
	return func(e *Engine) { e.cache = c }
}

// WithQuotas sets per-request limits.
func WithQuotas(q Quotas) Option { return func(e *Engine) { e.quotas = q } }

// WithParallelQueries controls whether top-level query fields run concurrently (default true).
func WithParallelQueries(on bool) Option { return func(e *Engine) { e.parallel = on } }

// WithSlowRequestThreshold logs requests taking longer than d at warn level.
func WithSlowRequestThreshold(d time.Duration) Option {
	return func(e *Engine) { e.slowThreshold = d }
}

// WithResolverTimeout bounds the duration of each request.
func WithResolverTimeout(d time.Duration) Option {
	return func(e *Engine) { e.resolverTimeout = d }
}

// New returns an engine for m.
func New(m *model.Model, opts ...Option) *Engine {
	e := &Engine{
		model:    m,
		logger:   zap.NewNop(),
		cache:    reqcache.New[*mapping.MappedRequest](1000, 10*time.Minute),
		parallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model the engine executes against.
func (e *Engine) Model() *model.Model { return e.model }

// CacheStats returns the counters of the request cache.
func (e *Engine) CacheStats() reqcache.Stats {
	if e.cache == nil {
		return reqcache.Stats{}
	}
	return e.cache.Stats()
}

// RequestOption configures a single execution.
type RequestOption func(*RequestContext)

// WithUser sets the user principal resolvers see through FieldContext.User.
func WithUser(user any) RequestOption { return func(rc *RequestContext) { rc.User = user } }

// WithValue presets request-scoped custom data.
func WithValue(key string, v any) RequestOption {
	return func(rc *RequestContext) { rc.Set(key, v) }
}

// Execute runs req and returns its response.
func (e *Engine) Execute(ctx context.Context, req *response.Request, opts ...RequestOption) *response.Response {
	return e.Handle(ctx, req, opts...).Response
}

// Handle runs req and returns the finished request context, which carries
// the response and request metrics.
func (e *Engine) Handle(ctx context.Context, req *response.Request, opts ...RequestOption) *RequestContext {
	id, ok := reqid.FromContext(ctx)
	if !ok {
		ctx, id = reqid.NewContext(ctx)
	}
	if e.resolverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.resolverTimeout)
		defer cancel()
	}
	rc := newRequestContext(ctx, id, req)
	defer rc.cancel()
	for _, opt := range opts {
		opt(rc)
	}

	eventbus.Publish(rc.ctx, events.GraphQLStart{
		RequestID:     rc.ID,
		Query:         req.Query,
		OperationName: req.OperationName,
	})
	e.run(rc)
	rc.Metrics.Duration = time.Since(rc.Started)
	rc.Response.Errors = rc.Errors()

	opType := ""
	if rc.Operation != nil {
		opType = string(rc.Operation.Type)
	}
	errs := make([]error, len(rc.Response.Errors))
	for i, err := range rc.Response.Errors {
		errs[i] = err
	}
	eventbus.Publish(rc.ctx, events.GraphQLFinish{
		RequestID:     rc.ID,
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      rc.Metrics.Duration,
		FromCache:     rc.FromCache,
		ResolverCalls: rc.Metrics.ResolverCalls.Load(),
		OutputObjects: rc.Metrics.OutputObjects.Load(),
	})
	if e.slowThreshold > 0 && rc.Metrics.Duration > e.slowThreshold {
		e.logger.Warn("slow request",
			zap.String("request_id", rc.ID),
			zap.String("operation", req.OperationName),
			zap.Duration("duration", rc.Metrics.Duration),
			zap.Int64("resolver_calls", rc.Metrics.ResolverCalls.Load()),
		)
	}
	return rc
}

func (e *Engine) run(rc *RequestContext) {
	mapped, ok := e.mapOrRetrieve(rc)
	if !ok {
		return
	}
	op, err := mapped.Operation(rc.Request.OperationName)
	if err != nil {
		rc.addError(response.BadRequest(nil, "%v", err))
		return
	}
	rc.Operation = op

	vars, errs := values.CoerceVariables(op.Variables, rc.Request.Variables)
	if len(errs) > 0 {
		for _, err := range errs {
			rc.addError(inputError(err))
		}
		return
	}
	rc.vars = vars

	if op.Type == language.Subscription {
		rc.addError(response.BadRequest(op.Position, "subscriptions are not supported by this endpoint"))
		return
	}
	ex := &operationExecuter{engine: e, rc: rc}
	rc.Response.Data = ex.execute(op)
}

// mapOrRetrieve returns the mapped request for the query text, parsing and
// mapping it on a cache miss.
func (e *Engine) mapOrRetrieve(rc *RequestContext) (*mapping.MappedRequest, bool) {
	query := rc.Request.Query
	if query == "" {
		rc.addError(response.BadRequest(nil, "request does not contain a query"))
		return nil, false
	}
	if e.cache != nil {
		if mapped, ok := e.cache.TryLookup(query); ok {
			rc.FromCache = true
			e.logger.Debug("request cache hit", zap.String("request_id", rc.ID))
			eventbus.Publish(rc.ctx, events.CacheLookup{Hit: true})
			return mapped, true
		}
		e.logger.Debug("request cache miss", zap.String("request_id", rc.ID))
		eventbus.Publish(rc.ctx, events.CacheLookup{Hit: false})
	}

	doc, err := language.ParseQuery(query)
	if err != nil {
		if ge, ok := language.SyntaxError(err); ok {
			rc.addError(response.SyntaxError(ge))
		} else {
			rc.addError(response.NewError(response.CodeSyntaxError, nil, nil, "%v", err))
		}
		return nil, false
	}
	mapped, errs := mapping.Map(e.model, doc)
	if len(errs) > 0 {
		for _, err := range errs {
			rc.addError(err)
		}
		return nil, false
	}
	if e.cache != nil {
		e.cache.Add(query, mapped)
	}
	return mapped, true
}
