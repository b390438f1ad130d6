package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/executor"
	"github.com/hanpama/gqlengine/internal/reqid"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, runs the engine, and writes the JSON responses.
type Handler struct {
	engine *executor.Engine
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// MetadataHeaders lists HTTP headers to forward into gRPC metadata.
	// Header names are case-insensitive. Default is none.
	MetadataHeaders []string

	// User extracts the principal resolvers see through FieldContext.User.
	User func(*http.Request) any

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithMetadataHeaders(headers ...string) Option {
	return func(o *Options) { o.MetadataHeaders = headers }
}
func WithUser(fn func(*http.Request) any) Option { return func(o *Options) { o.User = fn } }
func WithLogger(l *zap.Logger) Option             { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler serving requests with engine.
func New(engine *executor.Engine, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, Logger: zap.NewNop()}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{engine: engine, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	var rid string
	if rid = r.Header.Get(RequestIDHeader); rid != "" {
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, rid = reqid.NewContext(ctx)
	}
	w.Header().Set(RequestIDHeader, rid)

	status, operations := http.StatusOK, 0
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:    r,
			Status:     status,
			Operations: operations,
			Duration:   time.Since(start),
		})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, status, errorResponse(response.BadRequest(nil, "method not allowed")), h.opt.Pretty)
		return
	}

	// Map configured headers into metadata
	md := metadata.MD{}
	if len(h.opt.MetadataHeaders) > 0 {
		allowed := make(map[string]struct{}, len(h.opt.MetadataHeaders))
		for _, hdr := range h.opt.MetadataHeaders {
			allowed[strings.ToLower(hdr)] = struct{}{}
		}
		for k, v := range r.Header {
			if _, ok := allowed[strings.ToLower(k)]; ok {
				md[strings.ToLower(k)] = v
			}
		}
	}
	md["graphql-request-id"] = []string{rid}
	ctx = metadata.NewOutgoingContext(ctx, md)

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		h.opt.Logger.Debug("rejected request",
			zap.String("request_id", rid),
			zap.Int("status", status),
			zap.String("reason", berr.Message),
		)
		writeJSON(w, status, errorResponse(berr), h.opt.Pretty)
		return
	}

	var ropts []executor.RequestOption
	if h.opt.User != nil {
		ropts = append(ropts, executor.WithUser(h.opt.User(r)))
	}

	if batch != nil {
		operations = len(batch)
		out := make([]*response.Response, len(batch))
		// batched operations share the request id of the HTTP request
		for i, br := range batch {
			out[i] = h.engine.Execute(ctx, br, ropts...)
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	operations = 1
	writeJSON(w, status, h.engine.Execute(ctx, req, ropts...), h.opt.Pretty)
}

// ------------------ Request parsing ------------------

func parseRequest(r *http.Request, maxBody int64) (*response.Request, []*response.Request, *gqlerror.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return nil, nil, response.BadRequest(nil, "missing 'query'")
		}
		var vars map[string]any
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return nil, nil, response.BadRequest(nil, "invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return &response.Request{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	// POST
	ct := r.Header.Get("Content-Type")
	isJSON := ct == "" || ct == "application/json" || strings.HasPrefix(ct, "application/json;")
	isGraphQL := ct == "application/graphql" || strings.HasPrefix(ct, "application/graphql;")
	if !isJSON && !isGraphQL {
		return nil, nil, response.BadRequest(nil, "unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, response.BadRequest(nil, "failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, nil, response.BadRequest(nil, errBodyTooLargeMessage)
	}
	if isGraphQL {
		return &response.Request{Query: string(body)}, nil, nil
	}

	// Try array (batch)
	if len(body) > 0 && body[0] == '[' {
		var arr []*response.Request
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, nil, response.BadRequest(nil, "invalid JSON")
		}
		if len(arr) == 0 {
			return nil, nil, response.BadRequest(nil, "empty batch")
		}
		for i, req := range arr {
			if req == nil {
				arr[i] = &response.Request{}
			}
		}
		return nil, arr, nil
	}
	// Single
	var req response.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, response.BadRequest(nil, "invalid JSON")
	}
	if req.Query == "" {
		return nil, nil, response.BadRequest(nil, "missing 'query'")
	}
	return &req, nil, nil
}

// ------------------ Response formatting ------------------

func errorResponse(err *gqlerror.Error) *response.Response {
	return &response.Response{Errors: response.Errors{err}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
