package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/hanpama/gqlengine/internal/directives"
	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/executor"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/reqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

type captured struct {
	md   metadata.MD
	id   string
	user any
}

func newTestHandler(t *testing.T, c *captured, opts ...Option) *Handler {
	t.Helper()
	b := directives.Register(model.NewBuilder(""))
	b.Object("Query", "").
		Field("hello", "String").
		Resolve(func(fc model.FieldContext, _ any, _ model.Args) (any, error) {
			if c != nil {
				c.md, _ = metadata.FromOutgoingContext(fc.Context())
				c.id, _ = reqid.FromContext(fc.Context())
				c.user = fc.User()
			}
			return "world", nil
		})
	m, err := b.Build()
	require.NoError(t, err)
	return New(executor.New(m), opts...)
}

func post(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestForwardedHeaders(t *testing.T) {
	var c captured
	h := newTestHandler(t, &c, WithMetadataHeaders("X-Test"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc", "X-Other": "nope"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"abc"}, c.md.Get("x-test"))
	assert.Empty(t, c.md.Get("x-other"))
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	var c captured
	h := newTestHandler(t, &c)

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"X-Test": "abc"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, c.md.Get("x-test"))
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("*"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://example.com"})
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	assert.Equal(t, http.StatusNoContent, pw.Code)
	assert.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, nil, WithCORS("http://a.example"))

	w := post(h, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://a.example"})
	assert.Equal(t, "http://a.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	w = post(h, `{"query":"{ hello }"}`, map[string]string{"Origin": "http://b.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, nil, WithMaxBodyBytes(10))

	w := post(h, `{"query":"1234567890"}`, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"data":null,"errors":[{"message":"body too large","extensions":{"code":"BAD_REQUEST"}}]}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	var c captured
	h := newTestHandler(t, &c)

	w := post(h, `{"query":"{ hello }"}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, c.id)
	assert.Equal(t, []string{c.id}, c.md.Get("graphql-request-id"))
	assert.Equal(t, c.id, w.Header().Get(RequestIDHeader))
}

func TestRequestID_FromClient(t *testing.T) {
	var c captured
	h := newTestHandler(t, &c)

	w := post(h, `{"query":"{ hello }"}`, map[string]string{RequestIDHeader: "client-7"})

	assert.Equal(t, "client-7", c.id)
	assert.Equal(t, "client-7", w.Header().Get(RequestIDHeader))
}

func TestUser(t *testing.T) {
	var c captured
	h := newTestHandler(t, &c, WithUser(func(r *http.Request) any { return r.Header.Get("X-User") }))

	post(h, `{"query":"{ hello }"}`, map[string]string{"X-User": "luke"})

	assert.Equal(t, "luke", c.user)
}

// Pattern: Result comparison
func TestTransports_Result(t *testing.T) {
	h := newTestHandler(t, nil)
	hello := `{"data":{"hello":"world"}}`

	cases := []struct {
		name   string
		req    func() *http.Request
		status int
		body   string
	}{
		{
			name: "get",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?query="+url.QueryEscape("{ hello }"), nil)
			},
			status: http.StatusOK,
			body:   hello,
		},
		{
			name: "get with variables",
			req: func() *http.Request {
				q := url.Values{"query": {"query Q($x: Boolean!) { hello @include(if: $x) }"}, "variables": {`{"x":false}`}}
				return httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
			},
			status: http.StatusOK,
			body:   `{"data":{}}`,
		},
		{
			name: "application/graphql",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{ hello }"))
				r.Header.Set("Content-Type", "application/graphql")
				return r
			},
			status: http.StatusOK,
			body:   hello,
		},
		{
			name: "batch",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`[{"query":"{ hello }"},{"query":"{ a: hello }"}]`))
			},
			status: http.StatusOK,
			body:   `[{"data":{"hello":"world"}},{"data":{"a":"world"}}]`,
		},
		{
			name: "missing query",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/", nil)
			},
			status: http.StatusBadRequest,
			body:   `{"data":null,"errors":[{"message":"missing 'query'","extensions":{"code":"BAD_REQUEST"}}]}`,
		},
		{
			name: "invalid json",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":`))
			},
			status: http.StatusBadRequest,
			body:   `{"data":null,"errors":[{"message":"invalid JSON","extensions":{"code":"BAD_REQUEST"}}]}`,
		},
		{
			name: "unsupported content type",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`query=x`))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			status: http.StatusBadRequest,
			body:   `{"data":null,"errors":[{"message":"unsupported Content-Type","extensions":{"code":"BAD_REQUEST"}}]}`,
		},
		{
			name: "method not allowed",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPut, "/", nil)
			},
			status: http.StatusMethodNotAllowed,
			body:   `{"data":null,"errors":[{"message":"method not allowed","extensions":{"code":"BAD_REQUEST"}}]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, tc.req())
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestPretty(t *testing.T) {
	h := newTestHandler(t, nil, WithPretty())

	w := post(h, `{"query":"{ hello }"}`, nil)

	assert.Equal(t, "{\n  \"data\": {\n    \"hello\": \"world\"\n  }\n}\n", w.Body.String())
}

func TestHTTPFinishEvent(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var got []events.HTTPFinish
	eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) { got = append(got, e) })
	h := newTestHandler(t, nil)

	post(h, `[{"query":"{ hello }"},{"query":"{ hello }"}]`, nil)
	post(h, `{"query":`, nil)

	require.Len(t, got, 2)
	assert.Equal(t, http.StatusOK, got[0].Status)
	assert.Equal(t, 2, got[0].Operations)
	assert.Equal(t, http.StatusBadRequest, got[1].Status)
	assert.Equal(t, 0, got[1].Operations)
}
