package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/reqid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSubscribe_SpanTree(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := Subscribe(tp.Tracer("test"))
	defer unsubscribe()

	ctx := reqid.WithID(context.Background(), "r1")
	req := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Publish(ctx, events.HTTPStart{Request: req})
	eventbus.Publish(ctx, events.GraphQLStart{RequestID: "r1", OperationName: "Q"})
	eventbus.Publish(ctx, events.FieldStart{RequestID: "r1", Field: "hero", Path: "hero"})
	eventbus.Publish(ctx, events.FieldFinish{RequestID: "r1", Field: "hero", Path: "hero", Failed: true})
	eventbus.Publish(ctx, events.GraphQLFinish{RequestID: "r1", OperationType: "query", Errors: []error{errors.New("boom")}})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	field, gql, http := spans[0], spans[1], spans[2]

	assert.Equal(t, "graphql.field", field.Name())
	assert.Equal(t, "graphql.request", gql.Name())
	assert.Equal(t, "http.request", http.Name())

	assert.Equal(t, gql.SpanContext().SpanID(), field.Parent().SpanID())
	assert.Equal(t, http.SpanContext().SpanID(), gql.Parent().SpanID())
	assert.Equal(t, codes.Error, field.Status().Code)
	assert.Equal(t, "boom", gql.Status().Description)
}

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup("", "svc")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
