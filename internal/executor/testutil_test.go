package executor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hanpama/gqlengine/internal/directives"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/hanpama/gqlengine/internal/starwars"
	"github.com/stretchr/testify/require"
)

// newStarwars returns an engine over a fresh sample store.
func newStarwars(t *testing.T, opts ...Option) (*Engine, *starwars.Store) {
	t.Helper()
	store := starwars.NewStore()
	m, err := starwars.NewModel(store)
	require.NoError(t, err)
	return New(m, opts...), store
}

// buildModel builds a model declared by declare, with the built-in directives.
func buildModel(t *testing.T, declare func(b *model.Builder)) *model.Model {
	t.Helper()
	b := directives.Register(model.NewBuilder(""))
	declare(b)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func execute(t *testing.T, e *Engine, query string, vars map[string]any) *response.Response {
	t.Helper()
	return e.Execute(context.Background(), &response.Request{Query: query, Variables: vars})
}

// mustJSON renders the response the way it goes over the wire.
func mustJSON(t *testing.T, resp *response.Response) string {
	t.Helper()
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(b)
}

type errorSummary struct {
	Code    string
	Path    string
	Message string
}

func summarize(errs response.Errors) []errorSummary {
	var out []errorSummary
	for _, err := range errs {
		out = append(out, errorSummary{
			Code:    string(response.CodeOf(err)),
			Path:    err.Path.String(),
			Message: err.Message,
		})
	}
	return out
}
