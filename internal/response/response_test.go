package response

import (
	"encoding/json"
	"testing"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	inner := NewOrderedMap(2)
	inner.Set("z", 1)
	inner.Set("a", []any{true, nil})
	m := NewOrderedMap(3)
	m.Set("starships", inner)
	m.Set("hero", nil)
	m.Set("starships", inner)

	out, err := json.Marshal(&Response{Data: m})
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"starships":{"z":1,"a":[true,null]},"hero":null}}`, string(out))
	assert.Equal(t, []string{"starships", "hero"}, m.Keys())
}

func TestResponseErrors(t *testing.T) {
	resp := &Response{Errors: Errors{
		NewError(CodeResolverError, &language.Position{Line: 2, Column: 3}, ast.Path{ast.PathName("hero"), ast.PathIndex(0)}, "boom %d", 1),
	}}
	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": null,
		"errors": [{
			"message": "boom 1",
			"path": ["hero", 0],
			"locations": [{"line": 2, "column": 3}],
			"extensions": {"code": "RESOLVER_ERROR"}
		}]
	}`, string(out))
	assert.Equal(t, CodeResolverError, CodeOf(resp.Errors[0]))
	assert.True(t, resp.HasErrors())
}

func TestSyntaxErrorKeepsLocation(t *testing.T) {
	_, err := language.ParseQuery("{ hero { ")
	require.Error(t, err)
	ge, ok := language.SyntaxError(err)
	require.True(t, ok)
	converted := SyntaxError(ge)
	assert.Equal(t, CodeSyntaxError, CodeOf(converted))
	require.Len(t, converted.Locations, 1)
	assert.Equal(t, 1, converted.Locations[0].Line)
}
