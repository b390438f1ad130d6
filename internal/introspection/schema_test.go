package introspection_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/gqlengine/internal/directives"
	"github.com/hanpama/gqlengine/internal/executor"
	"github.com/hanpama/gqlengine/internal/introspection"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/hanpama/gqlengine/internal/starwars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starwarsEngine(t *testing.T) *executor.Engine {
	t.Helper()
	m, err := starwars.NewModel(starwars.NewStore())
	require.NoError(t, err)
	return executor.New(m)
}

func query(t *testing.T, e *executor.Engine, q string) map[string]any {
	t.Helper()
	resp := e.Execute(context.Background(), &response.Request{Query: q})
	require.Empty(t, resp.Errors)
	return resp.Data.ToMap()
}

func names(list any) []string {
	var out []string
	for _, item := range list.([]any) {
		out = append(out, item.(map[string]any)["name"].(string))
	}
	return out
}

// Pattern: Result comparison
func TestIntrospection_RootTypes_Result(t *testing.T) {
	e := starwarsEngine(t)

	got := query(t, e, `{ __schema { queryType { name } mutationType { name } subscriptionType { name } } }`)

	want := map[string]any{"__schema": map[string]any{
		"queryType":        map[string]any{"name": "Query"},
		"mutationType":     map[string]any{"name": "Mutation"},
		"subscriptionType": nil,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestIntrospection_ObjectType_Result(t *testing.T) {
	e := starwarsEngine(t)

	got := query(t, e, `{
		__type(name: "Droid") {
			kind
			name
			interfaces { name }
			fields { name type { kind name ofType { kind name } } }
		}
	}`)

	typ := got["__type"].(map[string]any)
	assert.Equal(t, "OBJECT", typ["kind"])
	assert.Equal(t, []string{"Character"}, names(typ["interfaces"]))
	if diff := cmp.Diff([]string{"id", "name", "friends", "appearsIn", "primaryFunction"}, names(typ["fields"])); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	id := typ["fields"].([]any)[0].(map[string]any)["type"]
	want := map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "SCALAR", "name": "ID"}}
	if diff := cmp.Diff(want, id); diff != "" {
		t.Fatalf("id type mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_HidesMetaFields(t *testing.T) {
	e := starwarsEngine(t)

	got := query(t, e, `{ __type(name: "Query") { fields { name } } }`)

	fields := names(got["__type"].(map[string]any)["fields"])
	assert.NotContains(t, fields, "__schema")
	assert.NotContains(t, fields, "__type")
	assert.Contains(t, fields, "hero")
}

// Pattern: Result comparison
func TestIntrospection_Lookups_Result(t *testing.T) {
	e := starwarsEngine(t)

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "unknown type",
			query: `{ __type(name: "Planet") { name } }`,
			want:  `{"__type":null}`,
		},
		{
			name:  "enum values",
			query: `{ __type(name: "Episode") { kind enumValues { name } fields { name } } }`,
			want:  `{"__type":{"kind":"ENUM","enumValues":[{"name":"NEWHOPE"},{"name":"EMPIRE"},{"name":"JEDI"}],"fields":null}}`,
		},
		{
			name:  "union members",
			query: `{ __type(name: "SearchResult") { kind possibleTypes { name } } }`,
			want:  `{"__type":{"kind":"UNION","possibleTypes":[{"name":"Human"},{"name":"Droid"},{"name":"Starship"}]}}`,
		},
		{
			name:  "input object",
			query: `{ __type(name: "ReviewInput") { kind inputFields { name type { kind } } } }`,
			want:  `{"__type":{"kind":"INPUT_OBJECT","inputFields":[{"name":"stars","type":{"kind":"NON_NULL"}},{"name":"commentary","type":{"kind":"SCALAR"}}]}}`,
		},
		{
			name:  "argument default",
			query: `{ __type(name: "Starship") { fields { name args { name defaultValue } } } }`,
			want: `{"__type":{"fields":[` +
				`{"name":"id","args":[]},` +
				`{"name":"name","args":[]},` +
				`{"name":"length","args":[{"name":"unit","defaultValue":"METER"}]}]}}`,
		},
		{
			name:  "directives by name",
			query: `{ __schema { directives { name } } }`,
			want:  `{"__schema":{"directives":[{"name":"deprecated"},{"name":"include"},{"name":"skip"},{"name":"upper"}]}}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(query(t, e, tc.query))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

// Pattern: Result comparison
func TestIntrospection_Deprecation_Result(t *testing.T) {
	b := directives.Register(model.NewBuilder(""))
	introspection.Register(b)
	b.Enum("Color", "").
		Value("RED", "red", "").
		Value("BLUE", "blue", "").Deprecated("use RED")
	b.Object("Query", "").
		Field("color", "Color").
		Resolve(func(model.FieldContext, any, model.Args) (any, error) { return "red", nil }).
		Field("old", "String").Deprecated("").
		Resolve(func(model.FieldContext, any, model.Args) (any, error) { return "x", nil })
	m, err := b.Build()
	require.NoError(t, err)
	e := executor.New(m)

	got := query(t, e, `{
		q: __type(name: "Query") {
			visible: fields { name }
			all: fields(includeDeprecated: true) { name isDeprecated deprecationReason }
		}
		c: __type(name: "Color") {
			enumValues(includeDeprecated: true) { name isDeprecated deprecationReason }
		}
	}`)

	want := map[string]any{
		"q": map[string]any{
			"visible": []any{map[string]any{"name": "color"}},
			"all": []any{
				map[string]any{"name": "color", "isDeprecated": false, "deprecationReason": nil},
				map[string]any{"name": "old", "isDeprecated": true, "deprecationReason": directives.DefaultDeprecationReason},
			},
		},
		"c": map[string]any{
			"enumValues": []any{
				map[string]any{"name": "RED", "isDeprecated": false, "deprecationReason": nil},
				map[string]any{"name": "BLUE", "isDeprecated": true, "deprecationReason": "use RED"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospection_AttachedToModel(t *testing.T) {
	m, err := starwars.NewModel(starwars.NewStore())
	require.NoError(t, err)

	sch, ok := m.Introspection.(*introspection.Schema)
	require.True(t, ok)
	assert.Same(t, sch.Type("Human"), m.Type("Human").Introspection)
	assert.Nil(t, (*introspection.Schema)(nil).Type("Human"))
	for i := 1; i < len(sch.Types); i++ {
		assert.Less(t, sch.Types[i-1].Name, sch.Types[i].Name)
	}
}
