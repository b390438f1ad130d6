package values

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trait uint32

func testModel(t *testing.T) *model.Model {
	t.Helper()
	b := model.NewBuilder("")
	b.Enum("Episode", "").
		Value("NEWHOPE", 4, "").
		Value("EMPIRE", 5, "").
		Value("JEDI", 6, "")
	b.FlagsEnum("Trait", "").
		Value("BRAVE", trait(1), "").
		Value("LOYAL", trait(2), "")
	b.Input("ReviewInput", "").
		Field("stars", "Int!").
		Field("commentary", "String").
		AddField(model.NewArg("episode", "Episode").WithDefault(6))
	b.Object("Query", "").Field("x", "Int")
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func typeRef(t *testing.T, m *model.Model, expr string) *model.TypeRef {
	t.Helper()
	ref, err := model.ParseTypeRef(expr)
	require.NoError(t, err)
	require.NoError(t, m.Resolve(ref))
	return ref
}

func compileLiteral(t *testing.T, m *model.Model, literal, typeExpr string, vars map[string]*VariableDef) (Evaluator, error) {
	t.Helper()
	node, err := language.ParseValue(literal)
	require.NoError(t, err)
	return Compile(node, typeRef(t, m, typeExpr), vars)
}

func TestCompileLiterals(t *testing.T) {
	m := testModel(t)
	tests := []struct {
		literal  string
		typeExpr string
		want     any
	}{
		{`5`, `Int`, 5},
		{`5`, `Float!`, 5.0},
		{`"abc"`, `String`, "abc"},
		{`jedi`, `Episode`, 6},
		{`[NEWHOPE, EMPIRE]`, `[Episode!]`, []any{4, 5}},
		{`EMPIRE`, `[Episode]`, []any{5}},
		{`[BRAVE, LOYAL]`, `Trait`, trait(3)},
		{`null`, `Int`, nil},
		{`[[1], [2, 3]]`, `[[Int]]`, []any{[]any{1}, []any{2, 3}}},
		{`{stars: 5}`, `ReviewInput!`, map[string]any{"stars": 5, "episode": 6}},
		{`{stars: 3, commentary: "ok", episode: EMPIRE}`, `ReviewInput`, map[string]any{"stars": 3, "commentary": "ok", "episode": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.literal+" as "+tt.typeExpr, func(t *testing.T) {
			ev, err := compileLiteral(t, m, tt.literal, tt.typeExpr, nil)
			require.NoError(t, err)
			assert.True(t, ev.Static())
			got, err := ev.Eval(nil)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompileInvalidLiterals(t *testing.T) {
	m := testModel(t)
	tests := []struct {
		literal  string
		typeExpr string
		want     string
	}{
		{`null`, `Int!`, "expected value of type Int!, found null"},
		{`"5"`, `Int`, `Int cannot represent value "5"`},
		{`SITH`, `Episode`, `value "SITH" is not defined in enum Episode`},
		{`{commentary: "x"}`, `ReviewInput`, "field ReviewInput.stars of required type Int! was not provided"},
		{`{stars: 1, rating: 2}`, `ReviewInput`, `field "rating" is not defined by type ReviewInput`},
		{`5.5`, `Int`, "Int cannot represent value 5.5"},
		{`BRAVE`, `String`, "String cannot represent enum value BRAVE"},
	}
	for _, tt := range tests {
		t.Run(tt.literal, func(t *testing.T) {
			_, err := compileLiteral(t, m, tt.literal, tt.typeExpr, nil)
			require.Error(t, err)
			var inputErr *InvalidInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Contains(t, inputErr.Message, tt.want)
			assert.NotNil(t, inputErr.Pos)
		})
	}
}

func TestCompileVariables(t *testing.T) {
	m := testModel(t)
	vars := map[string]*VariableDef{
		"n":     {Name: "n", Type: typeRef(t, m, "Int")},
		"nn":    {Name: "nn", Type: typeRef(t, m, "Int!")},
		"eps":   {Name: "eps", Type: typeRef(t, m, "[Episode]")},
		"stars": {Name: "stars", Type: typeRef(t, m, "Int"), HasDefault: true, Default: 3},
	}

	ev, err := compileLiteral(t, m, `$n`, `Float`, vars)
	require.NoError(t, err)
	assert.False(t, ev.Static())
	got, err := ev.Eval(map[string]any{"n": 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	ev, err = compileLiteral(t, m, `{stars: $stars}`, `ReviewInput`, vars)
	require.NoError(t, err)
	assert.False(t, ev.Static())
	got, err = ev.Eval(map[string]any{"stars": 4})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stars": 4, "episode": 6}, got)

	_, err = compileLiteral(t, m, `$missing`, `Int`, vars)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "variable $missing is not defined", usage.Message)

	_, err = compileLiteral(t, m, `$eps`, `Episode`, vars)
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "cannot be used where Episode is expected")

	_, err = compileLiteral(t, m, `$n`, `Int!`, vars)
	require.ErrorAs(t, err, &usage)

	_, err = compileLiteral(t, m, `$nn`, `Int!`, vars)
	require.NoError(t, err)
}

func TestCompileInputDefaults(t *testing.T) {
	m := testModel(t)
	vars := map[string]*VariableDef{
		"n": {Name: "n", Type: typeRef(t, m, "Int")},
	}
	arg := &model.InputValueDef{Name: "limit", Type: typeRef(t, m, "Int!"), HasDefault: true, DefaultValue: 7}
	node, err := language.ParseValue(`$n`)
	require.NoError(t, err)

	// nullable variable is accepted for a required argument with a default
	ev, err := CompileInput(node, arg, vars)
	require.NoError(t, err)

	got, err := ev.Eval(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	got, err = ev.Eval(map[string]any{"n": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = ev.Eval(map[string]any{"n": nil})
	var inputErr *InvalidInputError
	require.ErrorAs(t, err, &inputErr)

	// input object fields fall back to their own defaults
	vars["e"] = &VariableDef{Name: "e", Type: typeRef(t, m, "Episode")}
	ev, err = compileLiteral(t, m, `{stars: 1, episode: $e}`, `ReviewInput`, vars)
	require.NoError(t, err)
	got, err = ev.Eval(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"stars": 1, "episode": 6}, got)
}

func TestSame(t *testing.T) {
	m := testModel(t)
	vars := map[string]*VariableDef{
		"a": {Name: "a", Type: typeRef(t, m, "Int")},
		"b": {Name: "b", Type: typeRef(t, m, "Int")},
		"s": {Name: "s", Type: typeRef(t, m, "Int!")},
		"r": {Name: "r", Type: typeRef(t, m, "Int!")},
	}
	tests := []struct {
		x, y     string
		typeExpr string
		want     bool
	}{
		{`$a`, `$a`, `Int`, true},
		{`$a`, `$b`, `Int`, false},
		{`$a`, `1`, `Int`, false},
		{`1`, `1`, `Int`, true},
		{`1`, `2`, `Int`, false},
		{`[$a, 1]`, `[$a, 1]`, `[Int]`, true},
		{`[$a, 1]`, `[$b, 1]`, `[Int]`, false},
		{`[$a]`, `[$a, $a]`, `[Int]`, false},
		{`{stars: $s}`, `{stars: $s}`, `ReviewInput`, true},
		{`{stars: $s}`, `{stars: $r}`, `ReviewInput`, false},
	}
	for _, tt := range tests {
		t.Run(tt.x+" vs "+tt.y, func(t *testing.T) {
			x, err := compileLiteral(t, m, tt.x, tt.typeExpr, vars)
			require.NoError(t, err)
			y, err := compileLiteral(t, m, tt.y, tt.typeExpr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Same(x, y))
		})
	}
}

func TestIsConvertibleFrom(t *testing.T) {
	m := testModel(t)
	tests := []struct {
		target, source string
		want           bool
	}{
		{"Int", "Int!", true},
		{"Int!", "Int", true},
		{"Float", "Int", true},
		{"Int", "Float", false},
		{"[Int]", "[Int!]!", true},
		{"[Int!]", "[Int]", false},
		{"[Int]", "Int", false},
		{"Int", "[Int]", false},
		{"[[Episode]]", "[[Episode]]", true},
		{"[[Episode]]", "[Episode]", false},
		{"ID", "String", true},
	}
	for _, tt := range tests {
		t.Run(tt.target+" from "+tt.source, func(t *testing.T) {
			got := IsConvertibleFrom(typeRef(t, m, tt.target), typeRef(t, m, tt.source))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceVariables(t *testing.T) {
	m := testModel(t)
	defs := []*VariableDef{
		{Name: "ep", Type: typeRef(t, m, "Episode!")},
		{Name: "review", Type: typeRef(t, m, "ReviewInput")},
		{Name: "traits", Type: typeRef(t, m, "Trait")},
		{Name: "limit", Type: typeRef(t, m, "Int"), HasDefault: true, Default: 10},
		{Name: "ids", Type: typeRef(t, m, "[ID!]")},
	}
	got, errs := CoerceVariables(defs, map[string]any{
		"ep":     "EMPIRE",
		"review": map[string]any{"stars": float64(5)},
		"traits": []any{"BRAVE", "loyal"},
		"ids":    float64(3000),
	})
	require.Empty(t, errs)
	want := map[string]any{
		"ep":     5,
		"review": map[string]any{"stars": 5, "episode": 6},
		"traits": trait(3),
		"limit":  10,
		"ids":    []any{"3000"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}

	_, errs = CoerceVariables(defs, map[string]any{"review": map[string]any{"stars": "many"}})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "variable $ep of required type Episode! was not provided")
	assert.Contains(t, errs[1].Error(), `Int cannot represent value "many"`)
}
