package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuerySyntaxError(t *testing.T) {
	_, err := ParseQuery("{ starships { name ")
	require.Error(t, err)
	ge, ok := SyntaxError(err)
	require.True(t, ok)
	require.NotEmpty(t, ge.Locations)
	require.Equal(t, 1, ge.Locations[0].Line)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("[[Int]!]")
	require.NoError(t, err)
	require.Equal(t, "[[Int]!]", typ.String())
	require.False(t, typ.NonNull)
	require.True(t, typ.Elem.NonNull)

	_, err = ParseType("[Int")
	require.Error(t, err)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`{ stars: 5, tags: ["a", "b"] }`)
	require.NoError(t, err)
	require.Equal(t, ObjectValue, v.Kind)
	require.Len(t, v.Children, 2)
	require.Equal(t, "stars", v.Children[0].Name)
}
