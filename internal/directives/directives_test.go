package directives

import (
	"errors"
	"strings"
	"testing"

	"github.com/hanpama/gqlengine/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marker struct{ reason string }

func (m *marker) SetDeprecated(reason string) { m.reason = reason }

func TestSkipHandlers(t *testing.T) {
	tests := []struct {
		name string
		def  *model.DirectiveDef
		arg  bool
		skip bool
	}{
		{"include true", Include, true, false},
		{"include false", Include, false, true},
		{"skip true", Skip, true, true},
		{"skip false", Skip, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.def.Handler.(model.SkipHandler)
			assert.Equal(t, tt.skip, h.ShouldSkip(map[string]any{"if": tt.arg}))
		})
	}
}

func TestDeprecatedAppliesToIntrospection(t *testing.T) {
	b := Register(model.NewBuilder(""))
	b.Object("Query", "").
		Field("old", "Int").Deprecated("use new").
		Field("older", "Int").Directive("deprecated", nil).
		Field("new", "Int")

	old, older := &marker{}, &marker{}
	b.OnBuild(func(m *model.Model) error {
		m.QueryType.Field("old").Introspection = old
		m.QueryType.Field("older").Introspection = older
		return nil
	})
	m, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, "use new", old.reason)
	assert.Equal(t, DefaultDeprecationReason, older.reason)
	assert.NotNil(t, m.Directive("include"))
	assert.NotNil(t, m.Directive("skip"))
}

func TestRegisterCopiesDefinitions(t *testing.T) {
	b1 := Register(model.NewBuilder(""))
	b1.Object("Query", "").Field("x", "Int")
	m1, err := b1.Build()
	require.NoError(t, err)
	b2 := Register(model.NewBuilder(""))
	b2.Object("Query", "").Field("x", "Int")
	m2, err := b2.Build()
	require.NoError(t, err)
	assert.NotSame(t, m1.Directive("skip"), m2.Directive("skip"))
	assert.NotSame(t, m1.Directive("skip").Args[0], m2.Directive("skip").Args[0])
}

func TestTransform(t *testing.T) {
	upper := Transform("upper", "", func(v any, _ map[string]any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return strings.ToUpper(s), nil
	})
	h := upper.Handler.(model.FieldHandler)

	got, err := h.PostProcessField(nil, nil, "luke")
	require.NoError(t, err)
	assert.Equal(t, "LUKE", got)

	got, err = h.PostProcessField(nil, nil, []any{"r2", nil, "c3po"})
	require.NoError(t, err)
	assert.Equal(t, []any{"R2", nil, "C3PO"}, got)

	_, err = h.PostProcessField(nil, nil, 5)
	assert.EqualError(t, err, "@upper: not a string")
}
