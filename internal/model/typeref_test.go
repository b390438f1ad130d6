package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestTypeRef(t *testing.T) {
	ref, err := ParseTypeRef("[[Int]!]")
	require.NoError(t, err)
	assert.Equal(t, "[[Int]!]", ref.String())
	assert.Equal(t, 2, ref.Rank())
	assert.True(t, ref.IsNullable())
	assert.Equal(t, "Int", ref.GetNamedType())

	nn := NonNullType(ref)
	assert.Same(t, nn, NonNullType(nn))
	assert.Equal(t, 2, nn.Rank())
	assert.True(t, nn.IsList())
	assert.True(t, nn.Nullable().Equal(ref))
	assert.False(t, nn.Equal(ref))

	other, err := ParseTypeRef("[[Int]!]")
	require.NoError(t, err)
	assert.True(t, ref.Equal(other))

	scalar, err := ParseTypeRef("String")
	require.NoError(t, err)
	assert.Equal(t, 0, scalar.Rank())
}

func TestBuiltinScalars(t *testing.T) {
	in := func(def *TypeDef, v any) any {
		t.Helper()
		require.True(t, def.Scalar.CanConvertFrom(v), "%s should accept %T", def.Name, v)
		out, err := def.Scalar.ConvertInput(v)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, 5, in(IntScalar, int64(5)))
	assert.Equal(t, 5, in(IntScalar, float64(5)))
	assert.Equal(t, 7, in(IntScalar, json.Number("7")))
	assert.False(t, IntScalar.Scalar.CanConvertFrom(5.5))
	assert.False(t, IntScalar.Scalar.CanConvertFrom("5"))
	_, err := IntScalar.Scalar.ConvertInput(int64(1) << 40)
	assert.Error(t, err)

	assert.Equal(t, 2.0, in(FloatScalar, int64(2)))
	assert.Equal(t, "x", in(StringScalar, "x"))
	assert.False(t, StringScalar.Scalar.CanConvertFrom(1))
	assert.Equal(t, "42", in(IDScalar, int64(42)))
	assert.Equal(t, int64(1)<<40, in(LongScalar, int64(1)<<40))

	ts := time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, ts, in(DateTimeScalar, "2024-05-04T12:00:00Z"))
	assert.Equal(t, ts, in(DateTimeScalar, timestamppb.New(ts)))
	out, err := DateTimeScalar.ToOutput(timestamppb.New(ts))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-04T12:00:00Z", out)

	id := uuid.New()
	assert.Equal(t, id, in(UuidScalar, id.String()))
	out, err = UuidScalar.ToOutput(id)
	require.NoError(t, err)
	assert.Equal(t, id.String(), out)

	out, err = IDScalar.ToOutput(3000)
	require.NoError(t, err)
	assert.Equal(t, "3000", out)
}

type trait uint8

func TestEnumOutput(t *testing.T) {
	b := NewBuilder("")
	b.Enum("Episode", "").
		Value("NEWHOPE", 4, "").
		Value("EMPIRE", 5, "").
		Value("JEDI", 6, "")
	b.FlagsEnum("Trait", "").
		Value("BRAVE", trait(1), "").
		Value("LOYAL", trait(2), "").
		Value("WISE", trait(4), "")
	b.Object("Query", "").Field("e", "Episode").Field("t", "Trait")
	m, err := b.Build()
	require.NoError(t, err)

	episode := m.Type("Episode")
	out, err := episode.ToOutput(5)
	require.NoError(t, err)
	assert.Equal(t, "EMPIRE", out)
	ev, ok := episode.EnumValue("jedi")
	require.True(t, ok)
	assert.Equal(t, 6, ev.Value)
	_, err = episode.ToOutput(9)
	assert.Error(t, err)

	traits := m.Type("Trait")
	out, err = traits.ToOutput(trait(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"BRAVE", "WISE"}, out)

	brave, _ := traits.EnumValue("BRAVE")
	loyal, _ := traits.EnumValue("LOYAL")
	combined, err := traits.FlagsValue([]*EnumValueDef{brave, loyal})
	require.NoError(t, err)
	assert.Equal(t, trait(3), combined)
}
