package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgsAccessors(t *testing.T) {
	args := NewArgs(
		[]string{"i", "i64", "f", "s", "b", "none"},
		[]any{2, int64(3), 1.5, "x", true, nil},
	)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"float from int", args.Float("i"), 2.0},
		{"float from int64", args.Float("i64"), 3.0},
		{"float", args.Float("f"), 1.5},
		{"int from int64", args.Int("i64"), 3},
		{"string", args.String("s"), "x"},
		{"bool", args.Bool("b"), true},
		{"float of null", args.Float("none"), 0.0},
		{"float of absent", args.Float("missing"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.True(t, args.Has("none"))
	assert.False(t, args.Has("missing"))
}
