// Package directives provides the built-in directives and helpers to declare
// custom ones.
package directives

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/model"
)

// DefaultDeprecationReason is used when @deprecated is given no reason.
const DefaultDeprecationReason = "No longer supported"

// Include is @include(if: Boolean!).
var Include = &model.DirectiveDef{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Locations:   model.LocationField | model.LocationFragmentSpread | model.LocationInlineFragment,
	Args:        []*model.InputValueDef{model.NewArg("if", "Boolean!").WithDescription("Included when true.")},
	Handler:     includeHandler{},
}

// Skip is @skip(if: Boolean!).
var Skip = &model.DirectiveDef{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Locations:   model.LocationField | model.LocationFragmentSpread | model.LocationInlineFragment,
	Args:        []*model.InputValueDef{model.NewArg("if", "Boolean!").WithDescription("Skipped when true.")},
	Handler:     skipHandler{},
}

// Deprecated is @deprecated(reason: String).
var Deprecated = &model.DirectiveDef{
	Name:        "deprecated",
	Description: "Marks an element of a GraphQL schema as no longer supported.",
	Locations: model.LocationFieldDefinition | model.LocationArgumentDefinition |
		model.LocationInputFieldDefinition | model.LocationEnumValue,
	Args: []*model.InputValueDef{
		model.NewArg("reason", "String").
			WithDefault(DefaultDeprecationReason).
			WithDescription("Explains why this element was deprecated."),
	},
	Handler: deprecatedHandler{},
}

type includeHandler struct{}

func (includeHandler) ShouldSkip(args map[string]any) bool {
	include, _ := args["if"].(bool)
	return !include
}

type skipHandler struct{}

func (skipHandler) ShouldSkip(args map[string]any) bool {
	skip, _ := args["if"].(bool)
	return skip
}

type deprecatedHandler struct{}

func (deprecatedHandler) ApplyModel(target model.ModelTarget, args map[string]any) error {
	d, ok := target.Introspection.(model.Deprecatable)
	if !ok {
		// models built without introspection have nothing to mark
		return nil
	}
	reason, _ := args["reason"].(string)
	if reason == "" {
		reason = DefaultDeprecationReason
	}
	d.SetDeprecated(reason)
	return nil
}

// Register adds the built-in directives to b. Each builder gets its own
// copies since the model resolves directive definitions in place.
func Register(b *model.Builder) *model.Builder {
	for _, d := range []*model.DirectiveDef{Include, Skip, Deprecated} {
		b.AddDirective(clone(d))
	}
	return b
}

func clone(d *model.DirectiveDef) *model.DirectiveDef {
	cp := *d
	cp.Args = make([]*model.InputValueDef, len(d.Args))
	for i, a := range d.Args {
		ac := *a
		cp.Args[i] = &ac
	}
	return &cp
}

// TransformFunc rewrites a resolved field value.
type TransformFunc func(value any, args map[string]any) (any, error)

// Transform declares a field directive whose handler passes every resolved
// value of the fields it is applied to through fn. Lists are transformed
// per item. The directive is usable both in the model and in requests.
func Transform(name, description string, fn TransformFunc, args ...*model.InputValueDef) *model.DirectiveDef {
	return &model.DirectiveDef{
		Name:        name,
		Description: description,
		Locations:   model.LocationField | model.LocationFieldDefinition,
		Args:        args,
		Handler:     transformHandler{name: name, fn: fn},
	}
}

type transformHandler struct {
	name string
	fn   TransformFunc
}

func (h transformHandler) PreviewField(_ model.FieldContext, _ map[string]any, args model.Args) (model.Args, error) {
	return args, nil
}

func (h transformHandler) PostProcessField(_ model.FieldContext, dirArgs map[string]any, result any) (any, error) {
	return h.apply(result, dirArgs)
}

func (h transformHandler) apply(v any, dirArgs map[string]any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := h.apply(item, dirArgs)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	out, err := h.fn(v, dirArgs)
	if err != nil {
		return nil, fmt.Errorf("@%s: %w", h.name, err)
	}
	return out, nil
}
