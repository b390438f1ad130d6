package model

import (
	"strings"

	"github.com/hanpama/gqlengine/internal/language"
)

// DirectiveLocation is a bitmask of the places a directive may appear.
type DirectiveLocation uint32

const (
	LocationQuery DirectiveLocation = 1 << iota
	LocationMutation
	LocationSubscription
	LocationField
	LocationFragmentDefinition
	LocationFragmentSpread
	LocationInlineFragment
	LocationVariableDefinition
	LocationSchema
	LocationScalar
	LocationObject
	LocationFieldDefinition
	LocationArgumentDefinition
	LocationInterface
	LocationUnion
	LocationEnum
	LocationEnumValue
	LocationInputObject
	LocationInputFieldDefinition
)

var locationNames = []string{
	"QUERY",
	"MUTATION",
	"SUBSCRIPTION",
	"FIELD",
	"FRAGMENT_DEFINITION",
	"FRAGMENT_SPREAD",
	"INLINE_FRAGMENT",
	"VARIABLE_DEFINITION",
	"SCHEMA",
	"SCALAR",
	"OBJECT",
	"FIELD_DEFINITION",
	"ARGUMENT_DEFINITION",
	"INTERFACE",
	"UNION",
	"ENUM",
	"ENUM_VALUE",
	"INPUT_OBJECT",
	"INPUT_FIELD_DEFINITION",
}

// Names lists the locations in the mask in declaration order.
func (l DirectiveLocation) Names() []string {
	var names []string
	for i, name := range locationNames {
		if l&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return names
}

func (l DirectiveLocation) String() string { return strings.Join(l.Names(), "|") }

// Has reports whether loc is allowed by the mask.
func (l DirectiveLocation) Has(loc DirectiveLocation) bool { return l&loc != 0 }

// OperationLocation returns the location of an operation's directives.
func OperationLocation(op language.Operation) DirectiveLocation {
	switch op {
	case language.Mutation:
		return LocationMutation
	case language.Subscription:
		return LocationSubscription
	}
	return LocationQuery
}

// DirectiveDef declares a directive. Handler implements one or more of the
// handler interfaces below; handlers must be stateless.
type DirectiveDef struct {
	Name        string
	Description string
	Locations   DirectiveLocation
	Args        []*InputValueDef
	Repeatable  bool
	Handler     any

	Introspection any
}

// Arg returns the argument definition with the given name, or nil.
func (d *DirectiveDef) Arg(name string) *InputValueDef {
	for _, a := range d.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ModelTarget is the element a directive is applied to at model build time.
type ModelTarget struct {
	Location DirectiveLocation
	// Element is the *TypeDef, *FieldDef, *InputValueDef or *EnumValueDef.
	Element any
	// Introspection is the element's introspection object.
	Introspection any
}

// Deprecatable is implemented by introspection objects that carry a deprecation.
type Deprecatable interface {
	SetDeprecated(reason string)
}

// ModelApplier runs once per directive use when the model is built.
type ModelApplier interface {
	ApplyModel(target ModelTarget, args map[string]any) error
}

// RequestParsedHandler runs when a request using the directive is mapped.
// A returned error rejects the request.
type RequestParsedHandler interface {
	RequestParsed(loc DirectiveLocation, dir *language.Directive) error
}

// SkipHandler decides per execution whether a selection is left out.
type SkipHandler interface {
	ShouldSkip(args map[string]any) bool
}

// FieldHandler wraps resolution of the fields it is applied to.
type FieldHandler interface {
	PreviewField(fc FieldContext, dirArgs map[string]any, args Args) (Args, error)
	PostProcessField(fc FieldContext, dirArgs map[string]any, result any) (any, error)
}
