package introspection

import (
	"github.com/hanpama/gqlengine/internal/model"
)

// Register adds the introspection types to b, the __schema and __type
// fields to its query type, and a build hook attaching introspection objects
// to every element of the built model.
func Register(b *model.Builder) *model.Builder {
	var sch *Schema
	declareTypes(b)
	b.ExtendQuery(func(q *model.TypeBuilder) {
		f := q.Field("__schema", "__Schema!").
			Describe("Access the current type schema of this server.").
			Resolve(func(model.FieldContext, any, model.Args) (any, error) { return sch, nil })
		f.Def().Flags |= model.FieldIntrospection
		f = q.Field("__type", "__Type").
			Describe("Request the type information of a single type.").
			AddArg(model.NewArg("name", "String!").WithDescription("The name of the type to look up.")).
			Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
				return sch.Type(args.String("name")), nil
			})
		f.Def().Flags |= model.FieldIntrospection
	})
	b.OnBuild(func(m *model.Model) error {
		sch = build(m)
		m.Introspection = sch
		return nil
	})
	return b
}

// declareTypes adds the __Schema, __Type, __Field, __InputValue,
// __EnumValue and __Directive objects with the __TypeKind and
// __DirectiveLocation enums.
func declareTypes(b *model.Builder) {
	b.Object("__Schema", "A GraphQL Schema defines the capabilities of a GraphQL server.").
		Field("description", "String").Describe("A description of the schema.").
		Read(model.Prop(func(s *Schema) any { return optional(s.Description) })).
		Field("types", "[__Type!]!").Describe("A list of all types supported by this server.").
		Read(model.Prop(func(s *Schema) any { return s.Types })).
		Field("queryType", "__Type!").Describe("The type that query operations will be rooted at.").
		Read(model.Prop(func(s *Schema) any { return s.QueryType })).
		Field("mutationType", "__Type").
		Describe("If this server supports mutation, the type that mutation operations will be rooted at.").
		Read(model.Prop(func(s *Schema) any { return s.MutationType })).
		Field("subscriptionType", "__Type").
		Describe("If this server support subscription, the type that subscription operations will be rooted at.").
		Read(model.Prop(func(s *Schema) any { return s.SubscriptionType })).
		Field("directives", "[__Directive!]!").Describe("A list of all directives supported by this server.").
		Read(model.Prop(func(s *Schema) any { return s.Directives }))

	b.Object("__Type", "The fundamental unit of any GraphQL Schema is the type.").
		Field("kind", "__TypeKind!").
		Read(model.Prop(func(t *Type) any { return t.Kind })).
		Field("name", "String").
		Read(model.Prop(func(t *Type) any { return optional(t.Name) })).
		Field("description", "String").
		Read(model.Prop(func(t *Type) any { return optional(t.Description) })).
		Field("specifiedByURL", "String").
		Read(model.Prop(func(t *Type) any { return optional(t.SpecifiedByURL) })).
		Field("fields", "[__Field!]").AddArg(includeDeprecated()).
		Resolve(typeResolver(func(t *Type, all bool) any { return t.fieldList(all) })).
		Field("interfaces", "[__Type!]").
		Read(model.Prop(func(t *Type) any { return forKinds(t.Kind, t.interfaces, kindObject, kindInterface) })).
		Field("possibleTypes", "[__Type!]").
		Read(model.Prop(func(t *Type) any { return forKinds(t.Kind, t.possibleTypes, kindInterface, kindUnion) })).
		Field("enumValues", "[__EnumValue!]").AddArg(includeDeprecated()).
		Resolve(typeResolver(func(t *Type, all bool) any { return t.enumValueList(all) })).
		Field("inputFields", "[__InputValue!]").AddArg(includeDeprecated()).
		Resolve(typeResolver(func(t *Type, all bool) any { return t.inputFieldList(all) })).
		Field("ofType", "__Type").
		Read(model.Prop(func(t *Type) any { return t.OfType })).
		Field("isOneOf", "Boolean").
		Read(model.Prop(func(t *Type) any {
			if t.Kind != kindInputObject {
				return nil
			}
			return false
		}))

	b.Object("__Field", "Object and Interface types are described by a list of Fields, each of which has a name, potentially a list of arguments, and a return type.").
		Field("name", "String!").
		Read(model.Prop(func(f *Field) any { return f.Name })).
		Field("description", "String").
		Read(model.Prop(func(f *Field) any { return optional(f.Description) })).
		Field("args", "[__InputValue!]!").AddArg(includeDeprecated()).
		Resolve(func(_ model.FieldContext, parent any, args model.Args) (any, error) {
			return filterInputValues(parent.(*Field).Args, args.Bool("includeDeprecated")), nil
		}).
		Field("type", "__Type!").
		Read(model.Prop(func(f *Field) any { return f.Type })).
		Field("isDeprecated", "Boolean!").
		Read(model.Prop(func(f *Field) any { return f.IsDeprecated })).
		Field("deprecationReason", "String").
		Read(model.Prop(func(f *Field) any { return deprecationReason(f.IsDeprecated, f.DeprecationReason) }))

	b.Object("__InputValue", "Arguments provided to Fields or Directives and the input fields of an InputObject are represented as Input Values which describe their type and optionally a default value.").
		Field("name", "String!").
		Read(model.Prop(func(v *InputValue) any { return v.Name })).
		Field("description", "String").
		Read(model.Prop(func(v *InputValue) any { return optional(v.Description) })).
		Field("type", "__Type!").
		Read(model.Prop(func(v *InputValue) any { return v.Type })).
		Field("defaultValue", "String").
		Describe("A GraphQL-formatted string representing the default value for this input value.").
		Read(model.Prop(func(v *InputValue) any { return v.DefaultValue })).
		Field("isDeprecated", "Boolean!").
		Read(model.Prop(func(v *InputValue) any { return v.IsDeprecated })).
		Field("deprecationReason", "String").
		Read(model.Prop(func(v *InputValue) any { return deprecationReason(v.IsDeprecated, v.DeprecationReason) }))

	b.Object("__EnumValue", "One possible value for a given Enum.").
		Field("name", "String!").
		Read(model.Prop(func(v *EnumValue) any { return v.Name })).
		Field("description", "String").
		Read(model.Prop(func(v *EnumValue) any { return optional(v.Description) })).
		Field("isDeprecated", "Boolean!").
		Read(model.Prop(func(v *EnumValue) any { return v.IsDeprecated })).
		Field("deprecationReason", "String").
		Read(model.Prop(func(v *EnumValue) any { return deprecationReason(v.IsDeprecated, v.DeprecationReason) }))

	b.Object("__Directive", "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.").
		Field("name", "String!").
		Read(model.Prop(func(d *Directive) any { return d.Name })).
		Field("description", "String").
		Read(model.Prop(func(d *Directive) any { return optional(d.Description) })).
		Field("isRepeatable", "Boolean!").
		Read(model.Prop(func(d *Directive) any { return d.IsRepeatable })).
		Field("locations", "[__DirectiveLocation!]!").
		Read(model.Prop(func(d *Directive) any { return d.Locations })).
		Field("args", "[__InputValue!]!").AddArg(includeDeprecated()).
		Resolve(func(_ model.FieldContext, parent any, args model.Args) (any, error) {
			return filterInputValues(parent.(*Directive).Args, args.Bool("includeDeprecated")), nil
		})

	kinds := b.Enum("__TypeKind", "An enum describing what kind of type a given `__Type` is.")
	for _, k := range []string{kindScalar, kindObject, kindInterface, kindUnion, kindEnum, kindInputObject, kindList, kindNonNull} {
		kinds.Value(k, k, "")
	}
	locations := b.Enum("__DirectiveLocation", "A Directive can be adjacent to many parts of the GraphQL language, a __DirectiveLocation describes one such possible adjacencies.")
	for _, name := range (^model.DirectiveLocation(0)).Names() {
		locations.Value(name, name, "")
	}
}

func includeDeprecated() *model.InputValueDef {
	return model.NewArg("includeDeprecated", "Boolean").WithDefault(false)
}

func typeResolver(fn func(t *Type, includeDeprecated bool) any) model.ResolverFunc {
	return func(_ model.FieldContext, parent any, args model.Args) (any, error) {
		return fn(parent.(*Type), args.Bool("includeDeprecated")), nil
	}
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func forKinds(kind string, types []*Type, kinds ...string) any {
	for _, k := range kinds {
		if kind == k {
			if types == nil {
				return []*Type{}
			}
			return types
		}
	}
	return nil
}
