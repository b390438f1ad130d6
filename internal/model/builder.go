package model

import (
	"errors"
	"fmt"
	"strings"
)

// Builder declares a model. Every method records into the builder and
// returns a chainable value; problems are reported together by Build.
type Builder struct {
	description      string
	types            []*TypeDef
	directives       []*DirectiveDef
	queryType        string
	mutationType     string
	subscriptionType string
	hooks            []func(*Model) error
	queryExtensions  []func(*TypeBuilder)
}

// NewBuilder returns a builder with the built-in scalars registered.
func NewBuilder(description string) *Builder {
	b := &Builder{description: description, queryType: "Query"}
	b.AddScalar(StringScalar).
		AddScalar(IntScalar).
		AddScalar(FloatScalar).
		AddScalar(BooleanScalar).
		AddScalar(IDScalar)
	return b
}

// AddScalar registers a scalar type. The definition is copied so shared
// scalar values can be registered with several builders.
func (b *Builder) AddScalar(def *TypeDef) *Builder {
	cp := *def
	cp.Kind = TypeKindScalar
	b.types = append(b.types, &cp)
	return b
}

// Scalar declares a custom scalar type.
func (b *Builder) Scalar(name, description string, handler ScalarHandler) *Builder {
	return b.AddScalar(&TypeDef{Name: name, Description: description, Scalar: handler})
}

func (b *Builder) newType(name string, kind TypeKind, description string) *TypeDef {
	t := &TypeDef{Name: name, Kind: kind, Description: description}
	b.types = append(b.types, t)
	return t
}

// Object declares an object type implementing the given interfaces.
func (b *Builder) Object(name, description string, interfaces ...string) *TypeBuilder {
	t := b.newType(name, TypeKindObject, description)
	t.Interfaces = interfaces
	return &TypeBuilder{def: t}
}

// Interface declares an interface type.
func (b *Builder) Interface(name, description string) *TypeBuilder {
	return &TypeBuilder{def: b.newType(name, TypeKindInterface, description)}
}

// Union declares a union of object types.
func (b *Builder) Union(name, description string, members ...string) *TypeBuilder {
	t := b.newType(name, TypeKindUnion, description)
	t.Members = members
	return &TypeBuilder{def: t}
}

// Enum declares an enum type.
func (b *Builder) Enum(name, description string) *EnumBuilder {
	return &EnumBuilder{def: b.newType(name, TypeKindEnum, description)}
}

// FlagsEnum declares an enum whose values are bit flags; it is exchanged as a list of names.
func (b *Builder) FlagsEnum(name, description string) *EnumBuilder {
	t := b.newType(name, TypeKindEnum, description)
	t.Flags = true
	return &EnumBuilder{def: t}
}

// Input declares an input object type.
func (b *Builder) Input(name, description string) *InputBuilder {
	return &InputBuilder{def: b.newType(name, TypeKindInputObject, description)}
}

// AddDirective registers a directive definition.
func (b *Builder) AddDirective(def *DirectiveDef) *Builder {
	b.directives = append(b.directives, def)
	return b
}

func (b *Builder) SetQueryType(name string) *Builder {
	b.queryType = name
	return b
}

func (b *Builder) SetMutationType(name string) *Builder {
	b.mutationType = name
	return b
}

func (b *Builder) SetSubscriptionType(name string) *Builder {
	b.subscriptionType = name
	return b
}

// ExtendQuery registers fn to add fields to the query root type once its
// name is final. Extensions run at the start of Build.
func (b *Builder) ExtendQuery(fn func(*TypeBuilder)) *Builder {
	b.queryExtensions = append(b.queryExtensions, fn)
	return b
}

// OnBuild registers a hook that runs on the validated model before
// model-time directives are applied.
func (b *Builder) OnBuild(hook func(*Model) error) *Builder {
	b.hooks = append(b.hooks, hook)
	return b
}

// Build validates the declarations and returns the model.
func (b *Builder) Build() (*Model, error) {
	m := &Model{
		Types:       make(map[string]*TypeDef, len(b.types)),
		Directives:  make(map[string]*DirectiveDef, len(b.directives)),
		Description: b.description,
		entityKinds: make(map[string]*TypeDef),
	}
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if len(b.queryExtensions) > 0 {
		for _, t := range b.types {
			if t.Name == b.queryType && t.Kind == TypeKindObject {
				for _, fn := range b.queryExtensions {
					fn(&TypeBuilder{def: t})
				}
				b.queryExtensions = nil
				break
			}
		}
	}

	for _, t := range b.types {
		if t.Name == "" {
			fail("type without a name")
			continue
		}
		if m.Types[t.Name] != nil {
			fail("type %s is declared more than once", t.Name)
			continue
		}
		m.Types[t.Name] = t
		m.typeOrder = append(m.typeOrder, t)
	}
	for _, d := range b.directives {
		if m.Directives[d.Name] != nil {
			fail("directive @%s is declared more than once", d.Name)
			continue
		}
		m.Directives[d.Name] = d
		m.directiveOrder = append(m.directiveOrder, d)
	}

	root := func(name, op string) *TypeDef {
		if name == "" {
			return nil
		}
		t := m.Types[name]
		if t == nil || t.Kind != TypeKindObject {
			fail("%s root type %s is not a declared object type", op, name)
			return nil
		}
		return t
	}
	m.QueryType = root(b.queryType, "query")
	m.MutationType = root(b.mutationType, "mutation")
	m.SubscriptionType = root(b.subscriptionType, "subscription")
	if b.queryType == "" {
		fail("query root type is required")
	}

	for _, d := range m.directiveOrder {
		for _, a := range d.Args {
			errs = append(errs, b.resolveInput(m, a, "directive @"+d.Name)...)
		}
	}
	for _, t := range m.typeOrder {
		errs = append(errs, b.buildType(m, t)...)
	}
	for _, t := range m.typeOrder {
		errs = append(errs, b.checkAbstract(m, t)...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for _, hook := range b.hooks {
		if err := hook(m); err != nil {
			return nil, fmt.Errorf("build hook: %w", err)
		}
	}
	if err := applyModelDirectives(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (b *Builder) buildType(m *Model, t *TypeDef) []error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }
	errs = append(errs, resolveUses(m, t.Directives, typeLocation(t.Kind), "type "+t.Name)...)

	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		if len(t.Fields) == 0 {
			fail("type %s declares no fields", t.Name)
		}
		t.fieldIndex = make(map[string]*FieldDef, len(t.Fields))
		for i, f := range t.Fields {
			f.Owner, f.Index = t, i
			if t.fieldIndex[f.Name] != nil {
				fail("field %s is declared more than once", f.Path())
				continue
			}
			t.fieldIndex[f.Name] = f
			errs = append(errs, b.buildField(m, t, f)...)
		}
	case TypeKindInputObject:
		if len(t.InputFields) == 0 {
			fail("input type %s declares no fields", t.Name)
		}
		t.inputIndex = make(map[string]*InputValueDef, len(t.InputFields))
		for _, f := range t.InputFields {
			t.inputIndex[f.Name] = f
			errs = append(errs, b.resolveInput(m, f, "input "+t.Name)...)
			errs = append(errs, resolveUses(m, f.Directives, LocationInputFieldDefinition, t.Name+"."+f.Name)...)
		}
	case TypeKindEnum:
		if len(t.EnumValues) == 0 {
			fail("enum %s declares no values", t.Name)
		}
		t.enumByName = make(map[string]*EnumValueDef, len(t.EnumValues))
		t.enumByValue = make(map[any]*EnumValueDef, len(t.EnumValues))
		for _, v := range t.EnumValues {
			key := strings.ToLower(v.Name)
			if t.enumByName[key] != nil {
				fail("enum %s declares value %s more than once", t.Name, v.Name)
				continue
			}
			t.enumByName[key] = v
			if v.Value == nil {
				v.Value = v.Name
			}
			if t.Flags {
				bits, ok := FlagBits(v.Value)
				if !ok || bits == 0 {
					fail("flags enum value %s.%s must be a non-zero integer", t.Name, v.Name)
				}
			}
			t.enumByValue[v.Value] = v
			errs = append(errs, resolveUses(m, v.Directives, LocationEnumValue, t.Name+"."+v.Name)...)
		}
	case TypeKindScalar:
		if t.Scalar == nil {
			fail("scalar %s has no handler", t.Name)
		}
	}

	if t.Kind == TypeKindObject {
		if t.EntityKind == "" {
			t.EntityKind = t.Name
		}
		if other := m.entityKinds[t.EntityKind]; other != nil {
			fail("entity kind %q is mapped to both %s and %s", t.EntityKind, other.Name, t.Name)
		} else {
			m.entityKinds[t.EntityKind] = t
		}
	}
	return errs
}

func (b *Builder) buildField(m *Model, t *TypeDef, f *FieldDef) []error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	ref, err := ParseTypeRef(f.typeExpr)
	if err == nil {
		err = m.Resolve(ref)
	}
	if err != nil {
		fail("field %s: %v", f.Path(), err)
		return errs
	}
	f.Type = ref
	if ref.Def.Kind == TypeKindInputObject {
		fail("field %s: input type %s cannot be used as an output type", f.Path(), ref.Def.Name)
	}
	if ref.Def.IsComplex() {
		f.Flags |= FieldReturnsComplexType
	}
	for _, a := range f.Args {
		errs = append(errs, b.resolveInput(m, a, "field "+f.Path())...)
		errs = append(errs, resolveUses(m, a.Directives, LocationArgumentDefinition, f.Path()+"("+a.Name+")")...)
	}
	errs = append(errs, resolveUses(m, f.Directives, LocationFieldDefinition, "field "+f.Path())...)

	if t.Kind != TypeKindObject {
		return errs
	}
	if f.Resolver != nil && t != m.QueryType && t != m.MutationType && t != m.SubscriptionType {
		f.Flags |= FieldHasParentArg
	}
	if f.Flags.Has(FieldBatched) && ref.IsNonNull() && f.MissingKeyValue == nil {
		fail("batched field %s returns non-null %s but declares no value for missing keys", f.Path(), ref)
	}
	if f.Resolver == nil && f.Reader == nil {
		f.Reader = MapReader(f.Name)
	}
	return errs
}

func (b *Builder) resolveInput(m *Model, a *InputValueDef, owner string) []error {
	ref := a.Type
	var err error
	if a.typeExpr != "" || ref == nil {
		ref, err = ParseTypeRef(a.typeExpr)
	}
	if err == nil {
		err = m.Resolve(ref)
	}
	if err != nil {
		return []error{fmt.Errorf("%s argument %s: %v", owner, a.Name, err)}
	}
	if !ref.Def.IsInput() {
		return []error{fmt.Errorf("%s argument %s: %s is not an input type", owner, a.Name, ref.Def.Name)}
	}
	a.Type = ref
	return nil
}

func (b *Builder) checkAbstract(m *Model, t *TypeDef) []error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }
	switch t.Kind {
	case TypeKindObject:
		for _, name := range t.Interfaces {
			iface := m.Types[name]
			if iface == nil || iface.Kind != TypeKindInterface {
				fail("type %s implements %s, which is not a declared interface", t.Name, name)
				continue
			}
			for _, want := range iface.Fields {
				got := t.Field(want.Name)
				if got == nil {
					fail("type %s does not declare field %s required by interface %s", t.Name, want.Name, name)
					continue
				}
				if got.Type != nil && want.Type != nil && !isSubType(got.Type, want.Type) {
					fail("field %s has type %s, incompatible with %s on interface %s", got.Path(), got.Type, want.Type, name)
				}
			}
			iface.possibleTypes = append(iface.possibleTypes, t)
		}
	case TypeKindUnion:
		if len(t.Members) == 0 {
			fail("union %s declares no members", t.Name)
		}
		for _, name := range t.Members {
			member := m.Types[name]
			if member == nil || member.Kind != TypeKindObject {
				fail("union %s member %s is not a declared object type", t.Name, name)
				continue
			}
			t.possibleTypes = append(t.possibleTypes, member)
		}
	}
	return errs
}

// isSubType reports whether an implementing field type satisfies the interface field type.
func isSubType(got, want *TypeRef) bool {
	if want.IsNonNull() {
		return got.IsNonNull() && isSubType(got.OfType, want.OfType)
	}
	got = got.Nullable()
	if want.Kind == TypeRefKindList {
		return got.Kind == TypeRefKindList && isSubType(got.OfType, want.OfType)
	}
	if got.Kind != TypeRefKindNamed {
		return false
	}
	if got.Named == want.Named {
		return true
	}
	g, w := got.Def, want.Def
	if g == nil || w == nil {
		return false
	}
	switch w.Kind {
	case TypeKindInterface:
		return g.Implements(w.Name)
	case TypeKindUnion:
		for _, member := range w.Members {
			if member == g.Name {
				return true
			}
		}
	}
	return false
}

func resolveUses(m *Model, uses []*DirectiveUse, loc DirectiveLocation, owner string) []error {
	var errs []error
	for _, u := range uses {
		d := m.Directives[u.name]
		if d == nil {
			errs = append(errs, fmt.Errorf("%s uses unknown directive @%s", owner, u.name))
			continue
		}
		if !d.Locations.Has(loc) {
			errs = append(errs, fmt.Errorf("%s: directive @%s is not allowed on %s", owner, d.Name, loc))
			continue
		}
		u.Def = d
	}
	return errs
}

func typeLocation(kind TypeKind) DirectiveLocation {
	switch kind {
	case TypeKindScalar:
		return LocationScalar
	case TypeKindObject:
		return LocationObject
	case TypeKindInterface:
		return LocationInterface
	case TypeKindUnion:
		return LocationUnion
	case TypeKindEnum:
		return LocationEnum
	}
	return LocationInputObject
}

func applyModelDirectives(m *Model) error {
	var errs []error
	apply := func(uses []*DirectiveUse, target ModelTarget) {
		for _, u := range uses {
			h, ok := u.Def.Handler.(ModelApplier)
			if !ok {
				continue
			}
			if err := h.ApplyModel(target, u.Args); err != nil {
				errs = append(errs, fmt.Errorf("directive @%s: %w", u.Def.Name, err))
			}
		}
	}
	for _, t := range m.typeOrder {
		apply(t.Directives, ModelTarget{Location: typeLocation(t.Kind), Element: t, Introspection: t.Introspection})
		for _, f := range t.Fields {
			apply(f.Directives, ModelTarget{Location: LocationFieldDefinition, Element: f, Introspection: f.Introspection})
			for _, a := range f.Args {
				apply(a.Directives, ModelTarget{Location: LocationArgumentDefinition, Element: a, Introspection: a.Introspection})
			}
		}
		for _, f := range t.InputFields {
			apply(f.Directives, ModelTarget{Location: LocationInputFieldDefinition, Element: f, Introspection: f.Introspection})
		}
		for _, v := range t.EnumValues {
			apply(v.Directives, ModelTarget{Location: LocationEnumValue, Element: v, Introspection: v.Introspection})
		}
	}
	return errors.Join(errs...)
}

// TypeBuilder declares the fields and dispatch of an object, interface or union.
type TypeBuilder struct {
	def *TypeDef
}

// Def returns the type being declared.
func (tb *TypeBuilder) Def() *TypeDef { return tb.def }

// Field declares a field with the given type expression, e.g. "[Starship!]".
func (tb *TypeBuilder) Field(name, typeExpr string) *FieldBuilder {
	f := &FieldDef{Name: name, typeExpr: typeExpr}
	tb.def.Fields = append(tb.def.Fields, f)
	return &FieldBuilder{def: f, owner: tb}
}

// EntityKind sets the key entities of this object type report. It defaults to the type name.
func (tb *TypeBuilder) EntityKind(kind string) *TypeBuilder {
	tb.def.EntityKind = kind
	return tb
}

// ResolveType sets the fallback used to dispatch values that are not entities.
func (tb *TypeBuilder) ResolveType(fn func(value any) string) *TypeBuilder {
	tb.def.ResolveType = fn
	return tb
}

// Directive applies a directive to the type.
func (tb *TypeBuilder) Directive(name string, args map[string]any) *TypeBuilder {
	tb.def.Directives = append(tb.def.Directives, &DirectiveUse{name: name, Args: args})
	return tb
}

// FieldBuilder declares one field.
type FieldBuilder struct {
	def   *FieldDef
	owner *TypeBuilder
}

// Def returns the field being declared.
func (fb *FieldBuilder) Def() *FieldDef { return fb.def }

// Field continues with the next field of the same type.
func (fb *FieldBuilder) Field(name, typeExpr string) *FieldBuilder {
	return fb.owner.Field(name, typeExpr)
}

func (fb *FieldBuilder) Describe(description string) *FieldBuilder {
	fb.def.Description = description
	return fb
}

// Arg declares an argument.
func (fb *FieldBuilder) Arg(name, typeExpr string) *FieldBuilder {
	return fb.AddArg(NewArg(name, typeExpr))
}

// AddArg declares an argument built with NewArg.
func (fb *FieldBuilder) AddArg(arg *InputValueDef) *FieldBuilder {
	fb.def.Args = append(fb.def.Args, arg)
	return fb
}

// Resolve sets the resolver of the field.
func (fb *FieldBuilder) Resolve(fn ResolverFunc) *FieldBuilder {
	fb.def.Resolver = &ResolverInfo{Name: fb.def.Name, Func: fn}
	return fb
}

// ResolveAsync sets a resolver that returns a Future.
func (fb *FieldBuilder) ResolveAsync(fn ResolverFunc) *FieldBuilder {
	fb.def.Flags |= FieldReturnsAsync
	return fb.Resolve(fn)
}

// ResolveBatched sets a resolver that is called once for all parents at the
// same level and reports values through FieldContext.SetBatchedResults.
// missing is the value of parents the resolver reports no result for.
func (fb *FieldBuilder) ResolveBatched(fn ResolverFunc, missing any) *FieldBuilder {
	fb.def.Flags |= FieldBatched
	fb.def.MissingKeyValue = missing
	return fb.Resolve(fn)
}

// ResolverSet records the name of the resolver set declaring the resolver.
func (fb *FieldBuilder) ResolverSet(set string) *FieldBuilder {
	if fb.def.Resolver != nil {
		fb.def.Resolver.Set = set
	}
	return fb
}

// Read sets a reader taking the field value from the parent entity.
func (fb *FieldBuilder) Read(fn func(parent any) (any, error)) *FieldBuilder {
	fb.def.Reader = fn
	return fb
}

// Deprecated marks the field deprecated.
func (fb *FieldBuilder) Deprecated(reason string) *FieldBuilder {
	return fb.Directive("deprecated", map[string]any{"reason": reason})
}

// Directive applies a directive to the field definition.
func (fb *FieldBuilder) Directive(name string, args map[string]any) *FieldBuilder {
	fb.def.Directives = append(fb.def.Directives, &DirectiveUse{name: name, Args: args})
	return fb
}

// NewArg returns an argument or input field definition.
func NewArg(name, typeExpr string) *InputValueDef {
	return &InputValueDef{Name: name, typeExpr: typeExpr}
}

// WithDefault sets the default value, given in the form resolvers receive.
func (a *InputValueDef) WithDefault(v any) *InputValueDef {
	a.DefaultValue, a.HasDefault = v, true
	return a
}

func (a *InputValueDef) WithDescription(description string) *InputValueDef {
	a.Description = description
	return a
}

// WithDirective applies a directive to the argument.
func (a *InputValueDef) WithDirective(name string, args map[string]any) *InputValueDef {
	a.Directives = append(a.Directives, &DirectiveUse{name: name, Args: args})
	return a
}

// EnumBuilder declares enum values.
type EnumBuilder struct {
	def *TypeDef
}

func (eb *EnumBuilder) Def() *TypeDef { return eb.def }

// Value declares a member; value is the native value resolvers use (nil means the name).
func (eb *EnumBuilder) Value(name string, value any, description string) *EnumBuilder {
	eb.def.EnumValues = append(eb.def.EnumValues, &EnumValueDef{Name: name, Value: value, Description: description})
	return eb
}

// Deprecated marks the most recently declared value deprecated.
func (eb *EnumBuilder) Deprecated(reason string) *EnumBuilder {
	if n := len(eb.def.EnumValues); n > 0 {
		v := eb.def.EnumValues[n-1]
		v.Directives = append(v.Directives, &DirectiveUse{name: "deprecated", Args: map[string]any{"reason": reason}})
	}
	return eb
}

// InputBuilder declares input object fields.
type InputBuilder struct {
	def *TypeDef
}

func (ib *InputBuilder) Def() *TypeDef { return ib.def }

// Field declares an input field.
func (ib *InputBuilder) Field(name, typeExpr string) *InputBuilder {
	return ib.AddField(NewArg(name, typeExpr))
}

// AddField declares an input field built with NewArg.
func (ib *InputBuilder) AddField(f *InputValueDef) *InputBuilder {
	ib.def.InputFields = append(ib.def.InputFields, f)
	return ib
}
