package model

import (
	"fmt"
	"reflect"
	"strings"
)

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeDef is a named type of the model (object, interface, union, scalar, enum, input).
// A TypeDef must not be modified once the model is built.
type TypeDef struct {
	Name        string
	Kind        TypeKind
	Description string
	Fields      []*FieldDef      // For OBJECT and INTERFACE
	Interfaces  []string         // For OBJECT
	Members     []string         // For UNION
	EnumValues  []*EnumValueDef  // For ENUM
	InputFields []*InputValueDef // For INPUT_OBJECT
	Scalar      ScalarHandler    // For SCALAR
	Flags       bool             // ENUM values combine as bit flags
	Directives  []*DirectiveUse

	// EntityKind is the key matched against Entity.EntityKind() when a value
	// of an abstract type is dispatched to this object type.
	EntityKind string
	// ResolveType names the concrete object type for values that do not
	// implement Entity. Only consulted on INTERFACE and UNION types.
	ResolveType func(value any) string

	// Introspection holds the model-time introspection object for this type.
	Introspection any

	fieldIndex    map[string]*FieldDef
	inputIndex    map[string]*InputValueDef
	enumByName    map[string]*EnumValueDef
	enumByValue   map[any]*EnumValueDef
	possibleTypes []*TypeDef
}

// Field returns the field definition with the given name, or nil.
func (t *TypeDef) Field(name string) *FieldDef {
	if t.fieldIndex != nil {
		return t.fieldIndex[name]
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InputField returns the input field definition with the given name, or nil.
func (t *TypeDef) InputField(name string) *InputValueDef {
	if t.inputIndex != nil {
		return t.inputIndex[name]
	}
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IsComplex reports whether values of the type have selection sets.
func (t *TypeDef) IsComplex() bool {
	return t.Kind == TypeKindObject || t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsAbstract reports whether the type is an interface or union.
func (t *TypeDef) IsAbstract() bool {
	return t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsLeaf reports whether the type is a scalar or enum.
func (t *TypeDef) IsLeaf() bool {
	return t.Kind == TypeKindScalar || t.Kind == TypeKindEnum
}

// IsInput reports whether the type may appear in argument and variable positions.
func (t *TypeDef) IsInput() bool {
	return t.Kind == TypeKindScalar || t.Kind == TypeKindEnum || t.Kind == TypeKindInputObject
}

// PossibleTypes returns the concrete object types a value of t may have.
// For an object type it is the type itself.
func (t *TypeDef) PossibleTypes() []*TypeDef {
	if t.Kind == TypeKindObject {
		return []*TypeDef{t}
	}
	return t.possibleTypes
}

// Implements reports whether t is name or lists name among its interfaces.
func (t *TypeDef) Implements(name string) bool {
	if t.Name == name {
		return true
	}
	for _, i := range t.Interfaces {
		if i == name {
			return true
		}
	}
	return false
}

// EnumValue looks an enum value up by name, ignoring case.
func (t *TypeDef) EnumValue(name string) (*EnumValueDef, bool) {
	if t.enumByName != nil {
		v, ok := t.enumByName[strings.ToLower(name)]
		return v, ok
	}
	for _, v := range t.EnumValues {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return nil, false
}

// ToOutput converts a resolved leaf value into its response representation.
func (t *TypeDef) ToOutput(v any) (any, error) {
	switch t.Kind {
	case TypeKindScalar:
		if t.Scalar == nil {
			return v, nil
		}
		return t.Scalar.ToOutput(v)
	case TypeKindEnum:
		if t.Flags {
			return t.flagsToOutput(v)
		}
		return t.enumToOutput(v)
	}
	return nil, fmt.Errorf("type %s is not a leaf type", t.Name)
}

func (t *TypeDef) enumToOutput(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if reflect.TypeOf(v).Comparable() {
		if ev, ok := t.enumByValue[v]; ok {
			return ev.Name, nil
		}
	}
	if s, ok := v.(string); ok {
		if ev, ok := t.EnumValue(s); ok {
			return ev.Name, nil
		}
	}
	return nil, fmt.Errorf("value %v is not a member of enum %s", v, t.Name)
}

func (t *TypeDef) flagsToOutput(v any) (any, error) {
	bits, ok := FlagBits(v)
	if !ok {
		return nil, fmt.Errorf("value %v of type %T is not a flags value of enum %s", v, v, t.Name)
	}
	names := []string{}
	for _, ev := range t.EnumValues {
		b, _ := FlagBits(ev.Value)
		if b != 0 && bits&b == b {
			names = append(names, ev.Name)
			bits &^= b
		}
	}
	if bits != 0 {
		return nil, fmt.Errorf("value %v has bits not declared by enum %s", v, t.Name)
	}
	return names, nil
}

// FlagsValue combines the given enum values into one value of the enum's
// native type.
func (t *TypeDef) FlagsValue(values []*EnumValueDef) (any, error) {
	if len(t.EnumValues) == 0 {
		return nil, fmt.Errorf("enum %s has no values", t.Name)
	}
	var bits uint64
	for _, ev := range values {
		b, ok := FlagBits(ev.Value)
		if !ok {
			return nil, fmt.Errorf("enum value %s.%s is not an integer", t.Name, ev.Name)
		}
		bits |= b
	}
	out := reflect.New(reflect.TypeOf(t.EnumValues[0].Value)).Elem()
	switch out.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(bits))
	default:
		out.SetUint(bits)
	}
	return out.Interface(), nil
}

// FlagBits returns the bit pattern of an integer value of any integer kind.
func FlagBits(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	}
	return 0, false
}

// FieldDef is a field of an object or interface type.
type FieldDef struct {
	Name        string
	Description string
	Type        *TypeRef
	Args        []*InputValueDef
	Resolver    *ResolverInfo
	// Reader extracts the field value from the parent entity when the
	// field has no resolver.
	Reader          func(parent any) (any, error)
	Flags           FieldFlags
	MissingKeyValue any
	Directives      []*DirectiveUse
	Owner           *TypeDef
	Index           int

	Introspection any

	typeExpr string
}

// FieldFlags describe how a field is resolved.
type FieldFlags uint8

const (
	FieldReturnsComplexType FieldFlags = 1 << iota
	FieldReturnsAsync
	FieldBatched
	FieldHasParentArg
	FieldIntrospection
)

func (f FieldFlags) Has(flag FieldFlags) bool { return f&flag != 0 }

// Arg returns the argument definition with the given name, or nil.
func (f *FieldDef) Arg(name string) *InputValueDef {
	for _, a := range f.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Path returns "Type.field" for messages.
func (f *FieldDef) Path() string {
	if f.Owner == nil {
		return f.Name
	}
	return f.Owner.Name + "." + f.Name
}

// ResolverInfo references the function resolving a field.
type ResolverInfo struct {
	Name string
	// Set names the resolver set that declared the function.
	Set  string
	Func ResolverFunc
}

// InputValueDef is a field argument, an input object field or a directive argument.
type InputValueDef struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any
	HasDefault   bool
	Directives   []*DirectiveUse

	Introspection any

	typeExpr string
}

// EnumValueDef is one member of an enum type. Value is the native Go value
// resolvers return and receive; for flags enums it must be an integer with
// a single bit set.
type EnumValueDef struct {
	Name        string
	Description string
	Value       any
	Directives  []*DirectiveUse

	Introspection any
}

// DirectiveUse is a directive applied to a model element.
type DirectiveUse struct {
	Def  *DirectiveDef
	Args map[string]any

	name string
}
