package introspection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/gqlengine/internal/model"
)

const (
	kindScalar      = string(model.TypeKindScalar)
	kindObject      = string(model.TypeKindObject)
	kindInterface   = string(model.TypeKindInterface)
	kindUnion       = string(model.TypeKindUnion)
	kindEnum        = string(model.TypeKindEnum)
	kindInputObject = string(model.TypeKindInputObject)
	kindList        = string(model.TypeRefKindList)
	kindNonNull     = string(model.TypeRefKindNonNull)
)

// Schema is the __Schema object of a model.
type Schema struct {
	Description      string
	Types            []*Type
	QueryType        *Type
	MutationType     *Type
	SubscriptionType *Type
	Directives       []*Directive

	byName map[string]*Type
}

// Type returns the named type, or nil.
func (s *Schema) Type(name string) *Type {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Type is a __Type object: a named type, or a LIST or NON_NULL wrapper.
type Type struct {
	Kind           string
	Name           string
	Description    string
	SpecifiedByURL string
	OfType         *Type

	fields        []*Field
	interfaces    []*Type
	possibleTypes []*Type
	enumValues    []*EnumValue
	inputFields   []*InputValue
}

func (t *Type) fieldList(includeDeprecated bool) any {
	if t.Kind != kindObject && t.Kind != kindInterface {
		return nil
	}
	out := []*Field{}
	for _, f := range t.fields {
		if includeDeprecated || !f.IsDeprecated {
			out = append(out, f)
		}
	}
	return out
}

func (t *Type) enumValueList(includeDeprecated bool) any {
	if t.Kind != kindEnum {
		return nil
	}
	out := []*EnumValue{}
	for _, v := range t.enumValues {
		if includeDeprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

func (t *Type) inputFieldList(includeDeprecated bool) any {
	if t.Kind != kindInputObject {
		return nil
	}
	return filterInputValues(t.inputFields, includeDeprecated)
}

// Field is a __Field object.
type Field struct {
	Name              string
	Description       string
	Args              []*InputValue
	Type              *Type
	IsDeprecated      bool
	DeprecationReason string
}

func (f *Field) SetDeprecated(reason string) { f.IsDeprecated, f.DeprecationReason = true, reason }

// InputValue is an __InputValue object.
type InputValue struct {
	Name              string
	Description       string
	Type              *Type
	DefaultValue      any // nil or the default in GraphQL syntax
	IsDeprecated      bool
	DeprecationReason string
}

func (v *InputValue) SetDeprecated(reason string) { v.IsDeprecated, v.DeprecationReason = true, reason }

// EnumValue is an __EnumValue object.
type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

func (v *EnumValue) SetDeprecated(reason string) { v.IsDeprecated, v.DeprecationReason = true, reason }

// Directive is a __Directive object.
type Directive struct {
	Name         string
	Description  string
	IsRepeatable bool
	Locations    []string
	Args         []*InputValue
}

func filterInputValues(values []*InputValue, includeDeprecated bool) []*InputValue {
	out := []*InputValue{}
	for _, v := range values {
		if includeDeprecated || !v.IsDeprecated {
			out = append(out, v)
		}
	}
	return out
}

// build creates the introspection objects of m and attaches them to the
// model elements they describe.
func build(m *model.Model) *Schema {
	s := &Schema{Description: m.Description, byName: make(map[string]*Type, len(m.Types))}
	for _, def := range m.TypeList() {
		t := &Type{Kind: string(def.Kind), Name: def.Name, Description: def.Description}
		def.Introspection = t
		s.byName[def.Name] = t
		s.Types = append(s.Types, t)
	}
	sort.Slice(s.Types, func(i, j int) bool { return s.Types[i].Name < s.Types[j].Name })

	for _, def := range m.TypeList() {
		t := s.byName[def.Name]
		for _, f := range def.Fields {
			if f.Flags.Has(model.FieldIntrospection) {
				continue
			}
			fi := &Field{Name: f.Name, Description: f.Description, Type: s.ref(f.Type)}
			for _, a := range f.Args {
				fi.Args = append(fi.Args, s.inputValue(a))
			}
			f.Introspection = fi
			t.fields = append(t.fields, fi)
		}
		for _, name := range def.Interfaces {
			t.interfaces = append(t.interfaces, s.byName[name])
		}
		if def.IsAbstract() {
			for _, p := range def.PossibleTypes() {
				t.possibleTypes = append(t.possibleTypes, s.byName[p.Name])
			}
		}
		for _, v := range def.EnumValues {
			ev := &EnumValue{Name: v.Name, Description: v.Description}
			v.Introspection = ev
			t.enumValues = append(t.enumValues, ev)
		}
		for _, f := range def.InputFields {
			t.inputFields = append(t.inputFields, s.inputValue(f))
		}
	}

	s.QueryType = s.Type(nameOf(m.QueryType))
	s.MutationType = s.Type(nameOf(m.MutationType))
	s.SubscriptionType = s.Type(nameOf(m.SubscriptionType))

	for _, d := range m.DirectiveList() {
		di := &Directive{
			Name:         d.Name,
			Description:  d.Description,
			IsRepeatable: d.Repeatable,
			Locations:    d.Locations.Names(),
		}
		for _, a := range d.Args {
			di.Args = append(di.Args, s.inputValue(a))
		}
		d.Introspection = di
		s.Directives = append(s.Directives, di)
	}
	sort.Slice(s.Directives, func(i, j int) bool { return s.Directives[i].Name < s.Directives[j].Name })
	return s
}

func (s *Schema) inputValue(a *model.InputValueDef) *InputValue {
	v := &InputValue{Name: a.Name, Description: a.Description, Type: s.ref(a.Type)}
	if a.HasDefault {
		v.DefaultValue = formatValue(a.Type, a.DefaultValue)
	}
	a.Introspection = v
	return v
}

// ref returns the introspection type of a type reference. Wrappers get
// their own objects; named types share the model-wide one.
func (s *Schema) ref(t *model.TypeRef) *Type {
	switch t.Kind {
	case model.TypeRefKindNonNull:
		return &Type{Kind: kindNonNull, OfType: s.ref(t.OfType)}
	case model.TypeRefKindList:
		return &Type{Kind: kindList, OfType: s.ref(t.OfType)}
	}
	return s.byName[t.Named]
}

func nameOf(t *model.TypeDef) string {
	if t == nil {
		return ""
	}
	return t.Name
}

// formatValue renders an input value in GraphQL syntax.
func formatValue(t *model.TypeRef, v any) string {
	if v == nil {
		return "null"
	}
	nt := t.Nullable()
	if nt.Kind == model.TypeRefKindList {
		items, ok := v.([]any)
		if !ok {
			return formatValue(nt.OfType, v)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = formatValue(nt.OfType, item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	def := nt.TypeDef()
	switch {
	case def == nil:
	case def.Kind == model.TypeKindEnum:
		if out, err := def.ToOutput(v); err == nil {
			if names, ok := out.([]string); ok {
				return "[" + strings.Join(names, ", ") + "]"
			}
			return fmt.Sprint(out)
		}
	case def.Kind == model.TypeKindInputObject:
		fields, ok := v.(map[string]any)
		if !ok {
			break
		}
		var parts []string
		for _, f := range def.InputFields {
			if fv, ok := fields[f.Name]; ok {
				parts = append(parts, f.Name+": "+formatValue(f.Type, fv))
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case def.Scalar != nil:
		if out, err := def.Scalar.ToOutput(v); err == nil {
			v = out
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
