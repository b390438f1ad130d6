package values

import (
	"fmt"
	"strconv"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/model"
)

// EnumToken is an unquoted enum literal taken from request text.
type EnumToken string

// Literal converts a constant AST value to a plain Go value. Integers become
// int64, floats float64, enum tokens EnumToken.
func Literal(value *language.Value) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch value.Kind {
	case language.IntValue:
		n, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %s", value.Raw)
		}
		return n, nil
	case language.FloatValue:
		f, err := strconv.ParseFloat(value.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %s", value.Raw)
		}
		return f, nil
	case language.StringValue, language.BlockValue:
		return value.Raw, nil
	case language.BooleanValue:
		return value.Raw == "true", nil
	case language.NullValue:
		return nil, nil
	case language.EnumValue:
		return EnumToken(value.Raw), nil
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			v, err := Literal(c.Value)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			v, err := Literal(f.Value)
			if err != nil {
				return nil, err
			}
			m[f.Name] = v
		}
		return m, nil
	case language.Variable:
		return nil, fmt.Errorf("unexpected variable $%s in constant value", value.Raw)
	}
	return nil, fmt.Errorf("unsupported value kind %v", value.Kind)
}

// Convert coerces value to the target type. Values come from literals (see
// Literal) or decoded JSON variables. A non-list value supplied for a list
// type is wrapped into a one-element list.
func Convert(target *model.TypeRef, value any) (any, error) {
	if target.IsNonNull() {
		if value == nil {
			return nil, fmt.Errorf("expected non-null value of type %s, found null", target)
		}
		return Convert(target.OfType, value)
	}
	if value == nil {
		return nil, nil
	}
	if target.Kind == model.TypeRefKindList {
		return convertList(target, value)
	}

	def := target.TypeDef()
	if def == nil {
		return nil, fmt.Errorf("type %s is not resolved", target)
	}
	switch def.Kind {
	case model.TypeKindScalar:
		return convertScalar(def, value)
	case model.TypeKindEnum:
		return convertEnum(def, value)
	case model.TypeKindInputObject:
		return convertInputObject(def, value)
	}
	return nil, fmt.Errorf("type %s cannot be used as input", def.Name)
}

func convertList(target *model.TypeRef, value any) (any, error) {
	item := target.OfType
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, v := range slice {
			cv, err := Convert(item, v)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}
	// Single value becomes a list of one
	cv, err := Convert(item, value)
	if err != nil {
		return nil, err
	}
	return []any{cv}, nil
}

func convertScalar(def *model.TypeDef, value any) (any, error) {
	if tok, ok := value.(EnumToken); ok {
		return nil, fmt.Errorf("%s cannot represent enum value %s", def.Name, tok)
	}
	if !def.Scalar.CanConvertFrom(value) {
		return nil, fmt.Errorf("%s cannot represent value %s", def.Name, describe(value))
	}
	out, err := def.Scalar.ConvertInput(value)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func convertEnum(def *model.TypeDef, value any) (any, error) {
	if def.Flags {
		if list, ok := value.([]any); ok {
			members := make([]*model.EnumValueDef, 0, len(list))
			for _, item := range list {
				ev, err := enumMember(def, item)
				if err != nil {
					return nil, err
				}
				members = append(members, ev)
			}
			return def.FlagsValue(members)
		}
		ev, err := enumMember(def, value)
		if err != nil {
			return nil, err
		}
		return def.FlagsValue([]*model.EnumValueDef{ev})
	}
	ev, err := enumMember(def, value)
	if err != nil {
		return nil, err
	}
	return ev.Value, nil
}

func enumMember(def *model.TypeDef, value any) (*model.EnumValueDef, error) {
	var name string
	switch v := value.(type) {
	case EnumToken:
		name = string(v)
	case string:
		name = v
	default:
		return nil, fmt.Errorf("enum %s cannot represent value %s", def.Name, describe(value))
	}
	ev, ok := def.EnumValue(name)
	if !ok {
		return nil, fmt.Errorf("value %q is not defined in enum %s", name, def.Name)
	}
	return ev, nil
}

func convertInputObject(def *model.TypeDef, value any) (any, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected input object %s, found %s", def.Name, describe(value))
	}
	for name := range m {
		if def.InputField(name) == nil {
			return nil, fmt.Errorf("field %q is not defined by type %s", name, def.Name)
		}
	}
	out := make(map[string]any, len(def.InputFields))
	for _, f := range def.InputFields {
		v, present := m[f.Name]
		if !present {
			if f.HasDefault {
				out[f.Name] = f.DefaultValue
			} else if f.Type.IsNonNull() {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", def.Name, f.Name, f.Type)
			}
			continue
		}
		cv, err := Convert(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", def.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	return out, nil
}

func describe(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case EnumToken:
		return string(v)
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%v", v)
}

// IsConvertibleFrom reports whether a value of type source may be used where
// target is expected. List ranks must match exactly; nullability is checked
// separately.
func IsConvertibleFrom(target, source *model.TypeRef) bool {
	if target.Rank() != source.Rank() {
		return false
	}
	t, s := target.Nullable(), source.Nullable()
	if t.Kind == model.TypeRefKindList {
		if t.OfType.IsNonNull() && !s.OfType.IsNonNull() {
			return false
		}
		return IsConvertibleFrom(t.OfType, s.OfType)
	}
	if t.Named == s.Named {
		return true
	}
	switch t.Named {
	case "Float", "Long":
		return s.Named == "Int"
	case "ID":
		return s.Named == "Int" || s.Named == "String"
	}
	return false
}
