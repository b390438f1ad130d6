package values

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/model"
)

// InvalidInputError is a value that cannot be coerced to its expected type.
type InvalidInputError struct {
	Message string
	Pos     *language.Position
}

func (e *InvalidInputError) Error() string { return e.Message }

// UsageError is a variable used where its declared type does not fit.
type UsageError struct {
	Message string
	Pos     *language.Position
}

func (e *UsageError) Error() string { return e.Message }

func invalid(pos *language.Position, format string, args ...any) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

// VariableDef is an operation variable with its resolved type.
type VariableDef struct {
	Name       string
	Type       *model.TypeRef
	Default    any
	HasDefault bool
	Pos        *language.Position
}

// Evaluator produces the value of one argument source for an execution.
type Evaluator interface {
	Eval(vars map[string]any) (any, error)
	// Static reports whether the value does not depend on variables.
	Static() bool
}

type constEval struct{ value any }

func (e constEval) Eval(map[string]any) (any, error) { return e.value, nil }
func (e constEval) Static() bool                     { return true }

// Const returns an evaluator producing v.
func Const(v any) Evaluator { return constEval{value: v} }

type varEval struct {
	name   string
	target *model.TypeRef
	source *model.TypeRef
	pos    *language.Position
	// default of the argument or input field the variable is passed to
	hasDefault   bool
	defaultValue any
}

func (e *varEval) Eval(vars map[string]any) (any, error) {
	v, ok := vars[e.name]
	if !ok && e.hasDefault {
		return e.defaultValue, nil
	}
	if v == nil {
		if e.target.IsNonNull() {
			return nil, invalid(e.pos, "variable $%s of type %s must not be null here", e.name, e.source)
		}
		return nil, nil
	}
	if e.target.GetNamedType() != e.source.GetNamedType() {
		cv, err := Convert(e.target, v)
		if err != nil {
			return nil, invalid(e.pos, "variable $%s: %v", e.name, err)
		}
		return cv, nil
	}
	return v, nil
}

func (e *varEval) Static() bool { return false }

type listEval struct {
	items []Evaluator
}

func (e *listEval) Eval(vars map[string]any) (any, error) {
	out := make([]any, len(e.items))
	for i, item := range e.items {
		v, err := item.Eval(vars)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *listEval) Static() bool { return false }

type objectField struct {
	name string
	eval Evaluator
}

type objectEval struct {
	fields []objectField
}

func (e *objectEval) Eval(vars map[string]any) (any, error) {
	out := make(map[string]any, len(e.fields))
	for _, f := range e.fields {
		v, err := f.eval.Eval(vars)
		if err != nil {
			return nil, err
		}
		out[f.name] = v
	}
	return out, nil
}

func (e *objectEval) Static() bool { return false }

// Compile builds the evaluator of an argument value node expected to have
// type target. Values without variables are converted once here.
func Compile(node *language.Value, target *model.TypeRef, vars map[string]*VariableDef) (Evaluator, error) {
	return compile(node, target, nil, vars)
}

// CompileInput is Compile for the value of an argument or input field. A
// variable that is not provided at all evaluates to the default of iv.
func CompileInput(node *language.Value, iv *model.InputValueDef, vars map[string]*VariableDef) (Evaluator, error) {
	return compile(node, iv.Type, iv, vars)
}

func compile(node *language.Value, target *model.TypeRef, iv *model.InputValueDef, vars map[string]*VariableDef) (Evaluator, error) {
	if node.Kind == language.Variable {
		vd := vars[node.Raw]
		if vd == nil {
			return nil, &UsageError{Message: fmt.Sprintf("variable $%s is not defined", node.Raw), Pos: node.Position}
		}
		if !IsConvertibleFrom(target, vd.Type) {
			return nil, &UsageError{
				Message: fmt.Sprintf("variable $%s of type %s cannot be used where %s is expected", node.Raw, vd.Type, target),
				Pos:     node.Position,
			}
		}
		hasDefault := iv != nil && iv.HasDefault
		if target.IsNonNull() && !vd.Type.IsNonNull() && !vd.HasDefault && !hasDefault {
			return nil, &UsageError{
				Message: fmt.Sprintf("variable $%s of nullable type %s cannot be used where %s is expected", node.Raw, vd.Type, target),
				Pos:     node.Position,
			}
		}
		ev := &varEval{name: node.Raw, target: target, source: vd.Type, pos: node.Position}
		if hasDefault {
			ev.hasDefault, ev.defaultValue = true, iv.DefaultValue
		}
		return ev, nil
	}
	if node.Kind == language.NullValue {
		if target.IsNonNull() {
			return nil, invalid(node.Position, "expected value of type %s, found null", target)
		}
		return Const(nil), nil
	}

	nullable := target.Nullable()
	if nullable.Kind == model.TypeRefKindList {
		var children []*language.Value
		if node.Kind == language.ListValue {
			for _, c := range node.Children {
				children = append(children, c.Value)
			}
		} else {
			children = []*language.Value{node}
		}
		items := make([]Evaluator, len(children))
		for i, c := range children {
			ev, err := compile(c, nullable.OfType, nil, vars)
			if err != nil {
				return nil, err
			}
			items[i] = ev
		}
		return fold(&listEval{items: items}, items)
	}

	def := target.TypeDef()
	if def.Kind == model.TypeKindInputObject {
		return compileObject(node, def, vars)
	}
	lit, err := Literal(node)
	if err != nil {
		return nil, invalid(node.Position, "%v", err)
	}
	v, err := Convert(target, lit)
	if err != nil {
		return nil, invalid(node.Position, "%v", err)
	}
	return Const(v), nil
}

func compileObject(node *language.Value, def *model.TypeDef, vars map[string]*VariableDef) (Evaluator, error) {
	if node.Kind != language.ObjectValue {
		return nil, invalid(node.Position, "expected input object %s, found %s", def.Name, node.String())
	}
	for _, c := range node.Children {
		if def.InputField(c.Name) == nil {
			return nil, invalid(c.Position, "field %q is not defined by type %s", c.Name, def.Name)
		}
	}
	var fields []objectField
	var evals []Evaluator
	for _, f := range def.InputFields {
		child := node.Children.ForName(f.Name)
		if child == nil {
			if f.HasDefault {
				fields = append(fields, objectField{name: f.Name, eval: Const(f.DefaultValue)})
			} else if f.Type.IsNonNull() {
				return nil, invalid(node.Position, "field %s.%s of required type %s was not provided", def.Name, f.Name, f.Type)
			}
			continue
		}
		ev, err := CompileInput(child, f, vars)
		if err != nil {
			return nil, err
		}
		fields = append(fields, objectField{name: f.Name, eval: ev})
		evals = append(evals, ev)
	}
	return fold(&objectEval{fields: fields}, evals)
}

// fold replaces ev with its value when none of its children depend on variables.
func fold(ev Evaluator, children []Evaluator) (Evaluator, error) {
	for _, c := range children {
		if !c.Static() {
			return ev, nil
		}
	}
	v, err := ev.Eval(nil)
	if err != nil {
		return nil, err
	}
	return Const(v), nil
}

// Same reports whether a and b produce equal values for every set of
// variables. Variables match only when they name the same variable.
func Same(a, b Evaluator) bool {
	switch av := a.(type) {
	case constEval:
		bv, ok := b.(constEval)
		return ok && equalValue(av.value, bv.value)
	case *varEval:
		bv, ok := b.(*varEval)
		return ok && av.name == bv.name &&
			av.hasDefault == bv.hasDefault && equalValue(av.defaultValue, bv.defaultValue)
	case *listEval:
		bv, ok := b.(*listEval)
		if !ok || len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if !Same(av.items[i], bv.items[i]) {
				return false
			}
		}
		return true
	case *objectEval:
		bv, ok := b.(*objectEval)
		if !ok || len(av.fields) != len(bv.fields) {
			return false
		}
		for i := range av.fields {
			if av.fields[i].name != bv.fields[i].name || !Same(av.fields[i].eval, bv.fields[i].eval) {
				return false
			}
		}
		return true
	}
	return false
}

func equalValue(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !equalValue(v, bv[k]) {
				return false
			}
		}
		return true
	}
	defer func() { _ = recover() }()
	return a == b
}

// CoerceVariables validates raw variable values against their definitions,
// applying defaults. All problems are reported.
func CoerceVariables(defs []*VariableDef, raw map[string]any) (map[string]any, []error) {
	coerced := make(map[string]any, len(defs))
	var errs []error
	for _, vd := range defs {
		val, ok := raw[vd.Name]
		if !ok {
			if vd.HasDefault {
				coerced[vd.Name] = vd.Default
			} else if vd.Type.IsNonNull() {
				errs = append(errs, invalid(vd.Pos, "variable $%s of required type %s was not provided", vd.Name, vd.Type))
			}
			continue
		}
		if val == nil && vd.Type.IsNonNull() {
			errs = append(errs, invalid(vd.Pos, "variable $%s of type %s cannot be null", vd.Name, vd.Type))
			continue
		}
		cv, err := Convert(vd.Type, val)
		if err != nil {
			errs = append(errs, invalid(vd.Pos, "variable $%s of type %s cannot be coerced: %v", vd.Name, vd.Type, err))
			continue
		}
		coerced[vd.Name] = cv
	}
	return coerced, errs
}
