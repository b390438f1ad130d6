package mapping

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/values"
)

// MappedRequest is a parsed request bound to the model. It is immutable and
// may be shared by concurrent executions of the same query text.
type MappedRequest struct {
	Document   *language.QueryDocument
	Operations []*MappedOperation
}

// Operation selects the operation to execute. An empty name is only valid
// when the document holds a single operation.
func (r *MappedRequest) Operation(name string) (*MappedOperation, error) {
	if name == "" {
		if len(r.Operations) != 1 {
			return nil, fmt.Errorf("operation name is required when the request contains %d operations", len(r.Operations))
		}
		return r.Operations[0], nil
	}
	for _, op := range r.Operations {
		if op.Name == name {
			return op, nil
		}
	}
	return nil, fmt.Errorf("operation %q is not defined", name)
}

// MappedOperation is one operation with its root selection.
type MappedOperation struct {
	Name       string
	Type       language.Operation
	RootType   *model.TypeDef
	Variables  []*values.VariableDef
	Directives []*MappedDirective
	Items      []MappedSelectionItem
	Position   *language.Position
}

// MappedSelectionItem is a MappedField or a MappedFragmentSpread.
type MappedSelectionItem interface {
	// ItemDirectives returns the request directives attached to the item.
	ItemDirectives() []*MappedDirective
}

// MappedField binds a field selection to its definition.
type MappedField struct {
	Key        string
	Name       string
	Field      *model.FieldDef // nil for __typename
	Args       *MappedArgs
	Directives []*MappedDirective
	// Subset is the selection of a complex-typed field, nil for leaves.
	Subset   *MappedSelectionSubset
	Position *language.Position
}

func (f *MappedField) ItemDirectives() []*MappedDirective { return f.Directives }

// IsTypename reports whether the field is the __typename meta field.
func (f *MappedField) IsTypename() bool { return f.Field == nil }

// MappedFragmentSpread is a named or inline fragment already mapped for the
// object type of the enclosing item set. Name is empty for inline fragments.
type MappedFragmentSpread struct {
	Name       string
	Directives []*MappedDirective
	Items      []MappedSelectionItem
}

func (s *MappedFragmentSpread) ItemDirectives() []*MappedDirective { return s.Directives }

// MappedSelectionSubset is the selection of a complex field: one item set
// per object type the field value may have.
type MappedSelectionSubset struct {
	Type     *model.TypeDef
	ItemSets []*MappedObjectItemSet
	byType   map[*model.TypeDef]*MappedObjectItemSet
}

// ForType returns the item set used for values of object type t.
func (s *MappedSelectionSubset) ForType(t *model.TypeDef) *MappedObjectItemSet {
	return s.byType[t]
}

// MappedObjectItemSet is the selection applying to one concrete object type.
type MappedObjectItemSet struct {
	ObjectType *model.TypeDef
	Items      []MappedSelectionItem
}

// MappedDirective is a directive used in the request.
type MappedDirective struct {
	Def      *model.DirectiveDef
	Args     *MappedArgs
	Position *language.Position
}

// ArgValues evaluates the directive arguments by name.
func (d *MappedDirective) ArgValues(vars map[string]any) (map[string]any, error) {
	args, err := d.Args.Eval(vars)
	if err != nil {
		return nil, err
	}
	return args.Map(), nil
}

// MappedArgs are the compiled argument sources of a field or directive, in
// declaration order.
type MappedArgs struct {
	Names []string
	Evals []values.Evaluator
	// Static is set when no argument depends on a variable; StaticValues
	// then holds the values computed during mapping.
	Static       bool
	StaticValues model.Args
}

// Eval returns the argument values for an execution.
func (a *MappedArgs) Eval(vars map[string]any) (model.Args, error) {
	if a == nil {
		return model.Args{}, nil
	}
	if a.Static {
		return a.StaticValues, nil
	}
	vals := make([]any, len(a.Evals))
	for i, ev := range a.Evals {
		v, err := ev.Eval(vars)
		if err != nil {
			return model.Args{}, err
		}
		vals[i] = v
	}
	return model.NewArgs(a.Names, vals), nil
}
