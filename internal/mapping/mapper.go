package mapping

import (
	"errors"
	"sort"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/hanpama/gqlengine/internal/values"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const typenameField = "__typename"

// Map binds every operation of doc to m. When errors are returned the
// request must not be executed.
func Map(m *model.Model, doc *language.QueryDocument) (*MappedRequest, response.Errors) {
	mp := &mapper{
		model: m,
		doc:   doc,
		seen:  make(map[errKey]bool),
	}
	req := &MappedRequest{Document: doc}

	mp.checkOperationNames()
	mp.order = mp.orderFragments()
	for _, op := range doc.Operations {
		if mapped := mp.mapOperation(op); mapped != nil {
			req.Operations = append(req.Operations, mapped)
		}
	}
	if len(mp.errs) > 0 {
		return nil, mp.errs
	}
	return req, nil
}

type errKey struct {
	msg       string
	line, col int
}

type mapper struct {
	model *model.Model
	doc   *language.QueryDocument
	order []*language.FragmentDefinition
	// fragments holds the fragments reachable from the operation being
	// mapped, each mapped per concrete object type.
	fragments map[string]map[*model.TypeDef][]MappedSelectionItem
	// vars are the variables of the operation being mapped.
	vars map[string]*values.VariableDef
	errs response.Errors
	seen map[errKey]bool
}

func (mp *mapper) fail(err *gqlerror.Error) {
	key := errKey{msg: err.Message}
	if len(err.Locations) > 0 {
		key.line, key.col = err.Locations[0].Line, err.Locations[0].Column
	}
	if mp.seen[key] {
		return
	}
	mp.seen[key] = true
	mp.errs = append(mp.errs, err)
}

func (mp *mapper) badRequest(pos *language.Position, format string, args ...any) {
	mp.fail(response.BadRequest(pos, format, args...))
}

// valueError reports a failure from the values package with the matching code.
func (mp *mapper) valueError(err error) {
	var inputErr *values.InvalidInputError
	if errors.As(err, &inputErr) {
		mp.fail(response.InputError(inputErr.Pos, "%s", inputErr.Message))
		return
	}
	var usage *values.UsageError
	if errors.As(err, &usage) {
		mp.badRequest(usage.Pos, "%s", usage.Message)
		return
	}
	mp.badRequest(nil, "%v", err)
}

func (mp *mapper) checkOperationNames() {
	names := make(map[string]bool)
	for _, op := range mp.doc.Operations {
		if op.Name == "" {
			if len(mp.doc.Operations) > 1 {
				mp.badRequest(op.Position, "anonymous operation must be the only defined operation")
			}
			continue
		}
		if names[op.Name] {
			mp.badRequest(op.Position, "there can be only one operation named %q", op.Name)
		}
		names[op.Name] = true
	}
}

// orderFragments returns the fragment definitions sorted by dependency
// level: fragments spreading no other fragment first. Unknown and cyclic
// references are reported.
func (mp *mapper) orderFragments() []*language.FragmentDefinition {
	deps := make(map[string][]string, len(mp.doc.Fragments))
	defs := make(map[string]*language.FragmentDefinition, len(mp.doc.Fragments))
	for _, frag := range mp.doc.Fragments {
		if defs[frag.Name] != nil {
			mp.badRequest(frag.Position, "there can be only one fragment named %q", frag.Name)
			continue
		}
		defs[frag.Name] = frag
		deps[frag.Name] = mp.spreadNames(frag.SelectionSet, nil)
	}

	const (
		visiting = iota + 1
		done
	)
	state := make(map[string]int, len(defs))
	level := make(map[string]int, len(defs))
	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case visiting:
			return false
		case done:
			return true
		}
		state[name] = visiting
		lvl := 0
		for _, dep := range deps[name] {
			if defs[dep] == nil {
				continue
			}
			if !visit(dep) {
				if state[name] == visiting {
					mp.badRequest(defs[name].Position, "cannot spread fragment %q within itself", name)
				}
				state[name] = done
				return false
			}
			if level[dep]+1 > lvl {
				lvl = level[dep] + 1
			}
		}
		level[name] = lvl
		state[name] = done
		return true
	}

	var order []*language.FragmentDefinition
	for _, frag := range mp.doc.Fragments {
		if defs[frag.Name] != frag {
			continue
		}
		if visit(frag.Name) {
			order = append(order, frag)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return level[order[i].Name] < level[order[j].Name] })

	used := make(map[string]bool)
	for _, op := range mp.doc.Operations {
		for _, name := range mp.spreadNames(op.SelectionSet, nil) {
			used[name] = true
		}
	}
	for _, frag := range mp.doc.Fragments {
		for _, name := range deps[frag.Name] {
			used[name] = true
		}
	}
	for _, frag := range mp.doc.Fragments {
		if !used[frag.Name] {
			mp.badRequest(frag.Position, "fragment %q is never used", frag.Name)
		}
	}
	return order
}

// spreadNames lists the fragments spread anywhere inside set.
func (mp *mapper) spreadNames(set language.SelectionSet, acc []string) []string {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			acc = mp.spreadNames(sel.SelectionSet, acc)
		case *language.InlineFragment:
			acc = mp.spreadNames(sel.SelectionSet, acc)
		case *language.FragmentSpread:
			if mp.doc.Fragments.ForName(sel.Name) == nil {
				mp.badRequest(sel.Position, "unknown fragment %q", sel.Name)
				continue
			}
			acc = append(acc, sel.Name)
		}
	}
	return acc
}

func (mp *mapper) mapFragment(frag *language.FragmentDefinition) {
	cond := mp.model.Type(frag.TypeCondition)
	if cond == nil {
		mp.badRequest(frag.Position, "unknown type %q in fragment %q", frag.TypeCondition, frag.Name)
		return
	}
	if !cond.IsComplex() {
		mp.badRequest(frag.Position, "fragment %q cannot condition on non composite type %q", frag.Name, cond.Name)
		return
	}
	mp.checkAbstractSelection(frag.SelectionSet, cond)
	perType := make(map[*model.TypeDef][]MappedSelectionItem)
	for _, obj := range cond.PossibleTypes() {
		perType[obj] = mp.mapItems(frag.SelectionSet, obj)
	}
	mp.fragments[frag.Name] = perType
}

func (mp *mapper) mapOperation(op *language.OperationDefinition) *MappedOperation {
	root := mp.model.RootType(op.Operation)
	if root == nil {
		mp.badRequest(op.Position, "the model does not support %s operations", op.Operation)
		return nil
	}
	mapped := &MappedOperation{
		Name:     op.Name,
		Type:     op.Operation,
		RootType: root,
		Position: op.Position,
	}
	mp.vars = make(map[string]*values.VariableDef, len(op.VariableDefinitions))
	defer func() { mp.vars = nil }()
	for _, vd := range op.VariableDefinitions {
		if def := mp.mapVariable(vd); def != nil {
			mapped.Variables = append(mapped.Variables, def)
			mp.vars[def.Name] = def
		}
	}
	mapped.Directives = mp.mapDirectives(op.Directives, model.OperationLocation(op.Operation))

	reachable := mp.reachableFragments(op.SelectionSet)
	mp.fragments = make(map[string]map[*model.TypeDef][]MappedSelectionItem, len(reachable))
	for _, frag := range mp.order {
		if reachable[frag.Name] {
			mp.mapFragment(frag)
		}
	}
	mapped.Items = mp.mapItems(op.SelectionSet, root)
	return mapped
}

func (mp *mapper) mapVariable(vd *language.VariableDefinition) *values.VariableDef {
	if mp.vars[vd.Variable] != nil {
		mp.badRequest(vd.Position, "there can be only one variable named $%s", vd.Variable)
		return nil
	}
	ref := model.TypeRefFromAST(vd.Type)
	if err := mp.model.Resolve(ref); err != nil {
		mp.badRequest(vd.Position, "variable $%s: %v", vd.Variable, err)
		return nil
	}
	if !ref.TypeDef().IsInput() {
		mp.badRequest(vd.Position, "variable $%s cannot be of non-input type %s", vd.Variable, ref)
		return nil
	}
	def := &values.VariableDef{Name: vd.Variable, Type: ref, Pos: vd.Position}
	if vd.DefaultValue != nil {
		ev, err := values.Compile(vd.DefaultValue, ref, nil)
		if err != nil {
			mp.valueError(err)
			return nil
		}
		def.Default, _ = ev.Eval(nil)
		def.HasDefault = true
	}
	return def
}

// reachableFragments returns the fragments spread from set, directly or
// through other fragments.
func (mp *mapper) reachableFragments(set language.SelectionSet) map[string]bool {
	reachable := make(map[string]bool)
	queue := mp.spreadNames(set, nil)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if reachable[name] {
			continue
		}
		reachable[name] = true
		if frag := mp.doc.Fragments.ForName(name); frag != nil {
			queue = mp.spreadNames(frag.SelectionSet, queue)
		}
	}
	return reachable
}

// checkAbstractSelection verifies the direct fields and fragments of a
// selection on parent, which may be abstract. Selections are mapped per
// concrete type afterwards, where this context is no longer known.
func (mp *mapper) checkAbstractSelection(set language.SelectionSet, parent *model.TypeDef) {
	if !parent.IsAbstract() {
		return
	}
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			if sel.Name == typenameField {
				continue
			}
			if parent.Kind == model.TypeKindUnion || parent.Field(sel.Name) == nil {
				mp.badRequest(sel.Position, "cannot query field %q on type %q", sel.Name, parent.Name)
			}
		case *language.InlineFragment:
			if sel.TypeCondition == "" {
				mp.checkAbstractSelection(sel.SelectionSet, parent)
				continue
			}
			if cond := mp.model.Type(sel.TypeCondition); cond != nil && !overlaps(parent, cond) {
				mp.badRequest(sel.Position, "fragment cannot be spread here as objects of type %q can never be of type %q", parent.Name, cond.Name)
			}
		case *language.FragmentSpread:
			frag := mp.doc.Fragments.ForName(sel.Name)
			if frag == nil {
				continue
			}
			if cond := mp.model.Type(frag.TypeCondition); cond != nil && cond.IsComplex() && !overlaps(parent, cond) {
				mp.badRequest(sel.Position, "fragment %q cannot be spread here as objects of type %q can never be of type %q", sel.Name, parent.Name, cond.Name)
			}
		}
	}
}

func overlaps(a, b *model.TypeDef) bool {
	for _, x := range a.PossibleTypes() {
		for _, y := range b.PossibleTypes() {
			if x == y {
				return true
			}
		}
	}
	return false
}

func appliesTo(cond, obj *model.TypeDef) bool {
	for _, p := range cond.PossibleTypes() {
		if p == obj {
			return true
		}
	}
	return false
}

// mapItems maps a selection set for the concrete object type obj.
func (mp *mapper) mapItems(set language.SelectionSet, obj *model.TypeDef) []MappedSelectionItem {
	items := make([]MappedSelectionItem, 0, len(set))
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			if f := mp.mapField(sel, obj); f != nil {
				items = append(items, f)
			}
		case *language.InlineFragment:
			if sel.TypeCondition != "" {
				cond := mp.model.Type(sel.TypeCondition)
				if cond == nil {
					mp.badRequest(sel.Position, "unknown type %q", sel.TypeCondition)
					continue
				}
				if !cond.IsComplex() {
					mp.badRequest(sel.Position, "fragment cannot condition on non composite type %q", cond.Name)
					continue
				}
				if !appliesTo(cond, obj) {
					continue
				}
				mp.checkAbstractSelection(sel.SelectionSet, cond)
			}
			items = append(items, &MappedFragmentSpread{
				Directives: mp.mapDirectives(sel.Directives, model.LocationInlineFragment),
				Items:      mp.mapItems(sel.SelectionSet, obj),
			})
		case *language.FragmentSpread:
			perType, ok := mp.fragments[sel.Name]
			if !ok {
				continue
			}
			fragItems, ok := perType[obj]
			if !ok {
				continue
			}
			directives := mp.mapDirectives(sel.Directives, model.LocationFragmentSpread)
			if frag := mp.doc.Fragments.ForName(sel.Name); frag != nil {
				directives = append(directives, mp.mapDirectives(frag.Directives, model.LocationFragmentDefinition)...)
			}
			items = append(items, &MappedFragmentSpread{
				Name:       sel.Name,
				Directives: directives,
				Items:      fragItems,
			})
		}
	}
	mp.checkMerge(items)
	return items
}

func (mp *mapper) mapField(sel *language.Field, obj *model.TypeDef) *MappedField {
	key := sel.Alias
	if key == "" {
		key = sel.Name
	}
	mf := &MappedField{
		Key:        key,
		Name:       sel.Name,
		Position:   sel.Position,
		Directives: mp.mapDirectives(sel.Directives, model.LocationField),
	}
	if sel.Name == typenameField {
		if len(sel.Arguments) > 0 {
			mp.badRequest(sel.Position, "field %q does not accept arguments", typenameField)
		}
		if len(sel.SelectionSet) > 0 {
			mp.badRequest(sel.Position, "field %q must not have a selection since type \"String!\" has no subfields", typenameField)
		}
		return mf
	}
	def := obj.Field(sel.Name)
	if def == nil {
		mp.badRequest(sel.Position, "cannot query field %q on type %q", sel.Name, obj.Name)
		return nil
	}
	mf.Field = def
	mf.Args = mp.mapArgs(def.Args, sel.Arguments, sel.Position, "field "+def.Path())

	fieldType := def.Type.TypeDef()
	if fieldType.IsComplex() {
		if len(sel.SelectionSet) == 0 {
			mp.badRequest(sel.Position, "field %q of type %q must have a selection of subfields", sel.Name, def.Type)
			return mf
		}
		mp.checkAbstractSelection(sel.SelectionSet, fieldType)
		mf.Subset = mp.mapSubset(sel.SelectionSet, fieldType)
	} else if len(sel.SelectionSet) > 0 {
		mp.badRequest(sel.Position, "field %q must not have a selection since type %q has no subfields", sel.Name, def.Type)
	}
	return mf
}

func (mp *mapper) mapSubset(set language.SelectionSet, t *model.TypeDef) *MappedSelectionSubset {
	possible := t.PossibleTypes()
	subset := &MappedSelectionSubset{
		Type:     t,
		ItemSets: make([]*MappedObjectItemSet, 0, len(possible)),
		byType:   make(map[*model.TypeDef]*MappedObjectItemSet, len(possible)),
	}
	for _, obj := range possible {
		is := &MappedObjectItemSet{ObjectType: obj, Items: mp.mapItems(set, obj)}
		subset.ItemSets = append(subset.ItemSets, is)
		subset.byType[obj] = is
	}
	return subset
}

// checkMerge reports selections sharing a response key that cannot be merged.
func (mp *mapper) checkMerge(items []MappedSelectionItem) {
	byKey := make(map[string]*MappedField)
	var walk func(items []MappedSelectionItem)
	walk = func(items []MappedSelectionItem) {
		for _, item := range items {
			switch item := item.(type) {
			case *MappedField:
				prev, ok := byKey[item.Key]
				if !ok {
					byKey[item.Key] = item
					continue
				}
				if prev.Name != item.Name {
					mp.badRequest(item.Position, "fields %q conflict because %s and %s are different fields", item.Key, prev.Name, item.Name)
				} else if !sameArgs(prev.Args, item.Args) {
					mp.badRequest(item.Position, "fields %q conflict because they have differing arguments", item.Key)
				}
			case *MappedFragmentSpread:
				walk(item.Items)
			}
		}
	}
	walk(items)
}

func sameArgs(a, b *MappedArgs) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Names) != len(b.Names) {
		return false
	}
	for i := range a.Names {
		if a.Names[i] != b.Names[i] || !values.Same(a.Evals[i], b.Evals[i]) {
			return false
		}
	}
	return true
}

// mapArgs compiles the arguments of a field or directive in declaration order.
func (mp *mapper) mapArgs(defs []*model.InputValueDef, args language.ArgumentList, pos *language.Position, owner string) *MappedArgs {
	for _, arg := range args {
		found := false
		for _, def := range defs {
			if def.Name == arg.Name {
				found = true
				break
			}
		}
		if !found {
			mp.badRequest(arg.Position, "unknown argument %q on %s", arg.Name, owner)
		}
	}
	mapped := &MappedArgs{
		Names: make([]string, 0, len(defs)),
		Evals: make([]values.Evaluator, 0, len(defs)),
	}
	static := true
	for _, def := range defs {
		arg := args.ForName(def.Name)
		var ev values.Evaluator
		switch {
		case arg != nil:
			var err error
			ev, err = values.CompileInput(arg.Value, def, mp.vars)
			if err != nil {
				mp.valueError(err)
				continue
			}
		case def.HasDefault:
			ev = values.Const(def.DefaultValue)
		case def.Type.IsNonNull():
			mp.badRequest(pos, "argument %q of type %q is required on %s", def.Name, def.Type, owner)
			continue
		default:
			ev = values.Const(nil)
		}
		static = static && ev.Static()
		mapped.Names = append(mapped.Names, def.Name)
		mapped.Evals = append(mapped.Evals, ev)
	}
	if static {
		vals := make([]any, len(mapped.Evals))
		for i, ev := range mapped.Evals {
			vals[i], _ = ev.Eval(nil)
		}
		mapped.Static = true
		mapped.StaticValues = model.NewArgs(mapped.Names, vals)
	}
	return mapped
}

func (mp *mapper) mapDirectives(list language.DirectiveList, loc model.DirectiveLocation) []*MappedDirective {
	if len(list) == 0 {
		return nil
	}
	var out []*MappedDirective
	seen := make(map[string]bool)
	for _, d := range list {
		def := mp.model.Directive(d.Name)
		if def == nil {
			mp.badRequest(d.Position, "unknown directive \"@%s\"", d.Name)
			continue
		}
		if !def.Locations.Has(loc) {
			mp.badRequest(d.Position, "directive \"@%s\" may not be used on %s", d.Name, loc)
			continue
		}
		if seen[d.Name] && !def.Repeatable {
			mp.badRequest(d.Position, "the directive \"@%s\" can only be used once at this location", d.Name)
			continue
		}
		seen[d.Name] = true
		if h, ok := def.Handler.(model.RequestParsedHandler); ok {
			if err := h.RequestParsed(loc, d); err != nil {
				mp.badRequest(d.Position, "directive \"@%s\": %v", d.Name, err)
				continue
			}
		}
		out = append(out, &MappedDirective{
			Def:      def,
			Args:     mp.mapArgs(def.Args, d.Arguments, d.Position, "directive @"+def.Name),
			Position: d.Position,
		})
	}
	return out
}
