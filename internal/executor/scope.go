package executor

import (
	"sync/atomic"

	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/vektah/gqlparser/v2/ast"
)

// OutputObjectScope is one object of the response under construction: the
// entity it was resolved from, its concrete type and one slot per response
// key. Slots are written by index, so fields of one scope may complete
// concurrently without locking.
type OutputObjectScope struct {
	Parent     *OutputObjectScope
	Path       ast.Path
	Entity     any
	ObjectType *model.TypeDef
	Depth      int
	Fields     []FieldValue

	nulled atomic.Bool
	// propagates is set when the slot holding this object is non-null at
	// every level, so a null object nulls the parent too.
	propagates bool
}

// FieldValue is the slot of one response key. Fields holds the merged
// selections sharing the key, in request order.
type FieldValue struct {
	Key    string
	Fields []*mapping.MappedField
	Type   *model.TypeRef
	Value  any
}

var typenameType = model.NonNullType(&model.TypeRef{
	Kind:  model.TypeRefKindNamed,
	Named: "String",
	Def:   model.StringScalar,
})

func newScope(parent *OutputObjectScope, path ast.Path, entity any, obj *model.TypeDef, depth int, propagates bool) *OutputObjectScope {
	return &OutputObjectScope{
		Parent:     parent,
		Path:       path,
		Entity:     entity,
		ObjectType: obj,
		Depth:      depth,
		propagates: propagates,
	}
}

// prune marks the scope as null, continuing upward while the null is not
// absorbed by a nullable slot.
func (s *OutputObjectScope) prune() {
	for cur := s; cur != nil; cur = cur.Parent {
		cur.nulled.Store(true)
		if !cur.propagates {
			return
		}
	}
}

// dead reports whether the scope or one of its ancestors became null, in
// which case its remaining fields need not be resolved.
func (s *OutputObjectScope) dead() bool {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.nulled.Load() {
			return true
		}
	}
	return false
}

// fieldTask is the resolution of one slot.
type fieldTask struct {
	scope *OutputObjectScope
	slot  int
}

func (t *fieldTask) value() *FieldValue { return &t.scope.Fields[t.slot] }

func (t *fieldTask) field() *mapping.MappedField { return t.scope.Fields[t.slot].Fields[0] }

func (t *fieldTask) path() ast.Path {
	return appendPath(t.scope.Path, ast.PathName(t.scope.Fields[t.slot].Key))
}

func (s *OutputObjectScope) tasks() []*fieldTask {
	out := make([]*fieldTask, len(s.Fields))
	for i := range s.Fields {
		out[i] = &fieldTask{scope: s, slot: i}
	}
	return out
}

// collect lays out the slots of the scope from its selection items,
// leaving out skipped items and merging repeated keys.
func (ex *operationExecuter) collect(s *OutputObjectScope, items []mapping.MappedSelectionItem) {
	index := map[string]int{}
	var walk func(items []mapping.MappedSelectionItem)
	walk = func(items []mapping.MappedSelectionItem) {
		for _, item := range items {
			if ex.skipped(item.ItemDirectives()) {
				continue
			}
			switch item := item.(type) {
			case *mapping.MappedField:
				if i, ok := index[item.Key]; ok {
					s.Fields[i].Fields = append(s.Fields[i].Fields, item)
					continue
				}
				typ := typenameType
				if !item.IsTypename() {
					typ = item.Field.Type
				}
				index[item.Key] = len(s.Fields)
				s.Fields = append(s.Fields, FieldValue{
					Key:    item.Key,
					Fields: []*mapping.MappedField{item},
					Type:   typ,
				})
			case *mapping.MappedFragmentSpread:
				walk(item.Items)
			}
		}
	}
	walk(items)
}

// subsetItems merges the selections of fields for values of type obj.
func subsetItems(fields []*mapping.MappedField, obj *model.TypeDef) []mapping.MappedSelectionItem {
	if len(fields) == 1 && fields[0].Subset != nil {
		if set := fields[0].Subset.ForType(obj); set != nil {
			return set.Items
		}
		return nil
	}
	var items []mapping.MappedSelectionItem
	for _, f := range fields {
		if f.Subset == nil {
			continue
		}
		if set := f.Subset.ForType(obj); set != nil {
			items = append(items, set.Items...)
		}
	}
	return items
}

func appendPath(p ast.Path, el ast.PathElement) ast.Path {
	out := make(ast.Path, len(p)+1)
	copy(out, p)
	out[len(p)] = el
	return out
}
