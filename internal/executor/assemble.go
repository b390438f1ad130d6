package executor

import (
	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/vektah/gqlparser/v2/ast"
)

// assembler builds the response data from the scope tree. A null in a
// non-null position nulls the nearest nullable ancestor; it is reported
// unless an error was already recorded at or below its path.
type assembler struct {
	ex      *operationExecuter
	errored map[string]bool
}

func (ex *operationExecuter) assemble(root *OutputObjectScope) *response.OrderedMap {
	a := &assembler{ex: ex, errored: map[string]bool{}}
	for _, err := range ex.rc.Errors() {
		a.markErrored(err.Path)
	}
	data, violated := a.object(root)
	if violated {
		return nil
	}
	return data
}

// markErrored records path and all of its prefixes.
func (a *assembler) markErrored(path ast.Path) {
	for i := len(path); i > 0; i-- {
		a.errored[path[:i].String()] = true
	}
}

func (a *assembler) object(s *OutputObjectScope) (*response.OrderedMap, bool) {
	if s.nulled.Load() {
		return nil, true
	}
	m := response.NewOrderedMap(len(s.Fields))
	for i := range s.Fields {
		fv := &s.Fields[i]
		v, ok := a.value(fv.Type, fv.Value, appendPath(s.Path, ast.PathName(fv.Key)), fv.Fields[0])
		if !ok {
			return nil, true
		}
		m.Set(fv.Key, v)
	}
	return m, false
}

// value returns the output of v at a position of type typ; ok is false when
// a non-null violation reaches the position.
func (a *assembler) value(typ *model.TypeRef, v any, path ast.Path, field *mapping.MappedField) (out any, ok bool) {
	out, violated := a.inner(typ.Nullable(), v, path, field)
	if violated {
		out = nil
	}
	if out == nil && typ.IsNonNull() {
		if !a.errored[path.String()] {
			a.nullError(path, field)
		}
		return nil, false
	}
	return out, true
}

func (a *assembler) inner(typ *model.TypeRef, v any, path ast.Path, field *mapping.MappedField) (any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case *OutputObjectScope:
		m, violated := a.object(v)
		if violated {
			return nil, true
		}
		return m, false
	case []any:
		if typ.Kind != model.TypeRefKindList {
			return v, false
		}
		out := make([]any, len(v))
		for i, item := range v {
			iv, ok := a.value(typ.OfType, item, appendPath(path, ast.PathIndex(i)), field)
			if !ok {
				return nil, true
			}
			out[i] = iv
		}
		return out, false
	}
	return v, false
}

func (a *assembler) nullError(path ast.Path, field *mapping.MappedField) {
	name := field.Name
	if field.Field != nil {
		name = field.Field.Path()
	}
	err := serverError(field.Position, path, "Cannot return null for non-nullable field %s.", name)
	a.markErrored(path)
	a.ex.report(err)
}
