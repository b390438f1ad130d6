package model

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/language"
)

// Model is the complete, built type model. It is read-only once Build returns
// and is shared by all requests without locking.
type Model struct {
	QueryType        *TypeDef
	MutationType     *TypeDef
	SubscriptionType *TypeDef
	Types            map[string]*TypeDef // All named types keyed by name
	Directives       map[string]*DirectiveDef
	Description      string

	// Introspection holds the model-time __Schema object.
	Introspection any

	typeOrder      []*TypeDef
	directiveOrder []*DirectiveDef
	entityKinds    map[string]*TypeDef
}

// Type returns the named type, or nil.
func (m *Model) Type(name string) *TypeDef { return m.Types[name] }

// Directive returns the named directive, or nil.
func (m *Model) Directive(name string) *DirectiveDef { return m.Directives[name] }

// TypeList returns all types in registration order.
func (m *Model) TypeList() []*TypeDef { return m.typeOrder }

// DirectiveList returns all directives in registration order.
func (m *Model) DirectiveList() []*DirectiveDef { return m.directiveOrder }

// RootType returns the root type for an operation kind (nil if absent).
func (m *Model) RootType(op language.Operation) *TypeDef {
	switch op {
	case language.Mutation:
		return m.MutationType
	case language.Subscription:
		return m.SubscriptionType
	}
	return m.QueryType
}

// TypeForEntityKind returns the object type registered for an entity kind.
func (m *Model) TypeForEntityKind(kind string) *TypeDef { return m.entityKinds[kind] }

// ConcreteType selects the object type of value returned from a field of type t.
// Values implementing Entity are dispatched through the entity-kind table;
// other values go through the abstract type's ResolveType func.
func (m *Model) ConcreteType(t *TypeDef, value any) (*TypeDef, error) {
	if t.Kind == TypeKindObject {
		return t, nil
	}
	var obj *TypeDef
	if e, ok := value.(Entity); ok {
		obj = m.entityKinds[e.EntityKind()]
		if obj == nil {
			return nil, fmt.Errorf("no object type is mapped to entity kind %q", e.EntityKind())
		}
	} else if t.ResolveType != nil {
		name := t.ResolveType(value)
		obj = m.Types[name]
		if obj == nil || obj.Kind != TypeKindObject {
			return nil, fmt.Errorf("type %s resolved value of type %T to unknown object type %q", t.Name, value, name)
		}
	} else {
		return nil, fmt.Errorf("cannot determine object type for value of type %T returned as %s", value, t.Name)
	}
	for _, p := range t.possibleTypes {
		if p == obj {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("object type %s is not a possible type of %s", obj.Name, t.Name)
}
