package model

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/language"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
	// Def is the innermost named type, set when the model is built or the
	// reference is resolved against a model.
	Def *TypeDef
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// IsNullable is the opposite of IsNonNull.
func (t *TypeRef) IsNullable() bool { return !t.IsNonNull() }

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

// Nullable strips a Non-Null wrapper, if any.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

// ListItem returns the item type of a (possibly non-null) list type.
func (t *TypeRef) ListItem() *TypeRef {
	return t.Nullable().OfType
}

// Rank is the number of list dimensions.
func (t *TypeRef) Rank() int {
	rank := 0
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Kind == TypeRefKindList {
			rank++
		}
	}
	return rank
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// TypeDef returns the resolved innermost type definition.
func (t *TypeRef) TypeDef() *TypeDef {
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Def != nil {
			return cur.Def
		}
	}
	return nil
}

// Equal compares two references structurally.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == TypeRefKindNamed {
		return t.Named == o.Named
	}
	return t.OfType.Equal(o.OfType)
}

func (t *TypeRef) String() string {
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	}
	return t.Named
}

// NonNullType wraps t with Non-Null. Wrapping an already non-null type returns it unchanged.
func NonNullType(t *TypeRef) *TypeRef {
	if t.IsNonNull() {
		return t
	}
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: t, Def: t.Def}
}

func ListType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindList, OfType: t, Def: t.Def} }

func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

// ParseTypeRef parses a type expression such as "[Episode!]!".
func ParseTypeRef(expr string) (*TypeRef, error) {
	t, err := language.ParseType(expr)
	if err != nil {
		return nil, err
	}
	return TypeRefFromAST(t), nil
}

// Resolve binds every level of t to its named definition in m.
func (m *Model) Resolve(t *TypeRef) error {
	if t == nil {
		return fmt.Errorf("missing type")
	}
	if t.Kind == TypeRefKindNamed {
		def := m.Types[t.Named]
		if def == nil {
			return fmt.Errorf("unknown type %q", t.Named)
		}
		t.Def = def
		return nil
	}
	if err := m.Resolve(t.OfType); err != nil {
		return err
	}
	t.Def = t.OfType.Def
	return nil
}
