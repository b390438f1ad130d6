package language

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses request text into a query document. Syntax errors are
// returned as *gqlerror.Error carrying the failing location.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SyntaxError extracts the parser error from err. It returns false when err
// did not come from the parser.
func SyntaxError(err error) (*gqlerror.Error, bool) {
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return ge, true
	}
	var list gqlerror.List
	if errors.As(err, &list) && len(list) > 0 {
		return list[0], true
	}
	return nil, false
}

// ParseType parses a GraphQL type expression such as "[Starship!]!".
func ParseType(expr string) (*Type, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "type-expr", Input: "type T { f: " + expr + " }"})
	if err != nil {
		return nil, fmt.Errorf("invalid type expression %q: %w", expr, err)
	}
	if len(doc.Definitions) != 1 || len(doc.Definitions[0].Fields) != 1 {
		return nil, fmt.Errorf("invalid type expression %q", expr)
	}
	return doc.Definitions[0].Fields[0].Type, nil
}

// ParseValue parses a GraphQL input literal such as `{ stars: 5 }`.
func ParseValue(literal string) (*Value, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "value", Input: "{ f(v: " + literal + ") }"})
	if err != nil {
		return nil, fmt.Errorf("invalid value literal %q: %w", literal, err)
	}
	field, ok := doc.Operations[0].SelectionSet[0].(*ast.Field)
	if !ok || len(field.Arguments) != 1 {
		return nil, fmt.Errorf("invalid value literal %q", literal)
	}
	return field.Arguments[0].Value, nil
}
