package response

import (
	"fmt"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// ErrorCode classifies an error; it is reported as extensions.code.
type ErrorCode string

const (
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeSyntaxError    ErrorCode = "SYNTAX_ERROR"
	CodeInputError     ErrorCode = "INPUT_ERROR"
	CodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"
	CodeCancelled      ErrorCode = "CANCELLED"
	CodeResolverError  ErrorCode = "RESOLVER_ERROR"
	CodeServerError    ErrorCode = "SERVER_ERROR"
)

// Errors is the error list of a response. It implements error.
type Errors = gqlerror.List

// NewError returns a response error with the given code, located at pos
// when pos is not nil.
func NewError(code ErrorCode, pos *language.Position, path ast.Path, format string, args ...any) *gqlerror.Error {
	err := &gqlerror.Error{
		Message:    fmt.Sprintf(format, args...),
		Path:       path,
		Extensions: map[string]any{"code": string(code)},
	}
	if pos != nil {
		err.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	return err
}

// BadRequest reports a request that does not fit the model.
func BadRequest(pos *language.Position, format string, args ...any) *gqlerror.Error {
	return NewError(CodeBadRequest, pos, nil, format, args...)
}

// InputError reports an argument or variable value that cannot be coerced.
func InputError(pos *language.Position, format string, args ...any) *gqlerror.Error {
	return NewError(CodeInputError, pos, nil, format, args...)
}

// SyntaxError converts a parser error, keeping its location.
func SyntaxError(err *gqlerror.Error) *gqlerror.Error {
	out := &gqlerror.Error{
		Err:        err,
		Message:    err.Message,
		Locations:  err.Locations,
		Extensions: map[string]any{"code": string(CodeSyntaxError)},
	}
	return out
}

// CodeOf returns the code of err, or an empty code.
func CodeOf(err *gqlerror.Error) ErrorCode {
	if err == nil || err.Extensions == nil {
		return ""
	}
	code, _ := err.Extensions["code"].(string)
	return ErrorCode(code)
}
