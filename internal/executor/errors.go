package executor

import (
	"context"
	"errors"

	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/hanpama/gqlengine/internal/values"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// fieldError converts a resolver error to a response error at path.
// Errors that already carry a code keep it.
func fieldError(err error, field *mapping.MappedField, path ast.Path) *gqlerror.Error {
	var ge *gqlerror.Error
	if errors.As(err, &ge) && response.CodeOf(ge) != "" {
		out := *ge
		if out.Path == nil {
			out.Path = path
		}
		if out.Locations == nil && field.Position != nil {
			out.Locations = []gqlerror.Location{{Line: field.Position.Line, Column: field.Position.Column}}
		}
		return &out
	}
	code := response.CodeResolverError
	var coded model.CodedError
	switch {
	case errors.Is(err, model.ErrObjectNotFound):
		code = response.CodeObjectNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = response.CodeCancelled
	case errors.As(err, &coded):
		code = response.ErrorCode(coded.Code())
	}
	out := response.NewError(code, field.Position, path, "%s", err.Error())
	out.Err = err
	return out
}

// inputError converts a value coercion failure.
func inputError(err error) *gqlerror.Error {
	var (
		invalid *values.InvalidInputError
		usage   *values.UsageError
		pos     *language.Position
		code    = response.CodeInputError
	)
	switch {
	case errors.As(err, &invalid):
		pos = invalid.Pos
	case errors.As(err, &usage):
		pos = usage.Pos
		code = response.CodeBadRequest
	}
	out := response.NewError(code, pos, nil, "%s", err.Error())
	out.Err = err
	return out
}

func serverError(pos *language.Position, path ast.Path, format string, args ...any) *gqlerror.Error {
	return response.NewError(response.CodeServerError, pos, path, format, args...)
}

// quotaError reports an exceeded request quota. The quota extension names
// which limit was hit.
func quotaError(path ast.Path, quota string, format string, args ...any) *gqlerror.Error {
	err := response.NewError(response.CodeResolverError, nil, path, format, args...)
	err.Extensions["quota"] = quota
	return err
}
