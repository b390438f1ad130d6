package executor

import (
	"reflect"
	"time"

	"github.com/hanpama/gqlengine/internal/eventbus"
	"github.com/hanpama/gqlengine/internal/events"
	"github.com/hanpama/gqlengine/internal/language"
	"github.com/hanpama/gqlengine/internal/mapping"
	"github.com/hanpama/gqlengine/internal/model"
	"github.com/hanpama/gqlengine/internal/response"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// operationExecuter resolves the fields of one operation.
//
// Each top-level field is resolved level by level: all slots of one depth
// are dispatched before any of the next. Resolvers of a level are called
// first and their Futures awaited afterwards, so asynchronous resolvers of
// sibling scopes overlap. Batched fields are called once per level for all
// scopes sharing the same selection.
type operationExecuter struct {
	engine *Engine
	rc     *RequestContext
}

func (ex *operationExecuter) execute(op *mapping.MappedOperation) *response.OrderedMap {
	root := newScope(nil, nil, nil, op.RootType, 0, true)
	ex.collect(root, op.Items)

	roots := root.tasks()
	if op.Type == language.Query && ex.engine.parallel && len(roots) > 1 {
		var g errgroup.Group
		for _, t := range roots {
			g.Go(func() error {
				ex.runRoot(t)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, t := range roots {
			ex.runRoot(t)
		}
	}
	if ex.rc.Aborted() {
		return nil
	}
	return ex.assemble(root)
}

// runRoot resolves a top-level field and its whole subtree.
func (ex *operationExecuter) runRoot(t *fieldTask) {
	defer func() {
		if r := recover(); r != nil {
			ex.rc.abort(ex.panicked(t.field(), t.path(), r))
		}
	}()
	start := time.Now()
	key := t.value().Key
	eventbus.Publish(ex.rc.ctx, events.FieldStart{
		RequestID: ex.rc.ID,
		Field:     t.field().Name,
		Path:      key,
	})
	tasks := []*fieldTask{t}
	for len(tasks) > 0 {
		if err := ex.rc.ctx.Err(); err != nil {
			ex.cancelled(err)
			break
		}
		tasks = ex.runLevel(tasks)
	}
	eventbus.Publish(ex.rc.ctx, events.FieldFinish{
		RequestID: ex.rc.ID,
		Field:     t.field().Name,
		Path:      key,
		Failed:    t.value().Value == nil && t.value().Type.IsNonNull(),
		Duration:  time.Since(start),
	})
}

// call is one resolver invocation covering one task, or every task of a batch.
type call struct {
	tasks    []*fieldTask
	batched  bool
	fc       *fieldContext
	handlers []boundHandler
	result   any
	err      error
}

type boundHandler struct {
	handler model.FieldHandler
	args    map[string]any
}

func (ex *operationExecuter) runLevel(tasks []*fieldTask) []*fieldTask {
	var (
		calls   []*call
		batches = map[*mapping.MappedField]*call{}
	)
	for _, t := range tasks {
		if t.scope.dead() {
			continue
		}
		mf := t.field()
		if mf.IsTypename() {
			t.value().Value = t.scope.ObjectType.Name
			continue
		}
		if mf.Field.Flags.Has(model.FieldBatched) {
			if c, ok := batches[mf]; ok {
				c.tasks = append(c.tasks, t)
				continue
			}
			c := &call{tasks: []*fieldTask{t}, batched: true}
			batches[mf] = c
			calls = append(calls, c)
			continue
		}
		calls = append(calls, &call{tasks: []*fieldTask{t}})
	}

	for _, c := range calls {
		ex.start(c)
	}
	var next []*fieldTask
	for _, c := range calls {
		if ex.rc.Aborted() {
			return nil
		}
		next = ex.finish(c, next)
	}
	return next
}

// start evaluates arguments, runs preview handlers and calls the resolver.
// Asynchronous results are left pending.
func (ex *operationExecuter) start(c *call) {
	first := c.tasks[0]
	mf := first.field()
	c.fc = &fieldContext{rc: ex.rc, field: mf, path: first.path()}
	if c.batched {
		c.fc.batch = c.tasks
	}

	args, err := mf.Args.Eval(ex.rc.vars)
	if err != nil {
		c.err = inputError(err)
		return
	}
	c.handlers, err = ex.fieldHandlers(mf)
	if err != nil {
		c.err = err
		return
	}
	for _, h := range c.handlers {
		err = ex.protect(mf, c.fc.path, func() (err error) {
			args, err = h.handler.PreviewField(c.fc, h.args, args)
			return err
		})
		if err != nil {
			c.err = err
			return
		}
	}
	if c.fc.aborted.Load() {
		return
	}
	var parent any
	if !c.batched {
		parent = first.scope.Entity
	}
	c.result, c.err = ex.invoke(c.fc, mf, parent, args)
}

// panicked logs a recovered panic raised while resolving mf and returns the
// error reported for it.
func (ex *operationExecuter) panicked(mf *mapping.MappedField, path ast.Path, r any) *gqlerror.Error {
	name := mf.Name
	if mf.Field != nil {
		name = mf.Field.Path()
	}
	ex.engine.logger.Error("resolver panic",
		zap.String("request_id", ex.rc.ID),
		zap.String("field", name),
		zap.Any("panic", r),
		zap.Stack("stack"),
	)
	return serverError(mf.Position, path, "panic while resolving %s: %v", name, r)
}

// protect runs fn, turning a panic into a server error of the field.
func (ex *operationExecuter) protect(mf *mapping.MappedField, path ast.Path, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ex.panicked(mf, path, r)
		}
	}()
	return fn()
}

// invoke calls the resolver or reader of the field, recovering panics.
func (ex *operationExecuter) invoke(fc *fieldContext, mf *mapping.MappedField, parent any, args model.Args) (result any, err error) {
	def := mf.Field
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, ex.panicked(mf, fc.path, r)
		}
	}()
	if def.Resolver != nil {
		ex.rc.Metrics.ResolverCalls.Add(1)
		return def.Resolver.Func(fc, parent, args)
	}
	if def.Reader == nil {
		return nil, nil
	}
	v, err := def.Reader(parent)
	if err != nil {
		return nil, serverError(mf.Position, fc.path, "cannot read %s: %v", def.Path(), err)
	}
	return v, nil
}

// finish awaits the result of c, applies post-processing and completes the
// value of every task, returning the slots of the next level.
func (ex *operationExecuter) finish(c *call, next []*fieldTask) []*fieldTask {
	result, err := c.result, c.err
	if err == nil {
		if f, ok := result.(model.Future); ok {
			result, err = f.Await(ex.rc.ctx)
			if err != nil && ex.rc.ctx.Err() != nil {
				ex.cancelled(ex.rc.ctx.Err())
				return next
			}
		}
	}
	if err != nil {
		for _, t := range c.tasks {
			ex.fail(t, err)
		}
		return next
	}
	if c.fc.aborted.Load() {
		for _, t := range c.tasks {
			t.value().Value = nil
		}
		return next
	}
	if !c.batched {
		return ex.completeTask(c, c.tasks[0], result, next)
	}

	def := c.tasks[0].field().Field
	if !c.fc.resultsSet {
		for _, t := range c.tasks {
			ex.fail(t, serverError(t.field().Position, nil, "batched resolver of %s did not set its results", def.Path()))
		}
		return next
	}
	missing := c.fc.missing
	if missing == nil {
		missing = def.MissingKeyValue
	}
	for _, t := range c.tasks {
		v := missing
		if r, ok := lookupResult(c.fc.results, t.scope.Entity); ok {
			v = r
		}
		next = ex.completeTask(c, t, v, next)
	}
	return next
}

// lookupResult finds the batched result of parent. Parents that cannot be
// used as map keys have no result.
func lookupResult(results map[any]any, parent any) (v any, ok bool) {
	if parent == nil || !reflect.TypeOf(parent).Comparable() {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	v, ok = results[parent]
	return v, ok
}

func (ex *operationExecuter) completeTask(c *call, t *fieldTask, v any, next []*fieldTask) []*fieldTask {
	for _, h := range c.handlers {
		err := ex.protect(t.field(), t.path(), func() (err error) {
			v, err = h.handler.PostProcessField(c.fc, h.args, v)
			return err
		})
		if err != nil {
			ex.fail(t, err)
			return next
		}
	}
	fv := t.value()
	fv.Value = ex.completeValue(t.scope, t.path(), fv.Type, fv.Fields, v, fv.Type.IsNonNull(), &next)
	return next
}

// fieldHandlers returns the field handlers applying to mf: those declared on
// the field in the model first, then those used in the request.
func (ex *operationExecuter) fieldHandlers(mf *mapping.MappedField) ([]boundHandler, error) {
	var out []boundHandler
	for _, use := range mf.Field.Directives {
		if h, ok := use.Def.Handler.(model.FieldHandler); ok {
			out = append(out, boundHandler{handler: h, args: use.Args})
		}
	}
	for _, d := range mf.Directives {
		h, ok := d.Def.Handler.(model.FieldHandler)
		if !ok {
			continue
		}
		args, err := d.ArgValues(ex.rc.vars)
		if err != nil {
			return nil, inputError(err)
		}
		out = append(out, boundHandler{handler: h, args: args})
	}
	return out, nil
}

// skipped reports whether any skip handler among dirs leaves the item out.
func (ex *operationExecuter) skipped(dirs []*mapping.MappedDirective) bool {
	for _, d := range dirs {
		h, ok := d.Def.Handler.(model.SkipHandler)
		if !ok {
			continue
		}
		args, err := d.ArgValues(ex.rc.vars)
		if err != nil {
			ex.report(inputError(err))
			return true
		}
		if h.ShouldSkip(args) {
			return true
		}
	}
	return false
}

// completeValue converts a resolved value to its output form. Objects become
// child scopes whose slots are appended to next. nonNull is set when every
// level from the field down to this position is non-null.
func (ex *operationExecuter) completeValue(scope *OutputObjectScope, path ast.Path, typ *model.TypeRef, fields []*mapping.MappedField, v any, nonNull bool, next *[]*fieldTask) any {
	if isNil(v) {
		return nil
	}
	pos := fields[0].Position
	nt := typ.Nullable()
	if nt.Kind == model.TypeRefKindList {
		items, ok := listItems(v)
		if !ok {
			ex.failAt(scope, nonNull, serverError(pos, path, "expected a list for %s, got %T", fields[0].Field.Path(), v))
			return nil
		}
		out := make([]any, len(items))
		item := nt.OfType
		for i, iv := range items {
			out[i] = ex.completeValue(scope, appendPath(path, ast.PathIndex(i)), item, fields, iv, nonNull && item.IsNonNull(), next)
		}
		return out
	}

	def := nt.TypeDef()
	if def.IsLeaf() {
		out, err := ex.serialize(def, v, fields[0], path)
		if err != nil {
			ex.failAt(scope, nonNull, err)
			return nil
		}
		return out
	}

	obj, err := ex.engine.model.ConcreteType(def, v)
	if err != nil {
		ex.failAt(scope, nonNull, serverError(pos, path, "%v", err))
		return nil
	}
	if !ex.withinQuotas(scope.Depth+1, path) {
		return nil
	}
	child := newScope(scope, path, v, obj, scope.Depth+1, nonNull)
	ex.collect(child, subsetItems(fields, obj))
	*next = append(*next, child.tasks()...)
	return child
}

// serialize converts a leaf value with the output converter of def.
func (ex *operationExecuter) serialize(def *model.TypeDef, v any, mf *mapping.MappedField, path ast.Path) (out any, gerr *gqlerror.Error) {
	defer func() {
		if r := recover(); r != nil {
			out, gerr = nil, ex.panicked(mf, path, r)
		}
	}()
	out, err := def.ToOutput(v)
	if err != nil {
		return nil, serverError(mf.Position, path, "cannot serialize value of %s as %s: %v", mf.Field.Path(), def.Name, err)
	}
	return out, nil
}

func (ex *operationExecuter) withinQuotas(depth int, path ast.Path) bool {
	q := ex.engine.quotas
	n := ex.rc.Metrics.OutputObjects.Add(1)
	var err *gqlerror.Error
	switch {
	case q.MaxOutputObjects > 0 && n > int64(q.MaxOutputObjects):
		err = quotaError(path, "output_objects", "output object quota of %d exceeded", q.MaxOutputObjects)
	case q.MaxDepth > 0 && depth > q.MaxDepth:
		err = quotaError(path, "depth", "maximum output depth of %d exceeded", q.MaxDepth)
	default:
		return true
	}
	if ex.rc.abort(err) {
		ex.engine.logger.Warn("request aborted",
			zap.String("request_id", ex.rc.ID),
			zap.String("reason", err.Message),
		)
	}
	return false
}

// fail records err for the slot of t and nulls the slot.
func (ex *operationExecuter) fail(t *fieldTask, err error) {
	fv := t.value()
	fv.Value = nil
	ex.failAt(t.scope, fv.Type.IsNonNull(), fieldError(err, fv.Fields[0], t.path()))
}

func (ex *operationExecuter) failAt(scope *OutputObjectScope, nonNull bool, err *gqlerror.Error) {
	ex.report(err)
	if nonNull {
		scope.prune()
	}
}

func (ex *operationExecuter) report(err *gqlerror.Error) {
	if response.CodeOf(err) == response.CodeServerError {
		ex.engine.logger.Error("server error",
			zap.String("request_id", ex.rc.ID),
			zap.String("path", err.Path.String()),
			zap.String("message", err.Message),
		)
	}
	ex.rc.addError(err)
}

func (ex *operationExecuter) cancelled(cause error) {
	ex.rc.abort(response.NewError(response.CodeCancelled, nil, nil, "request cancelled: %v", cause))
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func listItems(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
