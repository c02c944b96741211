package execution

import (
	"mit.edu/dsg/qexec/common"
)

// ExecutorContext holds the state of one enumeration pass: the parameter bindings of the query and a cache
// for values an executor computes once per pass (materialized sort buffers, resolved skip counts).
// It is passed to every Executor through Init. A context serves a single pass at a time; Reset starts a new
// one. It is not safe for concurrent use: concurrent queries use independent contexts.
type ExecutorContext struct {
	params map[string]common.Value
	cache  map[cacheKey]any
}

type cacheKey struct {
	owner Executor
	name  string
}

func NewExecutorContext(params map[string]common.Value) *ExecutorContext {
	if params == nil {
		params = make(map[string]common.Value)
	}
	return &ExecutorContext{
		params: params,
		cache:  make(map[cacheKey]any),
	}
}

// Parameter returns the value bound to name.
func (ctx *ExecutorContext) Parameter(name string) (common.Value, error) {
	v, ok := ctx.params[name]
	if !ok {
		return common.Value{}, common.NewError(common.UnboundParameterError, "parameter '%s' is not bound", name)
	}
	return v, nil
}

// SetParameter binds name for the following passes.
func (ctx *ExecutorContext) SetParameter(name string, v common.Value) {
	ctx.params[name] = v
}

// CacheGet returns the value owner stored under name during this pass.
func (ctx *ExecutorContext) CacheGet(owner Executor, name string) (any, bool) {
	v, ok := ctx.cache[cacheKey{owner, name}]
	return v, ok
}

// CacheSet stores a pass-scoped value for owner.
func (ctx *ExecutorContext) CacheSet(owner Executor, name string, v any) {
	ctx.cache[cacheKey{owner, name}] = v
}

// Reset ends the current pass: every cached value is dropped, parameters are kept.
func (ctx *ExecutorContext) Reset() {
	clear(ctx.cache)
}
