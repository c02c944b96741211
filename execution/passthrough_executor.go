package execution

import (
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// PassthroughExecutor implements the nodes that do not touch rows: aliases, transparent boundaries and
// substituting nodes. It delegates enumeration and every capability to the executor it wraps.
type PassthroughExecutor struct {
	plan  planner.PlanNode
	inner Executor
}

func NewPassthroughExecutor(plan planner.PlanNode, inner Executor) *PassthroughExecutor {
	return &PassthroughExecutor{
		plan:  plan,
		inner: inner,
	}
}

func (e *PassthroughExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *PassthroughExecutor) Capabilities() Capabilities {
	return e.inner.Capabilities()
}

func (e *PassthroughExecutor) Children() []Executor {
	return []Executor{e.inner}
}

func (e *PassthroughExecutor) Init(ctx *ExecutorContext) error {
	return e.inner.Init(ctx)
}

func (e *PassthroughExecutor) Next() bool {
	return e.inner.Next()
}

func (e *PassthroughExecutor) Current() storage.Tuple {
	return e.inner.Current()
}

func (e *PassthroughExecutor) Error() error {
	return e.inner.Error()
}

func (e *PassthroughExecutor) Close() error {
	return e.inner.Close()
}
