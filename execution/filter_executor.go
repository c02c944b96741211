package execution

import (
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// FilterExecutor filters tuples from its child executor based on a predicate. Rows for which the predicate
// is NULL are dropped. A filter gives no access path to its parent.
type FilterExecutor struct {
	plan  *planner.FilterNode
	child Executor
}

// NewFilter creates a new FilterExecutor executor. The predicate must have been checked against the child's
// header.
func NewFilter(plan *planner.FilterNode, child Executor) *FilterExecutor {
	return &FilterExecutor{
		plan:  plan,
		child: child,
	}
}

func (e *FilterExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *FilterExecutor) Capabilities() Capabilities {
	return Capabilities{}
}

func (e *FilterExecutor) Children() []Executor {
	return []Executor{e.child}
}

// Init initializes the child.
func (e *FilterExecutor) Init(ctx *ExecutorContext) error {
	return e.child.Init(ctx)
}

func (e *FilterExecutor) Next() bool {
	for e.child.Next() {
		res := e.plan.Predicate.Eval(e.child.Current())

		if planner.ExprIsTrue(res) {
			return true
		}
	}
	return false
}

func (e *FilterExecutor) Current() storage.Tuple {
	return e.child.Current()
}

func (e *FilterExecutor) Error() error {
	return e.child.Error()
}

func (e *FilterExecutor) Close() error {
	return e.child.Close()
}
