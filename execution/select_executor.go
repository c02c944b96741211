package execution

import (
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// SelectExecutor projects each input tuple through the node's column map.
// The child's ordered access survives when every key column is kept. Counting and positional access always
// survive.
type SelectExecutor struct {
	plan  *planner.SelectNode
	child Executor
	caps  Capabilities

	// Runtime state
	current storage.Tuple
	err     error
}

// NewSelectExecutor creates a new SelectExecutor. The column map must have been checked against the child's
// header.
func NewSelectExecutor(plan *planner.SelectNode, child Executor) *SelectExecutor {
	e := &SelectExecutor{
		plan:  plan,
		child: child,
	}
	childCaps := child.Capabilities()
	e.caps.Count = childCaps.Count
	if childCaps.Ordered != nil {
		e.caps.Ordered = projectOrdered(childCaps.Ordered, plan.Columns, plan.OutputSchema())
	}
	if random := childCaps.Random; random != nil {
		e.caps.Random = randomAccess{
			length: random.Len,
			get: func(ctx *ExecutorContext, i int) (storage.Tuple, error) {
				t, err := random.Get(ctx, i)
				if err != nil {
					return storage.Tuple{}, err
				}
				return t.Project(plan.Columns), nil
			},
		}
	}
	return e
}

func (e *SelectExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *SelectExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *SelectExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *SelectExecutor) Init(ctx *ExecutorContext) error {
	e.err = nil
	return e.child.Init(ctx)
}

func (e *SelectExecutor) Next() bool {
	if !e.child.Next() {
		e.err = e.child.Error()
		return false
	}
	e.current = e.child.Current().Project(e.plan.Columns)
	return true
}

func (e *SelectExecutor) Current() storage.Tuple {
	return e.current
}

func (e *SelectExecutor) Error() error {
	return e.err
}

func (e *SelectExecutor) Close() error {
	return e.child.Close()
}
