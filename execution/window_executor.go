package execution

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

const windowCountCacheKey = "count"

// resolveCount evaluates a skip or take count for the pass of ctx. The result is cached so that every use
// within a pass sees the same value.
func resolveCount(ctx *ExecutorContext, owner Executor, c planner.Count, child Executor) (int, error) {
	if cached, ok := ctx.CacheGet(owner, windowCountCacheKey); ok {
		return cached.(int), nil
	}
	var n int
	switch c.Kind {
	case planner.CountConstant:
		n = c.Value
	case planner.CountParameter:
		v, err := ctx.Parameter(c.Parameter)
		if err != nil {
			return 0, err
		}
		if v.Type() != common.IntType || v.IsNull() {
			return 0, common.NewError(common.UnboundParameterError, "parameter '%s' must be a non-null integer, got %s", c.Parameter, v)
		}
		n = int(v.IntValue())
	case planner.CountFromChild:
		counter := child.Capabilities().Count
		common.Assert(counter != nil, "count of %s requires a countable child", owner.PlanNode())
		total, err := counter.Count(ctx)
		if err != nil {
			return 0, err
		}
		n = total + c.Delta
	}
	n = max(n, 0)
	ctx.CacheSet(owner, windowCountCacheKey, n)
	return n, nil
}

// SkipExecutor drops the first rows of its child. When the child offers positional access it jumps over
// them instead of reading them.
type SkipExecutor struct {
	plan  *planner.SkipNode
	child Executor
	caps  Capabilities

	// Runtime state
	ctx     *ExecutorContext
	random  RandomAccess
	toSkip  int
	pos     int
	length  int
	current storage.Tuple
	err     error
}

func NewSkipExecutor(plan *planner.SkipNode, child Executor) *SkipExecutor {
	e := &SkipExecutor{
		plan:   plan,
		child:  child,
		random: child.Capabilities().Random,
	}
	if counter := child.Capabilities().Count; counter != nil {
		e.caps.Count = counterFunc(func(ctx *ExecutorContext) (int, error) {
			n, err := resolveCount(ctx, e, plan.Count, child)
			if err != nil {
				return 0, err
			}
			total, err := counter.Count(ctx)
			return max(total-n, 0), err
		})
	}
	if random := e.random; random != nil {
		e.caps.Random = randomAccess{
			length: func(ctx *ExecutorContext) (int, error) {
				n, err := resolveCount(ctx, e, plan.Count, child)
				if err != nil {
					return 0, err
				}
				total, err := random.Len(ctx)
				return max(total-n, 0), err
			},
			get: func(ctx *ExecutorContext, i int) (storage.Tuple, error) {
				n, err := resolveCount(ctx, e, plan.Count, child)
				if err != nil {
					return storage.Tuple{}, err
				}
				return random.Get(ctx, i+n)
			},
		}
	}
	return e
}

func (e *SkipExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *SkipExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *SkipExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *SkipExecutor) Init(ctx *ExecutorContext) error {
	e.ctx = ctx
	e.err = nil
	n, err := resolveCount(ctx, e, e.plan.Count, e.child)
	if err != nil {
		return err
	}
	if e.random != nil {
		e.pos = n - 1
		e.length, err = e.random.Len(ctx)
		return err
	}
	e.toSkip = n
	return e.child.Init(ctx)
}

func (e *SkipExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	if e.random != nil {
		if e.pos < e.length {
			e.pos++
		}
		if e.pos >= e.length {
			return false
		}
		e.current, e.err = e.random.Get(e.ctx, e.pos)
		return e.err == nil
	}
	for ; e.toSkip > 0; e.toSkip-- {
		if !e.child.Next() {
			e.err = e.child.Error()
			return false
		}
	}
	if !e.child.Next() {
		e.err = e.child.Error()
		return false
	}
	e.current = e.child.Current()
	return true
}

func (e *SkipExecutor) Current() storage.Tuple {
	return e.current
}

func (e *SkipExecutor) Error() error {
	return e.err
}

func (e *SkipExecutor) Close() error {
	if e.random != nil {
		return nil
	}
	return e.child.Close()
}

// TakeExecutor limits the number of tuples returned by the child executor. It stops pulling from the child
// once the limit is reached.
type TakeExecutor struct {
	plan  *planner.TakeNode
	child Executor
	caps  Capabilities

	limit      int
	numEmitted int
}

func NewTakeExecutor(plan *planner.TakeNode, child Executor) *TakeExecutor {
	e := &TakeExecutor{
		plan:  plan,
		child: child,
	}
	if counter := child.Capabilities().Count; counter != nil {
		e.caps.Count = counterFunc(func(ctx *ExecutorContext) (int, error) {
			n, err := resolveCount(ctx, e, plan.Count, child)
			if err != nil {
				return 0, err
			}
			total, err := counter.Count(ctx)
			return min(total, n), err
		})
	}
	if random := child.Capabilities().Random; random != nil {
		e.caps.Random = randomAccess{
			length: func(ctx *ExecutorContext) (int, error) {
				n, err := resolveCount(ctx, e, plan.Count, child)
				if err != nil {
					return 0, err
				}
				total, err := random.Len(ctx)
				return min(total, n), err
			},
			get: func(ctx *ExecutorContext, i int) (storage.Tuple, error) {
				n, err := resolveCount(ctx, e, plan.Count, child)
				if err != nil {
					return storage.Tuple{}, err
				}
				if i >= n {
					return storage.Tuple{}, common.NewInternalError(common.ColumnOutOfRangeError, "row %d out of range [0, %d)", i, n)
				}
				return random.Get(ctx, i)
			},
		}
	}
	return e
}

func (e *TakeExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *TakeExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *TakeExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *TakeExecutor) Init(ctx *ExecutorContext) error {
	e.numEmitted = 0
	limit, err := resolveCount(ctx, e, e.plan.Count, e.child)
	if err != nil {
		return err
	}
	e.limit = limit
	return e.child.Init(ctx)
}

func (e *TakeExecutor) Next() bool {
	if e.numEmitted >= e.limit {
		return false
	}

	if e.child.Next() {
		e.numEmitted++
		return true
	}
	return false
}

func (e *TakeExecutor) Current() storage.Tuple {
	return e.child.Current()
}

func (e *TakeExecutor) Error() error {
	return e.child.Error()
}

func (e *TakeExecutor) Close() error {
	return e.child.Close()
}
