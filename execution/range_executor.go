package execution

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// RangeExecutor enumerates the part of its child's key order that falls within a range. It reads the
// child through its ordered access and never enumerates the child itself.
// A forward range offers the child's ordered access restricted to the range. A backward range offers none.
type RangeExecutor struct {
	plan   *planner.RangeNode
	child  Executor
	source indexing.OrderedSource
	caps   Capabilities

	// Runtime state
	iter indexing.TupleIterator
	err  error
}

// NewRangeExecutor creates a RangeExecutor. The child must offer ordered access.
func NewRangeExecutor(plan *planner.RangeNode, child Executor) (*RangeExecutor, error) {
	source := child.Capabilities().Ordered
	if source == nil {
		return nil, common.NewInternalError(common.MissingCapabilityError, "range requires ordered access, %s has none", child.PlanNode())
	}
	e := &RangeExecutor{
		plan:   plan,
		child:  child,
		source: source,
	}
	if plan.Range.Direction == indexing.ScanDirectionForward {
		e.caps.Ordered = &restrictedSource{src: source, rng: plan.Range}
	}
	return e, nil
}

func (e *RangeExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *RangeExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *RangeExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *RangeExecutor) Init(*ExecutorContext) error {
	if e.iter != nil {
		_ = e.iter.Close()
	}
	e.iter, e.err = e.source.GetRange(e.plan.Range)
	return e.err
}

func (e *RangeExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	common.Assert(e.iter != nil, "RangeExecutor.Init() must be called before calling Next()")
	if !e.iter.Next() {
		e.err = e.iter.Error()
		return false
	}
	return true
}

func (e *RangeExecutor) Current() storage.Tuple {
	return e.iter.Current()
}

func (e *RangeExecutor) Error() error {
	return e.err
}

func (e *RangeExecutor) Close() error {
	if e.iter == nil {
		return nil
	}
	err := e.iter.Close()
	e.iter = nil
	return err
}
