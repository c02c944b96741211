package execution

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// RawExecutor enumerates an in-memory list of rows. It offers counting and positional access, and ordered
// access when its header declares an order without collations.
type RawExecutor struct {
	plan *planner.RawNode
	caps Capabilities
	iter *indexing.SliceIterator
}

// NewRawExecutor creates a RawExecutor. Every row must conform to the header and follow its order.
func NewRawExecutor(plan *planner.RawNode) (*RawExecutor, error) {
	header := plan.Header()
	for i, row := range plan.Rows {
		if !header.Conforms(row) {
			return nil, common.NewError(common.InvalidPlanError, "row %d %s does not conform to %s", i, row, header)
		}
	}

	source := &sortedSliceSource{rows: plan.Rows, md: header.IndexMetadata()}
	for i := 1; i < len(plan.Rows) && len(header.Order) > 0; i++ {
		if source.compare(i-1, source.md.KeyOf(plan.Rows[i])) > 0 {
			return nil, common.NewInternalError(common.OrderViolationError, "row %d %s breaks the declared order %s", i, plan.Rows[i], header)
		}
	}

	e := &RawExecutor{
		plan: plan,
		iter: indexing.NewSliceIterator(plan.Rows),
	}
	e.caps.Count = storageCounter(source)
	e.caps.Random = randomAccess{
		length: func(*ExecutorContext) (int, error) {
			return len(plan.Rows), nil
		},
		get: func(_ *ExecutorContext, i int) (storage.Tuple, error) {
			if i < 0 || i >= len(plan.Rows) {
				return storage.Tuple{}, common.NewInternalError(common.ColumnOutOfRangeError, "row %d out of range [0, %d)", i, len(plan.Rows))
			}
			return plan.Rows[i], nil
		},
	}
	if len(header.Order) > 0 && !hasCollation(header.Order) {
		e.caps.Ordered = source
	}
	return e, nil
}

func hasCollation(order []planner.OrderItem) bool {
	for _, o := range order {
		if o.Collation != "" {
			return true
		}
	}
	return false
}

func (e *RawExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *RawExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *RawExecutor) Init(*ExecutorContext) error {
	return e.iter.Rewind()
}

func (e *RawExecutor) Next() bool {
	return e.iter.Next()
}

func (e *RawExecutor) Current() storage.Tuple {
	return e.iter.Current()
}

func (e *RawExecutor) Error() error {
	return nil
}

func (e *RawExecutor) Close() error {
	return e.iter.Close()
}
