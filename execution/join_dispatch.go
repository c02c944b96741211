package execution

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// joinLayout is the key layout a join algorithm works with.
type joinLayout struct {
	// leftKeys and rightKeys hold the join key columns of each side, position by position.
	leftKeys  []int
	rightKeys []int
	// directions orients the key positions for merging.
	directions []common.Direction
}

// mergeLayout checks whether both sides are ordered on exactly the join key, with the order columns paired
// position by position and the same directions. It returns the keys in order position.
func mergeLayout(keys []planner.KeyPair, left, right *indexing.IndexMetadata) (joinLayout, bool) {
	n := len(left.KeyColumns)
	if n == 0 || n != len(right.KeyColumns) || n != len(keys) {
		return joinLayout{}, false
	}
	used := make([]bool, len(keys))
	layout := joinLayout{directions: make([]common.Direction, n)}
	for i := 0; i < n; i++ {
		if left.Direction(i) != right.Direction(i) {
			return joinLayout{}, false
		}
		pair := planner.KeyPair{Left: left.KeyColumns[i], Right: right.KeyColumns[i]}
		found := false
		for j, k := range keys {
			if !used[j] && k == pair {
				used[j], found = true, true
				break
			}
		}
		if !found {
			return joinLayout{}, false
		}
		layout.leftKeys = append(layout.leftKeys, pair.Left)
		layout.rightKeys = append(layout.rightKeys, pair.Right)
		layout.directions[i] = left.Direction(i)
	}
	return layout, true
}

// probeLayout checks whether the right side can be probed by the full join key: the leading key columns
// of its ordered source must be exactly the right join columns, in any arrangement. It returns the probe key
// built from left columns in the right source's key order.
func probeLayout(keys []planner.KeyPair, right *indexing.IndexMetadata) (joinLayout, bool) {
	if len(keys) == 0 || len(right.KeyColumns) < len(keys) {
		return joinLayout{}, false
	}
	used := make([]bool, len(keys))
	var layout joinLayout
	for _, col := range right.KeyColumns[:len(keys)] {
		found := false
		for j, k := range keys {
			if !used[j] && k.Right == col {
				used[j], found = true, true
				layout.leftKeys = append(layout.leftKeys, k.Left)
				layout.rightKeys = append(layout.rightKeys, k.Right)
				break
			}
		}
		if !found {
			return joinLayout{}, false
		}
	}
	return layout, true
}

// leftOrderedByKey reports whether the left side is ordered by at least the join key columns, in key order.
func leftOrderedByKey(keys []planner.KeyPair, left *indexing.IndexMetadata) bool {
	if len(keys) == 0 || len(left.KeyColumns) < len(keys) {
		return false
	}
	for i, k := range keys {
		if left.KeyColumns[i] != k.Left {
			return false
		}
	}
	return true
}

// pairLayout keeps the key pairs as given, for the nested-loop join.
func pairLayout(keys []planner.KeyPair) joinLayout {
	var layout joinLayout
	for _, k := range keys {
		layout.leftKeys = append(layout.leftKeys, k.Left)
		layout.rightKeys = append(layout.rightKeys, k.Right)
	}
	return layout
}

// checkJoinKeys validates the key pairs against the operand headers.
func checkJoinKeys(plan *planner.JoinNode) error {
	lh, rh := plan.Left.Header(), plan.Right.Header()
	for _, k := range plan.Keys {
		if k.Left < 0 || k.Left >= lh.NumColumns() || k.Right < 0 || k.Right >= rh.NumColumns() {
			return common.NewInternalError(common.ColumnOutOfRangeError, "join key %d=%d out of range for %s and %s", k.Left, k.Right, lh, rh)
		}
		if lt, rt := lh.Columns[k.Left].Type, rh.Columns[k.Right].Type; lt != rt {
			return common.NewInternalError(common.KeyTypeMismatchError, "join key %s=%s compares %s with %s",
				lh.Columns[k.Left].Name, rh.Columns[k.Right].Name, lt, rt)
		}
	}
	return nil
}

// chooseJoinAlgorithm picks the cheapest algorithm the operands support, or verifies that a forced
// algorithm is supported.
func chooseJoinAlgorithm(plan *planner.JoinNode, left, right Executor) (planner.JoinAlgorithm, joinLayout, error) {
	lo, ro := left.Capabilities().Ordered, right.Capabilities().Ordered

	switch plan.Algorithm {
	case planner.AlgorithmNestedLoop:
		return planner.AlgorithmNestedLoop, pairLayout(plan.Keys), nil
	case planner.AlgorithmMerge:
		if lo != nil && ro != nil {
			if layout, ok := mergeLayout(plan.Keys, lo.Metadata(), ro.Metadata()); ok {
				return planner.AlgorithmMerge, layout, nil
			}
		}
		return 0, joinLayout{}, common.NewInternalError(common.MissingCapabilityError, "merge join requires both operands ordered on the join key: %s", plan)
	case planner.AlgorithmIndex:
		if ro != nil {
			if layout, ok := probeLayout(plan.Keys, ro.Metadata()); ok {
				return planner.AlgorithmIndex, layout, nil
			}
		}
		return 0, joinLayout{}, common.NewInternalError(common.MissingCapabilityError, "index join requires the right operand to be seekable by the join key: %s", plan)
	}

	if lo == nil || ro == nil {
		return planner.AlgorithmNestedLoop, pairLayout(plan.Keys), nil
	}
	if layout, ok := mergeLayout(plan.Keys, lo.Metadata(), ro.Metadata()); ok {
		return planner.AlgorithmMerge, layout, nil
	}
	if leftOrderedByKey(plan.Keys, lo.Metadata()) {
		if layout, ok := probeLayout(plan.Keys, ro.Metadata()); ok {
			return planner.AlgorithmIndex, layout, nil
		}
	}
	return planner.AlgorithmNestedLoop, pairLayout(plan.Keys), nil
}

// NewJoinExecutor binds a join node to the algorithm its operands support.
func NewJoinExecutor(plan *planner.JoinNode, left, right Executor, cfg Config, metrics *Metrics, logger log.Logger) (Executor, error) {
	if err := checkJoinKeys(plan); err != nil {
		return nil, err
	}
	algorithm, layout, err := chooseJoinAlgorithm(plan, left, right)
	if err != nil {
		return nil, err
	}
	metrics.joinAlgorithm.WithLabelValues(algorithm.String()).Inc()
	level.Debug(logger).Log("msg", "join bound", "join", plan.String(), "requested", plan.Algorithm, "algorithm", algorithm,
		"left", left.Capabilities(), "right", right.Capabilities())

	base := joinBase{
		plan:       plan,
		left:       left,
		right:      right,
		layout:     layout,
		algorithm:  algorithm,
		rightWidth: plan.Right.Header().NumColumns(),
	}
	switch algorithm {
	case planner.AlgorithmMerge:
		return &MergeJoinExecutor{joinBase: base, verify: cfg.VerifyOrdering}, nil
	case planner.AlgorithmIndex:
		return &IndexJoinExecutor{joinBase: base, source: right.Capabilities().Ordered}, nil
	default:
		return &NestedLoopJoinExecutor{joinBase: base}, nil
	}
}

// joinBase holds what the join algorithms share.
type joinBase struct {
	plan       *planner.JoinNode
	left       Executor
	right      Executor
	layout     joinLayout
	algorithm  planner.JoinAlgorithm
	rightWidth int

	current storage.Tuple
	err     error
}

func (e *joinBase) PlanNode() planner.PlanNode {
	return e.plan
}

// Capabilities of a join are empty: a join yields no ordered, countable or positional access.
func (e *joinBase) Capabilities() Capabilities {
	return Capabilities{}
}

func (e *joinBase) Children() []Executor {
	return []Executor{e.left, e.right}
}

func (e *joinBase) Describe() string {
	return fmt.Sprintf("%s via %s", e.plan, e.algorithm)
}

func (e *joinBase) Current() storage.Tuple {
	return e.current
}

func (e *joinBase) Error() error {
	return e.err
}

func (e *joinBase) outer() bool {
	return e.plan.Type == planner.LeftOuterJoin
}

// emitUnmatched sets the output to a left row with an all-unavailable right side.
func (e *joinBase) emitUnmatched(left storage.Tuple) {
	e.current = storage.Concat(left, storage.Unavailable(e.rightWidth))
}

func keyOf(t storage.Tuple, columns []int) indexing.Key {
	key := make(indexing.Key, len(columns))
	for i, col := range columns {
		key[i] = t.GetValue(col)
	}
	return key
}

func joinRows(left, right storage.Tuple) storage.Tuple {
	return storage.Concat(left, right)
}
