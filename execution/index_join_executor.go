package execution

import (
	"mit.edu/dsg/qexec/indexing"
)

// IndexJoinExecutor implements an index nested loop join.
// It iterates over the left child, and for each tuple, seeks the right operand's ordered source with the
// tuple's join key. The right operand is never enumerated.
type IndexJoinExecutor struct {
	joinBase
	source indexing.OrderedSource

	// Runtime state
	iter    indexing.TupleIterator
	matched bool
}

func (e *IndexJoinExecutor) Init(ctx *ExecutorContext) error {
	e.closeProbe()
	e.err = nil
	return e.left.Init(ctx)
}

func (e *IndexJoinExecutor) closeProbe() {
	if e.iter != nil {
		_ = e.iter.Close()
		e.iter = nil
	}
}

func (e *IndexJoinExecutor) Next() bool {
	for {
		if e.err != nil {
			return false
		}

		// Emit pending matches from the last probe
		if e.iter != nil {
			if e.iter.Next() {
				e.matched = true
				e.current = joinRows(e.left.Current(), e.iter.Current())
				return true
			}
			e.err = e.iter.Error()
			e.closeProbe()
			if e.err != nil {
				return false
			}
			if !e.matched && e.outer() {
				e.emitUnmatched(e.left.Current())
				return true
			}
			continue
		}

		if !e.left.Next() {
			e.err = e.left.Error()
			return false
		}
		e.matched = false
		key := keyOf(e.left.Current(), e.layout.leftKeys)
		if key.HasNull() {
			if e.outer() {
				e.emitUnmatched(e.left.Current())
				return true
			}
			continue
		}
		e.iter, e.err = e.source.GetRange(indexing.PointRange(key))
	}
}

func (e *IndexJoinExecutor) Close() error {
	e.closeProbe()
	return e.left.Close()
}
