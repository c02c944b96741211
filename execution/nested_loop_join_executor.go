package execution

import (
	"mit.edu/dsg/qexec/storage"
)

// NestedLoopJoinExecutor compares every left row with every right row. It needs no capability from either
// side: the right child is restarted for each left row, within the same pass.
type NestedLoopJoinExecutor struct {
	joinBase

	// Runtime state
	ctx       *ExecutorContext
	leftRow   storage.Tuple
	rightOpen bool
	matched   bool
}

func (e *NestedLoopJoinExecutor) Init(ctx *ExecutorContext) error {
	if e.rightOpen {
		_ = e.right.Close()
		e.rightOpen = false
	}
	e.ctx = ctx
	e.err = nil
	return e.left.Init(ctx)
}

// keysMatch reports whether all join key pairs are equal and non-NULL.
func (e *NestedLoopJoinExecutor) keysMatch(left, right storage.Tuple) bool {
	for i, lc := range e.layout.leftKeys {
		lv, rv := left.GetValue(lc), right.GetValue(e.layout.rightKeys[i])
		if lv.IsNull() || rv.IsNull() || lv.Compare(rv) != 0 {
			return false
		}
	}
	return true
}

func (e *NestedLoopJoinExecutor) Next() bool {
	for {
		if e.err != nil {
			return false
		}

		if e.rightOpen {
			for e.right.Next() {
				if e.keysMatch(e.leftRow, e.right.Current()) {
					e.matched = true
					e.current = joinRows(e.leftRow, e.right.Current())
					return true
				}
			}
			e.rightOpen = false
			if e.err = e.right.Error(); e.err != nil {
				_ = e.right.Close()
				return false
			}
			if e.err = e.right.Close(); e.err != nil {
				return false
			}
			if !e.matched && e.outer() {
				e.emitUnmatched(e.leftRow)
				return true
			}
			continue
		}

		if !e.left.Next() {
			e.err = e.left.Error()
			return false
		}
		e.leftRow = e.left.Current()
		e.matched = false
		if keyOf(e.leftRow, e.layout.leftKeys).HasNull() {
			if e.outer() {
				e.emitUnmatched(e.leftRow)
				return true
			}
			continue
		}
		if e.err = e.right.Init(e.ctx); e.err != nil {
			return false
		}
		e.rightOpen = true
	}
}

func (e *NestedLoopJoinExecutor) Close() error {
	if e.rightOpen {
		_ = e.right.Close()
		e.rightOpen = false
	}
	return e.left.Close()
}
