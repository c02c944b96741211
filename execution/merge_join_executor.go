package execution

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/storage"
)

// MergeJoinExecutor joins two inputs ordered on the join key in a single forward pass over both.
// It buffers the right rows sharing one key value, so that repeated left keys join against the buffered
// group. Rows with a NULL key never match.
type MergeJoinExecutor struct {
	joinBase
	verify bool

	// Runtime state
	leftRow      storage.Tuple
	leftKey      indexing.Key
	lastLeftKey  indexing.Key
	group        []storage.Tuple
	groupKey     indexing.Key
	groupPos     int
	matching     bool
	rightRow     storage.Tuple
	rightKey     indexing.Key
	rightValid   bool
	rightStarted bool
}

func (e *MergeJoinExecutor) Init(ctx *ExecutorContext) error {
	e.err = nil
	e.leftKey, e.lastLeftKey = nil, nil
	e.group, e.groupKey, e.groupPos = nil, nil, 0
	e.matching = false
	e.rightKey = nil
	e.rightValid, e.rightStarted = false, false
	if err := e.left.Init(ctx); err != nil {
		return err
	}
	return e.right.Init(ctx)
}

func (e *MergeJoinExecutor) advanceLeft() bool {
	if !e.left.Next() {
		e.err = e.left.Error()
		return false
	}
	e.leftRow = e.left.Current()
	e.leftKey = keyOf(e.leftRow, e.layout.leftKeys)
	if e.verify && e.lastLeftKey != nil && e.leftKey.Compare(e.lastLeftKey, e.layout.directions) < 0 {
		e.err = common.NewInternalError(common.OrderViolationError, "left input of merge join is out of order: %s after %s", e.leftKey, e.lastLeftKey)
		return false
	}
	e.lastLeftKey = e.leftKey
	return true
}

func (e *MergeJoinExecutor) advanceRight() {
	if !e.right.Next() {
		e.rightValid = false
		e.err = e.right.Error()
		return
	}
	row := e.right.Current()
	key := keyOf(row, e.layout.rightKeys)
	if e.verify && e.rightKey != nil && key.Compare(e.rightKey, e.layout.directions) < 0 {
		e.rightValid = false
		e.err = common.NewInternalError(common.OrderViolationError, "right input of merge join is out of order: %s after %s", key, e.rightKey)
		return
	}
	e.rightRow, e.rightKey, e.rightValid = row, key, true
}

// loadGroup buffers the right rows whose key equals key, skipping every smaller right row.
func (e *MergeJoinExecutor) loadGroup(key indexing.Key) {
	e.group, e.groupKey = nil, nil
	if !e.rightStarted {
		e.rightStarted = true
		e.advanceRight()
	}
	for e.rightValid && (e.rightKey.HasNull() || e.rightKey.Compare(key, e.layout.directions) < 0) {
		e.advanceRight()
	}
	if !e.rightValid || e.rightKey.Compare(key, e.layout.directions) != 0 {
		return
	}
	e.groupKey = e.rightKey
	for e.rightValid && e.rightKey.Compare(e.groupKey, e.layout.directions) == 0 {
		e.group = append(e.group, e.rightRow)
		e.advanceRight()
	}
}

func (e *MergeJoinExecutor) Next() bool {
	for {
		if e.err != nil {
			return false
		}
		if e.matching {
			if e.groupPos < len(e.group) {
				e.current = joinRows(e.leftRow, e.group[e.groupPos])
				e.groupPos++
				return true
			}
			e.matching = false
		}

		if !e.advanceLeft() {
			return false
		}
		if e.leftKey.HasNull() {
			if e.outer() {
				e.emitUnmatched(e.leftRow)
				return true
			}
			continue
		}
		if e.groupKey == nil || e.groupKey.Compare(e.leftKey, e.layout.directions) != 0 {
			e.loadGroup(e.leftKey)
			if e.err != nil {
				return false
			}
		}
		if len(e.group) > 0 {
			e.matching, e.groupPos = true, 0
			continue
		}
		if e.outer() {
			e.emitUnmatched(e.leftRow)
			return true
		}
	}
}

func (e *MergeJoinExecutor) Close() error {
	e.group = nil
	lErr := e.left.Close()
	rErr := e.right.Close()
	if lErr != nil {
		return lErr
	}
	return rErr
}
