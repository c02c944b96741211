package execution

import (
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// IndexScanExecutor enumerates a table in the order of one of its indexes. The index itself is the executor's
// ordered source.
type IndexScanExecutor struct {
	plan  *planner.IndexScanNode
	index *indexing.MemBTreeIndex
	caps  Capabilities

	// Runtime state
	iter indexing.TupleIterator
	err  error
}

func NewIndexScanExecutor(plan *planner.IndexScanNode, index *indexing.MemBTreeIndex) *IndexScanExecutor {
	return &IndexScanExecutor{
		plan:  plan,
		index: index,
		caps: Capabilities{
			Ordered: index,
			Count:   storageCounter(index),
		},
	}
}

func (e *IndexScanExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *IndexScanExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *IndexScanExecutor) Init(*ExecutorContext) error {
	if e.iter != nil {
		_ = e.iter.Close()
	}
	e.iter, e.err = e.index.GetRange(indexing.FullRange)
	return e.err
}

func (e *IndexScanExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	common.Assert(e.iter != nil, "IndexScanExecutor.Init() must be called before calling Next()")
	if !e.iter.Next() {
		e.err = e.iter.Error()
		return false
	}
	return true
}

func (e *IndexScanExecutor) Current() storage.Tuple {
	return e.iter.Current()
}

func (e *IndexScanExecutor) Error() error {
	return e.err
}

func (e *IndexScanExecutor) Close() error {
	if e.iter == nil {
		return nil
	}
	err := e.iter.Close()
	e.iter = nil
	return err
}
