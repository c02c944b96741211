package execution

import (
	"container/heap"

	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/storage"
)

// mergeCursor is one input of a k-way merge with its pending row.
type mergeCursor struct {
	iter    indexing.TupleIterator
	columns []int
	index   int
	row     storage.Tuple
	key     indexing.Key
}

// cursorHeap implements heap.Interface, smallest pending key on top. Ties go to the earlier input.
type cursorHeap struct {
	cursors    []*mergeCursor
	directions []common.Direction
	sign       int
}

func (h *cursorHeap) Len() int { return len(h.cursors) }

func (h *cursorHeap) Swap(i, j int) { h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i] }

func (h *cursorHeap) Less(i, j int) bool {
	a, b := h.cursors[i], h.cursors[j]
	if cmp := a.key.Compare(b.key, h.directions) * h.sign; cmp != 0 {
		return cmp < 0
	}
	return a.index < b.index
}

func (h *cursorHeap) Push(x any) {
	h.cursors = append(h.cursors, x.(*mergeCursor))
}

func (h *cursorHeap) Pop() any {
	old := h.cursors
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.cursors = old[0 : n-1]
	return item
}

// mergeIterator interleaves inputs that are each ordered on the same key into one ordered stream. Rows of
// input i are first projected through columns[i], and keys are read from the projected rows.
type mergeIterator struct {
	heap        *cursorHeap
	all         []*mergeCursor
	keyColumns  []int
	verify      bool
	closeInputs bool

	started bool
	current storage.Tuple
	err     error
}

// newMergeIterator merges inputs. With backward set, the inputs run against the key directions. With
// closeInputs set, Close closes every input.
func newMergeIterator(inputs []indexing.TupleIterator, columns [][]int, keyColumns []int, directions []common.Direction,
	backward bool, verify bool, closeInputs bool) *mergeIterator {
	sign := 1
	if backward {
		sign = -1
	}
	it := &mergeIterator{
		heap:        &cursorHeap{directions: directions, sign: sign},
		keyColumns:  keyColumns,
		verify:      verify,
		closeInputs: closeInputs,
	}
	for i, input := range inputs {
		it.all = append(it.all, &mergeCursor{iter: input, columns: columns[i], index: i})
	}
	return it
}

// advance moves c to its next row. It returns false when c is exhausted or failed.
func (it *mergeIterator) advance(c *mergeCursor) bool {
	if !c.iter.Next() {
		it.err = c.iter.Error()
		return false
	}
	row := c.iter.Current().Project(c.columns)
	key := keyOf(row, it.keyColumns)
	if it.verify && c.key != nil && key.Compare(c.key, it.heap.directions)*it.heap.sign < 0 {
		it.err = common.NewInternalError(common.OrderViolationError, "merge input %d is out of order: %s after %s", c.index, key, c.key)
		return false
	}
	c.row, c.key = row, key
	return true
}

func (it *mergeIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		for _, c := range it.all {
			if it.advance(c) {
				heap.Push(it.heap, c)
			} else if it.err != nil {
				return false
			}
		}
	} else if it.heap.Len() > 0 {
		if it.advance(it.heap.cursors[0]) {
			heap.Fix(it.heap, 0)
		} else if it.err != nil {
			return false
		} else {
			heap.Pop(it.heap)
		}
	}
	if it.heap.Len() == 0 {
		return false
	}
	it.current = it.heap.cursors[0].row
	return true
}

func (it *mergeIterator) Current() storage.Tuple {
	return it.current
}

func (it *mergeIterator) Error() error {
	return it.err
}

func (it *mergeIterator) Close() error {
	it.heap.cursors = nil
	if !it.closeInputs {
		return nil
	}
	var firstErr error
	for _, c := range it.all {
		if err := c.iter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
