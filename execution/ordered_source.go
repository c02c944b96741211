package execution

import (
	"slices"
	"sort"

	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/storage"
)

// The ordered sources below carry a child's ordered-range access through the transformation of its parent
// executor. Each one presents rows exactly as the parent enumerates them.

// mapIterator transforms every row of an underlying iterator.
type mapIterator struct {
	indexing.TupleIterator
	fn  func(storage.Tuple) (storage.Tuple, error)
	cur storage.Tuple
	err error
}

func (it *mapIterator) Next() bool {
	if it.err != nil || !it.TupleIterator.Next() {
		return false
	}
	it.cur, it.err = it.fn(it.TupleIterator.Current())
	return it.err == nil
}

func (it *mapIterator) Current() storage.Tuple {
	return it.cur
}

func (it *mapIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.TupleIterator.Error()
}

// filterIterator yields the rows of an underlying iterator that satisfy keep.
type filterIterator struct {
	indexing.TupleIterator
	keep func(storage.Tuple) bool
}

func (it *filterIterator) Next() bool {
	for it.TupleIterator.Next() {
		if it.keep(it.TupleIterator.Current()) {
			return true
		}
	}
	return false
}

// projectedSource exposes a child source through a column projection that keeps every key column.
type projectedSource struct {
	src     indexing.OrderedSource
	columns []int
	md      *indexing.IndexMetadata
}

// projectOrdered returns the ordered source of src projected onto columns, or nil when the projection drops a
// key column.
func projectOrdered(src indexing.OrderedSource, columns []int, schema []common.Type) indexing.OrderedSource {
	childMd := src.Metadata()
	keyColumns := make([]int, len(childMd.KeyColumns))
	for i, col := range childMd.KeyColumns {
		keyColumns[i] = slices.Index(columns, col)
		if keyColumns[i] < 0 {
			return nil
		}
	}
	return &projectedSource{
		src:     src,
		columns: columns,
		md: &indexing.IndexMetadata{
			Schema:     schema,
			KeyColumns: keyColumns,
			Directions: childMd.Directions,
		},
	}
}

func (s *projectedSource) Metadata() *indexing.IndexMetadata {
	return s.md
}

func (s *projectedSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	res, err := s.src.Seek(key)
	if err != nil || res.Type == indexing.SeekNone {
		return res, err
	}
	res.Tuple = res.Tuple.Project(s.columns)
	return res, nil
}

func (s *projectedSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	it, err := s.src.GetRange(r)
	if err != nil {
		return nil, err
	}
	return &mapIterator{TupleIterator: it, fn: func(t storage.Tuple) (storage.Tuple, error) {
		return t.Project(s.columns), nil
	}}, nil
}

func (s *projectedSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	// Key values are unaffected by the projection.
	return s.src.GetKeys(r)
}

// restrictedSource limits a child source to a key range.
type restrictedSource struct {
	src indexing.OrderedSource
	rng indexing.Range
}

func (s *restrictedSource) Metadata() *indexing.IndexMetadata {
	return s.src.Metadata()
}

// Seek returns SeekNone for keys outside the range. Otherwise it returns the child's answer unchanged.
// A Nearest row may lie past the high bound, where GetRange would not reach it.
func (s *restrictedSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	if !s.rng.Contains(key, s.src.Metadata().Directions) {
		return indexing.SeekResult{Type: indexing.SeekNone}, nil
	}
	return s.src.Seek(key)
}

func (s *restrictedSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	return s.src.GetRange(r.Intersect(s.rng, s.src.Metadata().Directions))
}

func (s *restrictedSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	return s.src.GetKeys(r.Intersect(s.rng, s.src.Metadata().Directions))
}

// tagFilteredSource exposes the rows of a child source whose type tag belongs to a set.
type tagFilteredSource struct {
	src  indexing.OrderedSource
	keep func(storage.Tuple) bool
}

func (s *tagFilteredSource) Metadata() *indexing.IndexMetadata {
	return s.src.Metadata()
}

// Seek skips rows of excluded types: a seek landing on one reports the next included row instead.
func (s *tagFilteredSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	res, err := s.src.Seek(key)
	if err != nil || res.Type == indexing.SeekNone || s.keep(res.Tuple) {
		return res, err
	}
	return indexing.SeekFirst(s, key)
}

func (s *tagFilteredSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	it, err := s.src.GetRange(r)
	if err != nil {
		return nil, err
	}
	return &filterIterator{TupleIterator: it, keep: s.keep}, nil
}

func (s *tagFilteredSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	it, err := s.GetRange(r)
	if err != nil {
		return nil, err
	}
	return indexing.KeysOf(it, s.src.Metadata()), nil
}

// sortedSliceSource gives ordered access to an in-memory list of rows already sorted by md.
type sortedSliceSource struct {
	rows []storage.Tuple
	md   *indexing.IndexMetadata
}

func (s *sortedSliceSource) Metadata() *indexing.IndexMetadata {
	return s.md
}

func (s *sortedSliceSource) compare(i int, key indexing.Key) int {
	return s.md.KeyOf(s.rows[i]).Compare(key, s.md.Directions)
}

func (s *sortedSliceSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	i := sort.Search(len(s.rows), func(i int) bool {
		return s.compare(i, key) >= 0
	})
	if i == len(s.rows) {
		return indexing.SeekResult{Type: indexing.SeekNone}, nil
	}
	return indexing.Classify(s.md, s.rows[i], key), nil
}

// bounds returns the half-open slice of rows inside r.
func (s *sortedSliceSource) bounds(r indexing.Range) (int, int) {
	start, end := 0, len(s.rows)
	if !r.Low.IsUnbounded() {
		start = sort.Search(len(s.rows), func(i int) bool {
			cmp := s.compare(i, r.Low.Key)
			return cmp > 0 || (cmp == 0 && !r.Low.Exclusive)
		})
	}
	if !r.High.IsUnbounded() {
		end = sort.Search(len(s.rows), func(i int) bool {
			cmp := s.compare(i, r.High.Key)
			return cmp > 0 || (cmp == 0 && r.High.Exclusive)
		})
	}
	return start, max(start, end)
}

func (s *sortedSliceSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	start, end := s.bounds(r)
	rows := s.rows[start:end]
	if r.Direction == indexing.ScanDirectionBackward {
		rows = slices.Clone(rows)
		slices.Reverse(rows)
	}
	return indexing.NewSliceIterator(rows), nil
}

func (s *sortedSliceSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	it, err := s.GetRange(r)
	if err != nil {
		return nil, err
	}
	return indexing.KeysOf(it, s.md), nil
}

func (s *sortedSliceSource) Count() (int, error) {
	return len(s.rows), nil
}
