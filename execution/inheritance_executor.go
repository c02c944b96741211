package execution

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

type tagSet map[int64]struct{}

func newTagSet(tags []int64) tagSet {
	set := make(tagSet, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

func (s tagSet) contains(v common.Value) bool {
	if v.IsNull() {
		return false
	}
	_, ok := s[v.IntValue()]
	return ok
}

func checkTagColumn(h planner.Header, col int) error {
	if col < 0 || col >= h.NumColumns() {
		return common.NewInternalError(common.ColumnOutOfRangeError, "tag column %d out of range for %s", col, h)
	}
	if h.Columns[col].Type != common.IntType {
		return common.NewInternalError(common.KeyTypeMismatchError, "tag column %s must be an integer, got %s", h.Columns[col].Name, h.Columns[col].Type)
	}
	return nil
}

// FilterInheritorsExecutor keeps the rows of its child whose type tag is in a set: the virtual index of one
// type of a single-table hierarchy. It keeps the child's ordered access with excluded rows hidden.
type FilterInheritorsExecutor struct {
	plan  *planner.FilterInheritorsNode
	child Executor
	tags  tagSet
	caps  Capabilities
}

func NewFilterInheritorsExecutor(plan *planner.FilterInheritorsNode, child Executor) (*FilterInheritorsExecutor, error) {
	if err := checkTagColumn(child.PlanNode().Header(), plan.TagColumn); err != nil {
		return nil, err
	}
	e := &FilterInheritorsExecutor{
		plan:  plan,
		child: child,
		tags:  newTagSet(plan.Tags),
	}
	if source := child.Capabilities().Ordered; source != nil {
		e.caps.Ordered = &tagFilteredSource{src: source, keep: e.keep}
	}
	return e, nil
}

func (e *FilterInheritorsExecutor) keep(t storage.Tuple) bool {
	return e.tags.contains(t.GetValue(e.plan.TagColumn))
}

func (e *FilterInheritorsExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *FilterInheritorsExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *FilterInheritorsExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *FilterInheritorsExecutor) Init(ctx *ExecutorContext) error {
	return e.child.Init(ctx)
}

func (e *FilterInheritorsExecutor) Next() bool {
	for e.child.Next() {
		if e.keep(e.child.Current()) {
			return true
		}
	}
	return false
}

func (e *FilterInheritorsExecutor) Current() storage.Tuple {
	return e.child.Current()
}

func (e *FilterInheritorsExecutor) Error() error {
	return e.child.Error()
}

func (e *FilterInheritorsExecutor) Close() error {
	return e.child.Close()
}

type inheritorExtension struct {
	exec   Executor
	source indexing.OrderedSource
	tags   tagSet
	width  int
}

// JoinInheritorsExecutor widens each root row with the matching rows of the extension tables its type owns:
// the virtual index of a class-table hierarchy. Extensions are read by seeking the root key, so the root's
// order and ordered access carry over to the widened rows.
type JoinInheritorsExecutor struct {
	plan       *planner.JoinInheritorsNode
	root       Executor
	rootKeys   []int
	extensions []inheritorExtension
	caps       Capabilities

	// Runtime state
	current storage.Tuple
	err     error
}

// NewJoinInheritorsExecutor creates a JoinInheritorsExecutor. The root and every extension must offer ordered
// access, and each extension must be keyed by the root key.
func NewJoinInheritorsExecutor(plan *planner.JoinInheritorsNode, root Executor, extensions []Executor, logger log.Logger) (*JoinInheritorsExecutor, error) {
	if err := checkTagColumn(plan.Root.Header(), plan.TagColumn); err != nil {
		return nil, err
	}
	rootSource := root.Capabilities().Ordered
	if rootSource == nil {
		return nil, common.NewInternalError(common.MissingCapabilityError, "join inheritors requires an ordered root, %s has none", root.PlanNode())
	}
	rootMd := rootSource.Metadata()
	e := &JoinInheritorsExecutor{
		plan:     plan,
		root:     root,
		rootKeys: rootMd.KeyColumns,
	}
	rootKeyTypes := rootMd.KeyTypes()
	for i, ext := range extensions {
		source := ext.Capabilities().Ordered
		if source == nil {
			return nil, common.NewInternalError(common.MissingCapabilityError, "extension %s is not seekable", ext.PlanNode())
		}
		extTypes := source.Metadata().KeyTypes()
		if len(extTypes) < len(rootKeyTypes) {
			return nil, common.NewInternalError(common.KeyTypeMismatchError, "extension %s is keyed by %v, root by %v", ext.PlanNode(), extTypes, rootKeyTypes)
		}
		for k, t := range rootKeyTypes {
			if extTypes[k] != t {
				return nil, common.NewInternalError(common.KeyTypeMismatchError, "extension %s is keyed by %v, root by %v", ext.PlanNode(), extTypes, rootKeyTypes)
			}
		}
		e.extensions = append(e.extensions, inheritorExtension{
			exec:   ext,
			source: source,
			tags:   newTagSet(plan.Extensions[i].Tags),
			width:  ext.PlanNode().Header().NumColumns(),
		})
	}
	level.Debug(logger).Log("msg", "virtual index bound", "kind", plan.Kind(), "extensions", len(extensions))

	e.caps.Count = root.Capabilities().Count
	e.caps.Ordered = &joinedSource{
		root:  rootSource,
		widen: e.widen,
		md: &indexing.IndexMetadata{
			Schema:     plan.OutputSchema(),
			KeyColumns: rootMd.KeyColumns,
			Directions: rootMd.Directions,
		},
	}
	return e, nil
}

// widen appends the extension fields of a root row.
func (e *JoinInheritorsExecutor) widen(row storage.Tuple) (storage.Tuple, error) {
	tag := row.GetValue(e.plan.TagColumn)
	key := keyOf(row, e.rootKeys)
	for _, ext := range e.extensions {
		if !ext.tags.contains(tag) {
			row = storage.Concat(row, storage.Unavailable(ext.width))
			continue
		}
		res, err := ext.source.Seek(key)
		if err != nil {
			return storage.Tuple{}, err
		}
		if res.Type == indexing.SeekExact {
			row = storage.Concat(row, res.Tuple)
		} else {
			row = storage.Concat(row, storage.Unavailable(ext.width))
		}
	}
	return row, nil
}

func (e *JoinInheritorsExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *JoinInheritorsExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *JoinInheritorsExecutor) Children() []Executor {
	children := []Executor{e.root}
	for _, ext := range e.extensions {
		children = append(children, ext.exec)
	}
	return children
}

func (e *JoinInheritorsExecutor) Init(ctx *ExecutorContext) error {
	e.err = nil
	return e.root.Init(ctx)
}

func (e *JoinInheritorsExecutor) Next() bool {
	if e.err != nil {
		return false
	}
	if !e.root.Next() {
		e.err = e.root.Error()
		return false
	}
	e.current, e.err = e.widen(e.root.Current())
	return e.err == nil
}

func (e *JoinInheritorsExecutor) Current() storage.Tuple {
	return e.current
}

func (e *JoinInheritorsExecutor) Error() error {
	return e.err
}

func (e *JoinInheritorsExecutor) Close() error {
	return e.root.Close()
}

// joinedSource is the ordered access of a JoinInheritorsExecutor: the root's, with widened rows.
type joinedSource struct {
	root  indexing.OrderedSource
	widen func(storage.Tuple) (storage.Tuple, error)
	md    *indexing.IndexMetadata
}

func (s *joinedSource) Metadata() *indexing.IndexMetadata {
	return s.md
}

func (s *joinedSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	res, err := s.root.Seek(key)
	if err != nil || res.Type == indexing.SeekNone {
		return res, err
	}
	res.Tuple, err = s.widen(res.Tuple)
	return res, err
}

func (s *joinedSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	it, err := s.root.GetRange(r)
	if err != nil {
		return nil, err
	}
	return &mapIterator{TupleIterator: it, fn: s.widen}, nil
}

func (s *joinedSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	return s.root.GetKeys(r)
}

// MergeInheritorsExecutor merges sources holding disjoint rows of one hierarchy into a single stream in the
// common key order: the virtual index of a concrete-table hierarchy. Every source row is reshaped to the
// common header, with unavailable fields for columns the source lacks.
type MergeInheritorsExecutor struct {
	plan       *planner.MergeInheritorsNode
	sources    []Executor
	keyColumns []int
	directions []common.Direction
	verify     bool
	caps       Capabilities

	// Runtime state
	merge *mergeIterator
}

// NewMergeInheritorsExecutor creates a MergeInheritorsExecutor. Each source must be ordered like the common
// header once its columns are mapped.
func NewMergeInheritorsExecutor(plan *planner.MergeInheritorsNode, sources []Executor, cfg Config, logger log.Logger) (*MergeInheritorsExecutor, error) {
	header := plan.Header()
	if len(sources) == 0 {
		return nil, common.NewError(common.InvalidPlanError, "merge inheritors needs at least one source")
	}
	if len(plan.ColumnMaps) != len(sources) {
		return nil, common.NewError(common.InvalidPlanError, "merge inheritors has %d sources but %d column maps", len(sources), len(plan.ColumnMaps))
	}
	if hasCollation(header.Order) {
		return nil, common.NewError(common.InvalidPlanError, "merge inheritors cannot merge on a collated order: %s", header)
	}
	for s, source := range sources {
		if err := checkColumnMap(header, source.PlanNode().Header(), plan.ColumnMaps[s]); err != nil {
			return nil, err
		}
	}

	e := &MergeInheritorsExecutor{
		plan:       plan,
		sources:    sources,
		keyColumns: header.OrderColumns(),
		directions: header.OrderDirections(),
		verify:     cfg.VerifyOrdering,
	}
	level.Debug(logger).Log("msg", "virtual index bound", "kind", plan.Kind(), "sources", len(sources))

	counters := make([]Counter, 0, len(sources))
	ordered := make([]indexing.OrderedSource, 0, len(sources))
	for _, source := range sources {
		if c := source.Capabilities().Count; c != nil {
			counters = append(counters, c)
		}
		if o := source.Capabilities().Ordered; o != nil {
			ordered = append(ordered, o)
		}
	}
	if len(counters) == len(sources) {
		e.caps.Count = counterFunc(func(ctx *ExecutorContext) (int, error) {
			total := 0
			for _, c := range counters {
				n, err := c.Count(ctx)
				if err != nil {
					return 0, err
				}
				total += n
			}
			return total, nil
		})
	}
	if len(ordered) == len(sources) && len(e.keyColumns) > 0 {
		e.caps.Ordered = &mergedSource{
			exec:    e,
			sources: ordered,
			md:      header.IndexMetadata(),
		}
	}
	return e, nil
}

// checkColumnMap verifies that source feeds the common header through columnMap, with matching types and
// with the source ordered like the common header.
func checkColumnMap(target planner.Header, source planner.Header, columnMap []int) error {
	if len(columnMap) != target.NumColumns() {
		return common.NewError(common.InvalidPlanError, "column map %v does not cover %s", columnMap, target)
	}
	for c, sc := range columnMap {
		if sc < 0 {
			continue
		}
		if sc >= source.NumColumns() {
			return common.NewInternalError(common.ColumnOutOfRangeError, "column map %v out of range for %s", columnMap, source)
		}
		if source.Columns[sc].Type != target.Columns[c].Type {
			return common.NewInternalError(common.KeyTypeMismatchError, "column %s of %s is %s, expected %s",
				source.Columns[sc].Name, source, source.Columns[sc].Type, target.Columns[c].Type)
		}
	}
	if len(source.Order) < len(target.Order) {
		return common.NewInternalError(common.OrderViolationError, "source %s is not ordered like %s", source, target)
	}
	for i, item := range target.Order {
		want := planner.OrderItem{Column: columnMap[item.Column], Direction: item.Direction}
		if want.Column < 0 || source.Order[i] != want {
			return common.NewInternalError(common.OrderViolationError, "source %s is not ordered like %s", source, target)
		}
	}
	return nil
}

func (e *MergeInheritorsExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *MergeInheritorsExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *MergeInheritorsExecutor) Children() []Executor {
	return e.sources
}

func (e *MergeInheritorsExecutor) Init(ctx *ExecutorContext) error {
	inputs := make([]indexing.TupleIterator, len(e.sources))
	for i, source := range e.sources {
		if err := source.Init(ctx); err != nil {
			return err
		}
		inputs[i] = source
	}
	e.merge = newMergeIterator(inputs, e.plan.ColumnMaps, e.keyColumns, e.directions, false, e.verify, false)
	return nil
}

func (e *MergeInheritorsExecutor) Next() bool {
	common.Assert(e.merge != nil, "MergeInheritorsExecutor.Init() must be called before calling Next()")
	return e.merge.Next()
}

func (e *MergeInheritorsExecutor) Current() storage.Tuple {
	return e.merge.Current()
}

func (e *MergeInheritorsExecutor) Error() error {
	return e.merge.Error()
}

func (e *MergeInheritorsExecutor) Close() error {
	var firstErr error
	for _, source := range e.sources {
		if err := source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// mergedSource is the ordered access of a MergeInheritorsExecutor, merging the sources' own ordered access.
type mergedSource struct {
	exec    *MergeInheritorsExecutor
	sources []indexing.OrderedSource
	md      *indexing.IndexMetadata
}

func (s *mergedSource) Metadata() *indexing.IndexMetadata {
	return s.md
}

// Seek returns the smallest of the sources' answers.
func (s *mergedSource) Seek(key indexing.Key) (indexing.SeekResult, error) {
	best := indexing.SeekResult{Type: indexing.SeekNone}
	var bestKey indexing.Key
	for i, source := range s.sources {
		res, err := source.Seek(key)
		if err != nil {
			return indexing.SeekResult{}, err
		}
		if res.Type == indexing.SeekNone {
			continue
		}
		row := res.Tuple.Project(s.exec.plan.ColumnMaps[i])
		rowKey := s.md.KeyOf(row)
		if best.Type == indexing.SeekNone || rowKey.Compare(bestKey, s.md.Directions) < 0 {
			best, bestKey = indexing.Classify(s.md, row, key), rowKey
		}
	}
	return best, nil
}

func (s *mergedSource) GetRange(r indexing.Range) (indexing.TupleIterator, error) {
	inputs := make([]indexing.TupleIterator, 0, len(s.sources))
	for _, source := range s.sources {
		it, err := source.GetRange(r)
		if err != nil {
			for _, opened := range inputs {
				_ = opened.Close()
			}
			return nil, err
		}
		inputs = append(inputs, it)
	}
	backward := r.Direction == indexing.ScanDirectionBackward
	return newMergeIterator(inputs, s.exec.plan.ColumnMaps, s.exec.keyColumns, s.exec.directions, backward, s.exec.verify, true), nil
}

func (s *mergedSource) GetKeys(r indexing.Range) (indexing.KeyIterator, error) {
	it, err := s.GetRange(r)
	if err != nil {
		return nil, err
	}
	return indexing.KeysOf(it, s.md), nil
}
