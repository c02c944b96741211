package execution

import (
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

const sortedRowsCacheKey = "sorted"

// SortExecutor sorts the input tuples by the node's order items.
//
// When the child is already ordered compatibly the executor passes rows through untouched and keeps the
// child's capabilities. Otherwise it is a blocking operator: it buffers and sorts the child's rows once per
// pass, on the first Next or on the first count or positional access, and offers both of those on the buffer.
type SortExecutor struct {
	plan        *planner.SortNode
	child       Executor
	keys        []sortKey
	passthrough bool
	rowLimit    int
	caps        Capabilities
	metrics     *Metrics
	logger      log.Logger

	// Runtime state
	ctx          *ExecutorContext
	sortedTuples []storage.Tuple
	currentIndex int
	err          error
}

type sortKey struct {
	column    int
	direction common.Direction
	collator  *collate.Collator
}

func NewSortExecutor(plan *planner.SortNode, child Executor, cfg Config, metrics *Metrics, logger log.Logger) (*SortExecutor, error) {
	e := &SortExecutor{
		plan:        plan,
		child:       child,
		passthrough: child.PlanNode().Header().Satisfies(plan.OrderBy),
		rowLimit:    cfg.SortRowLimit,
		metrics:     metrics,
		logger:      logger,
	}
	for _, item := range plan.OrderBy {
		key := sortKey{column: item.Column, direction: item.Direction}
		tag, err := cfg.resolveCollation(item.Collation)
		if err != nil {
			return nil, err
		}
		if tag != "" {
			key.collator = collate.New(language.Make(tag))
		}
		e.keys = append(e.keys, key)
	}

	if e.passthrough {
		e.caps = child.Capabilities()
		return e, nil
	}
	e.caps = Capabilities{
		Count: counterFunc(func(ctx *ExecutorContext) (int, error) {
			rows, err := e.materialize(ctx)
			return len(rows), err
		}),
		Random: randomAccess{
			length: func(ctx *ExecutorContext) (int, error) {
				rows, err := e.materialize(ctx)
				return len(rows), err
			},
			get: func(ctx *ExecutorContext, i int) (storage.Tuple, error) {
				rows, err := e.materialize(ctx)
				if err != nil {
					return storage.Tuple{}, err
				}
				if i < 0 || i >= len(rows) {
					return storage.Tuple{}, common.NewInternalError(common.ColumnOutOfRangeError, "row %d out of range [0, %d)", i, len(rows))
				}
				return rows[i], nil
			},
		},
	}
	return e, nil
}

func (e *SortExecutor) PlanNode() planner.PlanNode {
	return e.plan
}

func (e *SortExecutor) Capabilities() Capabilities {
	return e.caps
}

func (e *SortExecutor) Children() []Executor {
	return []Executor{e.child}
}

func (e *SortExecutor) Describe() string {
	if e.passthrough {
		return e.plan.String() + " (presorted)"
	}
	return e.plan.String()
}

func (e *SortExecutor) Init(ctx *ExecutorContext) error {
	if e.passthrough {
		return e.child.Init(ctx)
	}
	e.sortedTuples = nil
	e.currentIndex = -1
	e.ctx = ctx
	e.err = nil
	return nil
}

func (e *SortExecutor) compare(t1, t2 storage.Tuple) int {
	for _, key := range e.keys {
		v1 := t1.GetValue(key.column)
		v2 := t2.GetValue(key.column)
		var cmp int
		if key.collator != nil && !v1.IsNull() && !v2.IsNull() {
			cmp = key.collator.CompareString(v1.StringValue(), v2.StringValue())
		} else {
			cmp = v1.Compare(v2)
		}
		if cmp = key.direction.Apply(cmp); cmp != 0 {
			return cmp
		}
	}
	return 0
}

// materialize returns the sorted rows of the pass of ctx, reading the child the first time only.
func (e *SortExecutor) materialize(ctx *ExecutorContext) ([]storage.Tuple, error) {
	if cached, ok := ctx.CacheGet(e, sortedRowsCacheKey); ok {
		return cached.([]storage.Tuple), nil
	}
	if err := e.child.Init(ctx); err != nil {
		return nil, err
	}
	rows := make([]storage.Tuple, 0)
	for e.child.Next() {
		if e.rowLimit > 0 && len(rows) >= e.rowLimit {
			_ = e.child.Close()
			return nil, common.NewError(common.MemoryLimitError, "sort exceeds the limit of %d buffered rows", e.rowLimit)
		}
		rows = append(rows, e.child.Current())
	}
	if err := e.child.Error(); err != nil {
		_ = e.child.Close()
		return nil, err
	}
	if err := e.child.Close(); err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return e.compare(rows[i], rows[j]) < 0
	})
	e.metrics.sortRows.Add(float64(len(rows)))
	level.Debug(e.logger).Log("msg", "sort materialized", "order", e.plan.String(), "rows", len(rows))
	ctx.CacheSet(e, sortedRowsCacheKey, rows)
	return rows, nil
}

func (e *SortExecutor) Next() bool {
	if e.passthrough {
		return e.child.Next()
	}
	if e.err != nil {
		return false
	}
	if e.sortedTuples == nil {
		e.sortedTuples, e.err = e.materialize(e.ctx)
		if e.err != nil {
			return false
		}
	}
	if e.currentIndex < len(e.sortedTuples) {
		e.currentIndex++
	}
	return e.currentIndex < len(e.sortedTuples)
}

func (e *SortExecutor) Current() storage.Tuple {
	if e.passthrough {
		return e.child.Current()
	}
	return e.sortedTuples[e.currentIndex]
}

func (e *SortExecutor) Error() error {
	if e.passthrough {
		return e.child.Error()
	}
	return e.err
}

func (e *SortExecutor) Close() error {
	if e.passthrough {
		return e.child.Close()
	}
	e.sortedTuples = nil
	return nil
}
