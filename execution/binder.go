package execution

import (
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
)

// Binder turns a plan into a tree of executors. Children are bound before their parents, so every executor
// is built knowing the capabilities of its inputs. All plan errors surface here, before any row is read.
type Binder struct {
	indexes *indexing.IndexManager
	cfg     Config
	metrics *Metrics
	logger  log.Logger
}

// NewBinder creates a Binder. A nil metrics or logger disables them.
func NewBinder(indexes *indexing.IndexManager, cfg Config, metrics *Metrics, logger log.Logger) *Binder {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Binder{
		indexes: indexes,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// Bind builds the executor of plan and of all its descendants.
func (b *Binder) Bind(plan planner.PlanNode) (Executor, error) {
	if err := plan.Header().Validate(); err != nil {
		return nil, err
	}
	e, err := b.bind(plan)
	if err != nil {
		return nil, err
	}
	b.metrics.boundNodes.WithLabelValues(plan.Kind().String()).Inc()
	return e, nil
}

func (b *Binder) bindAll(plans []planner.PlanNode) ([]Executor, error) {
	executors := make([]Executor, len(plans))
	for i, p := range plans {
		e, err := b.Bind(p)
		if err != nil {
			return nil, err
		}
		executors[i] = e
	}
	return executors, nil
}

func (b *Binder) bind(plan planner.PlanNode) (Executor, error) {
	switch n := plan.(type) {
	case *planner.IndexScanNode:
		if b.indexes == nil {
			return nil, common.NewError(common.NoSuchObjectError, "no index manager to scan %s", n)
		}
		index, err := b.indexes.GetIndex(n.IndexOid)
		if err != nil {
			return nil, err
		}
		return NewIndexScanExecutor(n, index), nil

	case *planner.RawNode:
		return NewRawExecutor(n)

	case *planner.FilterNode:
		if err := planner.CheckExpr(n.Predicate, n.Child.Header()); err != nil {
			return nil, err
		}
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewFilter(n, child), nil

	case *planner.SelectNode:
		width := n.Child.Header().NumColumns()
		for _, col := range n.Columns {
			if col < 0 || col >= width {
				return nil, common.NewInternalError(common.ColumnOutOfRangeError, "select column %d out of range for %s", col, n.Child.Header())
			}
		}
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewSelectExecutor(n, child), nil

	case *planner.SortNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewSortExecutor(n, child, b.cfg, b.metrics, b.logger)

	case *planner.RangeNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewRangeExecutor(n, child)

	case *planner.SkipNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		if err := checkCount(n.Count, child); err != nil {
			return nil, err
		}
		return NewSkipExecutor(n, child), nil

	case *planner.TakeNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		if err := checkCount(n.Count, child); err != nil {
			return nil, err
		}
		return NewTakeExecutor(n, child), nil

	case *planner.AliasNode:
		if len(n.Names) > n.Child.Header().NumColumns() {
			return nil, common.NewInternalError(common.ColumnOutOfRangeError, "alias %s names %d columns of %s", n.Name, len(n.Names), n.Child.Header())
		}
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewPassthroughExecutor(n, child), nil

	case *planner.TransparentNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewPassthroughExecutor(n, child), nil

	case *planner.SubstitutingNode:
		return b.bindSubstitution(n)

	case *planner.JoinNode:
		left, err := b.Bind(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.Bind(n.Right)
		if err != nil {
			return nil, err
		}
		return NewJoinExecutor(n, left, right, b.cfg, b.metrics, b.logger)

	case *planner.FilterInheritorsNode:
		child, err := b.Bind(n.Child)
		if err != nil {
			return nil, err
		}
		return NewFilterInheritorsExecutor(n, child)

	case *planner.JoinInheritorsNode:
		root, err := b.Bind(n.Root)
		if err != nil {
			return nil, err
		}
		sources := make([]planner.PlanNode, len(n.Extensions))
		for i, ext := range n.Extensions {
			sources[i] = ext.Source
		}
		extensions, err := b.bindAll(sources)
		if err != nil {
			return nil, err
		}
		return NewJoinInheritorsExecutor(n, root, extensions, b.logger)

	case *planner.MergeInheritorsNode:
		sources, err := b.bindAll(n.Sources)
		if err != nil {
			return nil, err
		}
		return NewMergeInheritorsExecutor(n, sources, b.cfg, b.logger)
	}
	return nil, common.NewError(common.InvalidPlanError, "cannot bind plan node %T", plan)
}

// bindSubstitution builds the substitute of n, once, and binds it in n's place.
func (b *Binder) bindSubstitution(n *planner.SubstitutingNode) (Executor, error) {
	sub, err := n.Build()
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, common.NewError(common.InvalidPlanError, "%s built no plan", n)
	}
	declared, actual := n.Header(), sub.Header()
	if !slices.Equal(declared.Types(), actual.Types()) {
		return nil, common.NewError(common.InvalidPlanError, "%s declares %s but built %s", n, declared, actual)
	}
	if !actual.Satisfies(declared.Order) {
		return nil, common.NewInternalError(common.OrderViolationError, "%s declares order %s but built %s", n, declared, actual)
	}
	inner, err := b.Bind(sub)
	if err != nil {
		return nil, err
	}
	level.Debug(b.logger).Log("msg", "substituted plan", "node", n.String(), "substitute", sub.String())
	return NewPassthroughExecutor(n, inner), nil
}

// checkCount verifies that a count derived from the child can be resolved.
func checkCount(c planner.Count, child Executor) error {
	if c.Kind == planner.CountFromChild && child.Capabilities().Count == nil {
		return common.NewInternalError(common.MissingCapabilityError, "count of %s needs a countable child", child.PlanNode())
	}
	return nil
}
