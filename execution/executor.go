package execution

import (
	"fmt"
	"strings"

	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

// Executor is the interface that all physical execution nodes must implement.
//
// An executor is built once per plan node by the Binder, after its children, and precomputes everything
// derived from the plan in its constructor. It may then be enumerated any number of times: each Init starts
// a new pass from the beginning. Rows returned by Current are immutable and stay valid after Next.
type Executor interface {
	PlanNode() planner.PlanNode

	// Capabilities returns the optional access paths this executor offers its parent. They are fixed at
	// construction.
	Capabilities() Capabilities

	// Init starts a pass with the given execution context.
	Init(ctx *ExecutorContext) error

	// Next retrieves the next tuple from the executor.
	Next() bool

	// Current returns the tuple most recently read by Next().
	Current() storage.Tuple

	// Error returns the last error encountered by the executor, if any.
	Error() error

	// Close ends the pass and releases any resources held by the executor.
	Close() error
}

// Capabilities lists the optional access paths of an executor. A nil field means the capability is absent.
type Capabilities struct {
	// Ordered gives seek and range access in the order of the executor's rows. Its metadata describes the
	// executor's output rows, and enumerating the executor yields rows in that key order.
	Ordered indexing.OrderedSource
	// Count reports the number of rows a pass yields.
	Count Counter
	// Random gives positional access to the rows of a pass.
	Random RandomAccess
}

func (c Capabilities) String() string {
	var names []string
	if c.Ordered != nil {
		names = append(names, "ordered")
	}
	if c.Count != nil {
		names = append(names, "count")
	}
	if c.Random != nil {
		names = append(names, "random")
	}
	return strings.Join(names, ",")
}

// Counter reports the number of rows an executor yields in the pass of ctx.
type Counter interface {
	Count(ctx *ExecutorContext) (int, error)
}

// RandomAccess gives positional access to the rows an executor yields in the pass of ctx.
type RandomAccess interface {
	Len(ctx *ExecutorContext) (int, error)
	Get(ctx *ExecutorContext, i int) (storage.Tuple, error)
}

type counterFunc func(ctx *ExecutorContext) (int, error)

func (f counterFunc) Count(ctx *ExecutorContext) (int, error) {
	return f(ctx)
}

// storageCounter adapts the count of a storage source, which does not depend on the pass.
func storageCounter(c indexing.Counter) Counter {
	return counterFunc(func(*ExecutorContext) (int, error) {
		return c.Count()
	})
}

// randomAccess implements RandomAccess from a pair of functions.
type randomAccess struct {
	length func(ctx *ExecutorContext) (int, error)
	get    func(ctx *ExecutorContext, i int) (storage.Tuple, error)
}

func (r randomAccess) Len(ctx *ExecutorContext) (int, error) {
	return r.length(ctx)
}

func (r randomAccess) Get(ctx *ExecutorContext, i int) (storage.Tuple, error) {
	return r.get(ctx, i)
}

// parent is implemented by executors with inputs.
type parent interface {
	Children() []Executor
}

// describer is implemented by executors whose algorithm is not evident from their plan node.
type describer interface {
	Describe() string
}

// Explain renders a bound executor tree with the algorithm and capabilities chosen for every node.
func Explain(root Executor) string {
	var b strings.Builder
	explain(&b, root, 0)
	return b.String()
}

func explain(b *strings.Builder, e Executor, depth int) {
	desc := e.PlanNode().String()
	if d, ok := e.(describer); ok {
		desc = d.Describe()
	}
	fmt.Fprintf(b, "%s%s", strings.Repeat("  ", depth), desc)
	if caps := e.Capabilities().String(); caps != "" {
		fmt.Fprintf(b, " {%s}", caps)
	}
	b.WriteString("\n")
	if p, ok := e.(parent); ok {
		for _, child := range p.Children() {
			explain(b, child, depth+1)
		}
	}
}

// Drain runs one pass of e and collects its rows.
func Drain(ctx *ExecutorContext, e Executor) ([]storage.Tuple, error) {
	if err := e.Init(ctx); err != nil {
		return nil, err
	}
	var rows []storage.Tuple
	for e.Next() {
		rows = append(rows, e.Current())
	}
	if err := e.Error(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return rows, e.Close()
}
