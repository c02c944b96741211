package execution

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/planner"
	"mit.edu/dsg/qexec/storage"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VerifyOrdering = true
	return cfg
}

// row builds a tuple from ints, strings and nils (unavailable fields).
func row(values ...any) storage.Tuple {
	out := make([]common.Value, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case int:
			out[i] = common.NewIntValue(int64(v))
		case string:
			out[i] = common.NewStringValue(v)
		case common.Value:
			out[i] = v
		case nil:
			out[i] = common.Unavailable()
		default:
			panic(fmt.Sprintf("unsupported test value %T", v))
		}
	}
	return storage.FromValues(out...)
}

// render prints rows as comma separated fields, with ∅ for unavailable fields.
func render(rows []storage.Tuple) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		fields := make([]string, r.NumColumns())
		for j := range fields {
			v := r.GetValue(j)
			switch {
			case !v.IsAvailable():
				fields[j] = "∅"
			case v.IsNull():
				fields[j] = "NULL"
			case v.Type() == common.IntType:
				fields[j] = strconv.FormatInt(v.IntValue(), 10)
			default:
				fields[j] = v.StringValue()
			}
		}
		out[i] = strings.Join(fields, ",")
	}
	return out
}

func idNameHeader(order ...planner.OrderItem) planner.Header {
	return planner.NewHeader([]planner.ColumnDescriptor{
		{Name: "id", Type: common.IntType},
		{Name: "name", Type: common.StringType},
	}, order...)
}

// rawNode builds an (id, name) raw source, ordered by id when ordered is set.
func rawNode(ordered bool, rows ...storage.Tuple) *planner.RawNode {
	if ordered {
		return planner.NewRawNode(idNameHeader(planner.OrderItem{Column: 0}), rows...)
	}
	return planner.NewRawNode(idNameHeader(), rows...)
}

func bindAndDrain(t *testing.T, b *Binder, plan planner.PlanNode) []string {
	e, err := b.Bind(plan)
	require.NoError(t, err)
	rows, err := Drain(NewExecutorContext(nil), e)
	require.NoError(t, err)
	return render(rows)
}

// setupTestTable creates a table with columns (id int, name string) and a primary index on id, and populates
// it with 'n' tuples.
func setupTestTable(t *testing.T, n int) (*Binder, *planner.IndexScanNode) {
	provider := &catalog.MemCatalogManager{}
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)
	table, err := c.AddTable("test_table", []catalog.Column{
		{Name: "id", Type: common.IntType},
		{Name: "name", Type: common.StringType},
	}, provider)
	require.NoError(t, err)
	_, err = c.AddIndex("test_table_pk", "test_table", "btree", []string{"id"}, nil, provider)
	require.NoError(t, err)

	im, err := indexing.NewIndexManager(c)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, im.InsertTuple("test_table", row(i, fmt.Sprintf("row-%d", i))))
	}

	scan, err := planner.NewPrimaryScanNode(table)
	require.NoError(t, err)
	return NewBinder(im, testConfig(), nil, nil), scan
}

func TestBasicExecutor_IndexScan(t *testing.T) {
	b, scan := setupTestTable(t, 10)

	scanExec, err := b.Bind(scan)
	require.NoError(t, err)
	ctx := NewExecutorContext(nil)

	caps := scanExec.Capabilities()
	require.NotNil(t, caps.Ordered)
	require.NotNil(t, caps.Count)
	n, err := caps.Count.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	require.NoError(t, scanExec.Init(ctx))
	count1 := 0
	for scanExec.Next() {
		tup := scanExec.Current()
		assert.Equal(t, int64(count1), tup.GetValue(0).IntValue(), "Pass 1: Tuple ID mismatch at row %d", count1)
		assert.Equal(t, fmt.Sprintf("row-%d", count1), tup.GetValue(1).StringValue(), "Pass 1: Tuple Name mismatch at row %d", count1)
		count1++
	}
	require.NoError(t, scanExec.Error())
	assert.Equal(t, 10, count1, "Pass 1: IndexScan failed to return all tuples")

	// Calling init again should reset the cursor and scan multiple times
	require.NoError(t, scanExec.Init(ctx))
	count2 := 0
	for scanExec.Next() {
		assert.Equal(t, int64(count2), scanExec.Current().GetValue(0).IntValue(), "Pass 2: Tuple ID mismatch at row %d", count2)
		count2++
	}
	assert.Equal(t, 10, count2, "Pass 2: Re-initialized IndexScan failed to return all tuples")
	require.NoError(t, scanExec.Close())
}

func TestBasicExecutor_Filter(t *testing.T) {
	b, scan := setupTestTable(t, 10)

	colExpr := planner.NewColumnValueExpression(0, scan.OutputSchema(), "id")
	constExpr := planner.NewConstantValueExpression(common.NewIntValue(5))
	predicate := planner.NewComparisonExpression(colExpr, constExpr, planner.GreaterThan)

	filterExec, err := b.Bind(planner.NewFilterNode(scan, predicate))
	require.NoError(t, err)
	assert.Nil(t, filterExec.Capabilities().Ordered, "a filter gives no access path")

	require.NoError(t, filterExec.Init(NewExecutorContext(nil)))
	count := 0
	for filterExec.Next() {
		assert.True(t, filterExec.Current().GetValue(0).IntValue() > 5)
		count++
	}
	assert.Equal(t, 4, count, "Should match IDs 6, 7, 8, 9")

	// Predicates are checked against the child's header
	bad := planner.NewComparisonExpression(
		planner.NewColumnValueExpression(1, scan.OutputSchema(), "name"), constExpr, planner.Equal)
	_, err = b.Bind(planner.NewFilterNode(scan, bad))
	assert.True(t, common.IsErrorCode(err, common.KeyTypeMismatchError))
}

func TestBasicExecutor_Select(t *testing.T) {
	b, scan := setupTestTable(t, 5)

	sel := planner.NewSelectNode(scan, []int{1, 0})
	assert.Equal(t, []string{"row-0,0", "row-1,1", "row-2,2", "row-3,3", "row-4,4"}, bindAndDrain(t, b, sel))

	e, err := b.Bind(sel)
	require.NoError(t, err)
	ordered := e.Capabilities().Ordered
	require.NotNil(t, ordered, "keeping the key column keeps ordered access")
	assert.Equal(t, []int{1}, ordered.Metadata().KeyColumns)
	res, err := ordered.Seek(indexing.Key{common.NewIntValue(3)})
	require.NoError(t, err)
	assert.Equal(t, indexing.SeekExact, res.Type)
	assert.Equal(t, []string{"row-3,3"}, render([]storage.Tuple{res.Tuple}))

	e, err = b.Bind(planner.NewSelectNode(scan, []int{1}))
	require.NoError(t, err)
	assert.Nil(t, e.Capabilities().Ordered, "dropping the key column drops ordered access")
	assert.NotNil(t, e.Capabilities().Count)

	_, err = b.Bind(planner.NewSelectNode(scan, []int{0, 2}))
	assert.True(t, common.IsErrorCode(err, common.ColumnOutOfRangeError))
}

func TestBasicExecutor_Sort(t *testing.T) {
	b := NewBinder(nil, testConfig(), nil, nil)
	raw := rawNode(false, row(3, "c"), row(1, "a"), row(2, "b"), row(1, "z"))

	asc := planner.NewSortNode(raw, []planner.OrderItem{{Column: 0}})
	assert.Equal(t, []string{"1,a", "1,z", "2,b", "3,c"}, bindAndDrain(t, b, asc), "sort is stable")

	desc := planner.NewSortNode(raw, []planner.OrderItem{{Column: 0, Direction: common.Descending}, {Column: 1}})
	assert.Equal(t, []string{"3,c", "2,b", "1,a", "1,z"}, bindAndDrain(t, b, desc))

	e, err := b.Bind(asc)
	require.NoError(t, err)
	ctx := NewExecutorContext(nil)
	caps := e.Capabilities()
	require.NotNil(t, caps.Count)
	require.NotNil(t, caps.Random)
	n, err := caps.Count.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	first, err := caps.Random.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2,b"}, render([]storage.Tuple{first}))
	_, err = caps.Random.Get(ctx, 4)
	assert.Error(t, err)
}

func TestBasicExecutor_SortPassthrough(t *testing.T) {
	b, scan := setupTestTable(t, 5)

	e, err := b.Bind(planner.NewSortNode(scan, []planner.OrderItem{{Column: 0}}))
	require.NoError(t, err)
	assert.NotNil(t, e.Capabilities().Ordered, "an already ordered child is passed through")
	assert.Contains(t, Explain(e), "(presorted)")

	e, err = b.Bind(planner.NewSortNode(scan, []planner.OrderItem{{Column: 0, Direction: common.Descending}}))
	require.NoError(t, err)
	assert.Nil(t, e.Capabilities().Ordered)
	rows, err := Drain(NewExecutorContext(nil), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"4,row-4", "3,row-3", "2,row-2", "1,row-1", "0,row-0"}, render(rows))
}

func TestBasicExecutor_SortCollation(t *testing.T) {
	b := NewBinder(nil, testConfig(), nil, nil)
	raw := rawNode(false, row(1, "b"), row(2, "A"), row(3, "a"), row(4, "B"))

	binary := planner.NewSortNode(raw, []planner.OrderItem{{Column: 1}})
	assert.Equal(t, []string{"2,A", "4,B", "3,a", "1,b"}, bindAndDrain(t, b, binary))

	collated := planner.NewSortNode(raw, []planner.OrderItem{{Column: 1, Collation: "en"}})
	got := bindAndDrain(t, b, collated)
	require.Len(t, got, 4)
	for i, want := range []string{"a", "a", "b", "b"} {
		assert.Equal(t, want, strings.ToLower(strings.Split(got[i], ",")[1]), "collated order is case-insensitive first: %v", got)
	}

	_, err := b.Bind(planner.NewSortNode(raw, []planner.OrderItem{{Column: 1, Collation: "not a tag!"}}))
	assert.True(t, common.IsErrorCode(err, common.InvalidPlanError))
	_, err = b.Bind(planner.NewSortNode(raw, []planner.OrderItem{{Column: 0, Collation: "en"}}))
	assert.True(t, common.IsErrorCode(err, common.InvalidPlanError), "collations apply to strings only")
}

func TestBasicExecutor_SortRowLimit(t *testing.T) {
	cfg := testConfig()
	cfg.SortRowLimit = 2
	b := NewBinder(nil, cfg, nil, nil)

	e, err := b.Bind(planner.NewSortNode(rawNode(false, row(3, "c"), row(1, "a"), row(2, "b")), []planner.OrderItem{{Column: 0}}))
	require.NoError(t, err)
	_, err = Drain(NewExecutorContext(nil), e)
	assert.True(t, common.IsErrorCode(err, common.MemoryLimitError))

	e, err = b.Bind(planner.NewSortNode(rawNode(false, row(2, "b"), row(1, "a")), []planner.OrderItem{{Column: 0}}))
	require.NoError(t, err)
	rows, err := Drain(NewExecutorContext(nil), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"1,a", "2,b"}, render(rows))
}

func TestBasicExecutor_Range(t *testing.T) {
	b, scan := setupTestTable(t, 10)
	key := func(i int) indexing.Key { return indexing.Key{common.NewIntValue(int64(i))} }

	forward := planner.NewRangeNode(scan, indexing.Range{
		Low:  indexing.Bound{Key: key(3)},
		High: indexing.Bound{Key: key(6), Exclusive: true},
	})
	assert.Equal(t, []string{"3,row-3", "4,row-4", "5,row-5"}, bindAndDrain(t, b, forward))

	backward := planner.NewRangeNode(scan, indexing.Range{
		Low:       indexing.Bound{Key: key(3)},
		High:      indexing.Bound{Key: key(6)},
		Direction: indexing.ScanDirectionBackward,
	})
	assert.Equal(t, []string{"6,row-6", "5,row-5", "4,row-4", "3,row-3"}, bindAndDrain(t, b, backward))

	e, err := b.Bind(backward)
	require.NoError(t, err)
	assert.Nil(t, e.Capabilities().Ordered, "a backward range only enumerates")

	e, err = b.Bind(forward)
	require.NoError(t, err)
	ordered := e.Capabilities().Ordered
	require.NotNil(t, ordered)
	scanExec, err := b.Bind(scan)
	require.NoError(t, err)

	// A seek inside the range answers like the child, a seek outside answers none.
	for i := 0; i < 10; i++ {
		res, err := ordered.Seek(key(i))
		require.NoError(t, err)
		if i < 3 || i >= 6 {
			assert.Equal(t, indexing.SeekNone, res.Type, "seek %d", i)
			continue
		}
		want, err := scanExec.Capabilities().Ordered.Seek(key(i))
		require.NoError(t, err)
		assert.Equal(t, want.Type, res.Type, "seek %d", i)
		assert.True(t, want.Tuple.Equals(res.Tuple), "seek %d", i)
	}

	// Ranges requested through the capability stay within the restriction.
	it, err := ordered.GetRange(indexing.Range{Low: indexing.Bound{Key: key(5)}})
	require.NoError(t, err)
	var got []storage.Tuple
	for it.Next() {
		got = append(got, it.Current())
	}
	require.NoError(t, it.Close())
	assert.Equal(t, []string{"5,row-5"}, render(got))

	// A Nearest seek can land past the high bound, on a row the range never enumerates.
	sparse := planner.NewRangeNode(rawNode(true, row(1, "a"), row(7, "b")), indexing.Range{
		Low:  indexing.Bound{Key: key(1)},
		High: indexing.Bound{Key: key(3)},
	})
	assert.Equal(t, []string{"1,a"}, bindAndDrain(t, b, sparse))
	e, err = b.Bind(sparse)
	require.NoError(t, err)
	res, err := e.Capabilities().Ordered.Seek(key(2))
	require.NoError(t, err)
	assert.Equal(t, indexing.SeekNearest, res.Type)
	assert.Equal(t, []string{"7,b"}, render([]storage.Tuple{res.Tuple}))

	_, err = b.Bind(planner.NewRangeNode(rawNode(false), indexing.FullRange))
	assert.True(t, common.IsErrorCode(err, common.MissingCapabilityError))
}

// pullCounter counts the rows pulled from its executor.
type pullCounter struct {
	Executor
	pulls int
}

func (e *pullCounter) Next() bool {
	e.pulls++
	return e.Executor.Next()
}

func TestBasicExecutor_TakeStopsPulling(t *testing.T) {
	b, scan := setupTestTable(t, 100)
	scanExec, err := b.Bind(scan)
	require.NoError(t, err)
	child := &pullCounter{Executor: scanExec}

	e := NewTakeExecutor(planner.NewTakeNode(scan, planner.ConstantCount(3)), child)
	rows, err := Drain(NewExecutorContext(nil), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"0,row-0", "1,row-1", "2,row-2"}, render(rows))
	assert.Equal(t, 3, child.pulls)
}

func TestBasicExecutor_SkipTake(t *testing.T) {
	b, scan := setupTestTable(t, 10)
	raw := rawNode(true, row(0, "a"), row(1, "b"), row(2, "c"), row(3, "d"), row(4, "e"))

	tests := []struct {
		name string
		plan planner.PlanNode
		want []string
	}{
		{"skip via random access", planner.NewSkipNode(raw, planner.ConstantCount(2)), []string{"2,c", "3,d", "4,e"}},
		{"skip past the end", planner.NewSkipNode(raw, planner.ConstantCount(9)), nil},
		{"take", planner.NewTakeNode(raw, planner.ConstantCount(2)), []string{"0,a", "1,b"}},
		{"take from child count", planner.NewTakeNode(raw, planner.ChildCount(-1)), []string{"0,a", "1,b", "2,c", "3,d"}},
		{"skip from child count", planner.NewSkipNode(raw, planner.ChildCount(-2)), []string{"3,d", "4,e"}},
		{"window", planner.NewTakeNode(planner.NewSkipNode(raw, planner.ConstantCount(1)), planner.ConstantCount(3)), []string{"1,b", "2,c", "3,d"}},
		{"skip streaming", planner.NewTakeNode(planner.NewSkipNode(scan, planner.ConstantCount(7)), planner.ConstantCount(2)), []string{"7,row-7", "8,row-8"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := bindAndDrain(t, b, tc.plan)
			if tc.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tc.want, got)
			}
		})
	}

	e, err := b.Bind(planner.NewTakeNode(planner.NewSkipNode(raw, planner.ConstantCount(1)), planner.ConstantCount(3)))
	require.NoError(t, err)
	ctx := NewExecutorContext(nil)
	n, err := e.Capabilities().Count.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	last, err := e.Capabilities().Random.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"3,d"}, render([]storage.Tuple{last}))

	filtered := planner.NewFilterNode(raw, planner.NewNullCheckExpression(planner.NewColumnValueExpression(0, raw.OutputSchema(), "id"), planner.IsNotNull))
	_, err = b.Bind(planner.NewSkipNode(filtered, planner.ChildCount(-1)))
	assert.True(t, common.IsErrorCode(err, common.MissingCapabilityError), "a filter cannot count its rows")
}

func TestBasicExecutor_SkipParameter(t *testing.T) {
	b := NewBinder(nil, testConfig(), nil, nil)
	raw := rawNode(true, row(0, "a"), row(1, "b"), row(2, "c"))

	e, err := b.Bind(planner.NewSkipNode(raw, planner.ParameterCount("offset")))
	require.NoError(t, err)

	_, err = Drain(NewExecutorContext(nil), e)
	assert.True(t, common.IsErrorCode(err, common.UnboundParameterError))

	rows, err := Drain(NewExecutorContext(map[string]common.Value{"offset": common.NewIntValue(2)}), e)
	require.NoError(t, err)
	assert.Equal(t, []string{"2,c"}, render(rows))

	_, err = Drain(NewExecutorContext(map[string]common.Value{"offset": common.NewStringValue("2")}), e)
	assert.True(t, common.IsErrorCode(err, common.UnboundParameterError))
}

func TestBasicExecutor_Raw(t *testing.T) {
	b := NewBinder(nil, testConfig(), nil, nil)

	_, err := b.Bind(rawNode(true, row(2, "b"), row(1, "a")))
	assert.True(t, common.IsErrorCode(err, common.OrderViolationError))

	_, err = b.Bind(rawNode(false, row("x", "b")))
	assert.True(t, common.IsErrorCode(err, common.InvalidPlanError))

	e, err := b.Bind(rawNode(true, row(1, "a"), row(3, "c"), row(5, "e")))
	require.NoError(t, err)
	ordered := e.Capabilities().Ordered
	require.NotNil(t, ordered)

	res, err := ordered.Seek(indexing.Key{common.NewIntValue(2)})
	require.NoError(t, err)
	assert.Equal(t, indexing.SeekNearest, res.Type)
	assert.Equal(t, int64(3), res.Tuple.GetValue(0).IntValue())

	res, err = ordered.Seek(indexing.Key{common.NewIntValue(6)})
	require.NoError(t, err)
	assert.Equal(t, indexing.SeekNone, res.Type)

	it, err := ordered.GetRange(indexing.Range{
		Low:       indexing.Bound{Key: indexing.Key{common.NewIntValue(1)}, Exclusive: true},
		Direction: indexing.ScanDirectionBackward,
	})
	require.NoError(t, err)
	var got []storage.Tuple
	for it.Next() {
		got = append(got, it.Current())
	}
	assert.Equal(t, []string{"5,e", "3,c"}, render(got))
}

func TestBasicExecutor_Passthrough(t *testing.T) {
	b, scan := setupTestTable(t, 3)

	alias := planner.NewAliasNode(scan, "t", "key")
	e, err := b.Bind(alias)
	require.NoError(t, err)
	assert.NotNil(t, e.Capabilities().Ordered)
	assert.Equal(t, "key", e.PlanNode().Header().Columns[0].Name)

	builds := 0
	sub := planner.NewSubstitutingNode(scan.Header(), "late", func() (planner.PlanNode, error) {
		builds++
		return planner.NewTransparentNode(scan, "chosen"), nil
	})
	e, err = b.Bind(sub)
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
	assert.NotNil(t, e.Capabilities().Ordered)

	ctx := NewExecutorContext(nil)
	for pass := 0; pass < 2; pass++ {
		rows, err := Drain(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, []string{"0,row-0", "1,row-1", "2,row-2"}, render(rows))
	}
	assert.Equal(t, 1, builds, "the substitute is built once")

	wrong := planner.NewSubstitutingNode(scan.Header(), "wrong", func() (planner.PlanNode, error) {
		return planner.NewSelectNode(scan, []int{1}), nil
	})
	_, err = b.Bind(wrong)
	assert.True(t, common.IsErrorCode(err, common.InvalidPlanError))
}

func TestBasicExecutor_Restart(t *testing.T) {
	b, scan := setupTestTable(t, 10)

	takeExec, err := b.Bind(planner.NewTakeNode(scan, planner.ConstantCount(2)))
	require.NoError(t, err)
	ctx := NewExecutorContext(nil)

	// Run 1
	require.NoError(t, takeExec.Init(ctx))
	assert.True(t, takeExec.Next()) // 0
	assert.True(t, takeExec.Next()) // 1
	assert.False(t, takeExec.Next())

	// Run 2 (Restart)
	require.NoError(t, takeExec.Init(ctx))
	assert.True(t, takeExec.Next()) // 0
	current := takeExec.Current()
	assert.Equal(t, int64(0), current.GetValue(0).IntValue())
	require.NoError(t, takeExec.Close())
}

func TestBasicExecutor_HeaderFidelity(t *testing.T) {
	b, scan := setupTestTable(t, 4)
	raw := rawNode(true, row(1, "a"), row(2, "b"))

	plans := []planner.PlanNode{
		scan,
		planner.NewSelectNode(scan, []int{1}),
		planner.NewSortNode(scan, []planner.OrderItem{{Column: 1, Direction: common.Descending}}),
		planner.NewRangeNode(scan, indexing.Range{Direction: indexing.ScanDirectionBackward}),
		planner.NewTakeNode(planner.NewSkipNode(scan, planner.ConstantCount(1)), planner.ConstantCount(2)),
		planner.NewJoinNode(raw, scan, []planner.KeyPair{{Left: 0, Right: 0}}, planner.LeftOuterJoin),
		planner.NewAliasNode(scan, "x", "a", "b"),
	}
	for _, plan := range plans {
		e, err := b.Bind(plan)
		require.NoError(t, err)
		rows, err := Drain(NewExecutorContext(nil), e)
		require.NoError(t, err)
		header := plan.Header()
		for _, r := range rows {
			assert.True(t, header.Conforms(r), "%s yields %s, which does not conform to %s", plan, r, header)
		}
		for i := 1; i < len(rows); i++ {
			prev := header.IndexMetadata().KeyOf(rows[i-1])
			cur := header.IndexMetadata().KeyOf(rows[i])
			assert.LessOrEqual(t, prev.Compare(cur, header.OrderDirections()), 0, "%s breaks its declared order", plan)
		}
	}
}
