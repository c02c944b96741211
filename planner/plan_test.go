package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/qexec/catalog"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/indexing"
	"mit.edu/dsg/qexec/storage"
)

func testHeader() Header {
	return NewHeader([]ColumnDescriptor{
		{Name: "id", Type: common.IntType},
		{Name: "name", Type: common.StringType},
		{Name: "age", Type: common.IntType},
	}, OrderItem{Column: 0}, OrderItem{Column: 2, Direction: common.Descending})
}

func TestHeader_ProjectKeepsOrderPrefix(t *testing.T) {
	h := testHeader()

	p := h.Project([]int{2, 0})
	assert.Equal(t, []common.Type{common.IntType, common.IntType}, p.Types())
	assert.Equal(t, []OrderItem{{Column: 1}, {Column: 0, Direction: common.Descending}}, p.Order)

	// dropping the leading order column drops the whole order
	p = h.Project([]int{1, 2})
	assert.Empty(t, p.Order)

	// dropping a trailing order column keeps the prefix
	p = h.Project([]int{0, 1})
	assert.Equal(t, []OrderItem{{Column: 0}}, p.Order)

	p = h.Project([]int{5})
	assert.Equal(t, "?5", p.Columns[0].Name)
}

func TestHeader_OrderMatch(t *testing.T) {
	h := testHeader()

	assert.Equal(t, 2, h.OrderMatch([]OrderItem{{Column: 0}, {Column: 2, Direction: common.Descending}}))
	assert.Equal(t, 1, h.OrderMatch([]OrderItem{{Column: 0}, {Column: 2}}))
	assert.Equal(t, 0, h.OrderMatch([]OrderItem{{Column: 0, Direction: common.Descending}}))
	assert.Equal(t, 0, h.OrderMatch([]OrderItem{{Column: 0, Collation: "en"}}))
	assert.True(t, h.Satisfies([]OrderItem{{Column: 0}}))
	assert.True(t, h.Satisfies(nil))
	assert.False(t, h.Unordered().Satisfies([]OrderItem{{Column: 0}}))
}

func TestHeader_ConformsAndValidate(t *testing.T) {
	h := testHeader()

	assert.True(t, h.Conforms(storage.FromValues(common.NewIntValue(1), common.NewStringValue("a"), common.NewNullInt())))
	assert.True(t, h.Conforms(storage.Unavailable(3)))
	assert.False(t, h.Conforms(storage.FromValues(common.NewIntValue(1))))
	assert.False(t, h.Conforms(storage.FromValues(common.NewStringValue("x"), common.NewStringValue("a"), common.NewIntValue(1))))

	assert.NoError(t, h.Validate())
	assert.True(t, common.IsErrorCode(h.WithOrder([]OrderItem{{Column: 7}}).Validate(), common.ColumnOutOfRangeError))
	assert.True(t, common.IsErrorCode(h.WithOrder([]OrderItem{{Column: 0, Collation: "en"}}).Validate(), common.InvalidPlanError))

	md := h.IndexMetadata()
	assert.Equal(t, []int{0, 2}, md.KeyColumns)
	assert.Equal(t, common.Descending, md.Direction(1))
}

func TestPlanNodes_Headers(t *testing.T) {
	h := testHeader()
	raw := NewRawNode(h)

	join := NewJoinNode(raw, NewRawNode(h.Unordered()), []KeyPair{{Left: 0, Right: 0}}, LeftOuterJoin)
	assert.Equal(t, 6, join.Header().NumColumns())
	assert.Equal(t, h.Order, join.Header().Order, "join keeps left order")
	assert.Equal(t, AlgorithmMerge, join.WithAlgorithm(AlgorithmMerge).Algorithm)
	assert.Equal(t, AlgorithmAuto, join.Algorithm)

	alias := NewAliasNode(raw, "a", "key")
	assert.Equal(t, "key", alias.Header().Columns[0].Name)
	assert.Equal(t, "name", alias.Header().Columns[1].Name)
	assert.Equal(t, "id", raw.Header().Columns[0].Name, "alias does not modify its child")

	backward := NewRangeNode(raw, indexing.Range{Direction: indexing.ScanDirectionBackward})
	assert.Equal(t, common.Descending, backward.Header().Order[0].Direction)
	assert.Equal(t, common.Ascending, backward.Header().Order[1].Direction)

	sel, err := NewSelectByName(raw, "age", "id")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, sel.Columns)
	_, err = NewSelectByName(raw, "nope")
	assert.Error(t, err)

	sort := NewSortNode(raw, []OrderItem{{Column: 1}})
	assert.Equal(t, []OrderItem{{Column: 1}}, sort.Header().Order)

	take := NewTakeNode(NewSkipNode(raw, ParameterCount("offset")), ChildCount(-1))
	assert.Equal(t, "Take: count-1", take.String())
	assert.Equal(t, "Skip: $offset", take.Child.String())

	explained := Explain(take)
	assert.Contains(t, explained, "Take: count-1\n  Skip: $offset\n    Raw: 0 rows\n")
}

func setupHierarchyCatalog(t *testing.T, mapping catalog.InheritanceMapping) (*catalog.Catalog, *catalog.Hierarchy) {
	provider := &catalog.MemCatalogManager{}
	c, err := catalog.NewCatalog(provider)
	require.NoError(t, err)

	addTable := func(name string, cols ...catalog.Column) {
		_, err := c.AddTable(name, cols, provider)
		require.NoError(t, err)
		_, err = c.AddIndex(name+"_pk", name, "btree", []string{"id"}, nil, provider)
		require.NoError(t, err)
	}
	id := catalog.Column{Name: "id", Type: common.IntType}
	tag := catalog.Column{Name: "tag", Type: common.IntType}
	name := catalog.Column{Name: "name", Type: common.StringType}
	breed := catalog.Column{Name: "breed", Type: common.StringType}

	h := &catalog.Hierarchy{Name: "animals", Mapping: mapping, TagColumn: "tag"}
	switch mapping {
	case catalog.SingleTable:
		addTable("animal", id, tag, name, breed)
		h.Types = []catalog.TypeInfo{
			{Name: "Animal", Tag: 1, Table: "animal"},
			{Name: "Dog", Tag: 2, Parent: "Animal", Table: "animal"},
			{Name: "Cat", Tag: 3, Parent: "Animal", Table: "animal"},
		}
	case catalog.ClassTable:
		addTable("animal", id, tag, name)
		addTable("dog", id, breed)
		h.Types = []catalog.TypeInfo{
			{Name: "Animal", Tag: 1, Table: "animal"},
			{Name: "Dog", Tag: 2, Parent: "Animal", Table: "dog"},
			{Name: "Cat", Tag: 3, Parent: "Animal", Table: "animal"},
		}
	case catalog.ConcreteTable:
		addTable("animal", id, name)
		addTable("dog", id, name, breed)
		addTable("cat", id, name)
		h.Types = []catalog.TypeInfo{
			{Name: "Animal", Tag: 1, Table: "animal"},
			{Name: "Dog", Tag: 2, Parent: "Animal", Table: "dog"},
			{Name: "Cat", Tag: 3, Parent: "Animal", Table: "cat"},
		}
	}
	require.NoError(t, c.AddHierarchy(h, provider))
	return c, h
}

func TestHierarchyScan_SingleTable(t *testing.T) {
	c, h := setupHierarchyCatalog(t, catalog.SingleTable)

	plan, err := HierarchyScan(c, h, "Dog")
	require.NoError(t, err)
	fi, ok := plan.(*FilterInheritorsNode)
	require.True(t, ok)
	assert.Equal(t, 1, fi.TagColumn)
	assert.Equal(t, []int64{2}, fi.Tags)

	plan, err = HierarchyScan(c, h, "Animal")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, plan.(*FilterInheritorsNode).Tags)

	_, err = HierarchyScan(c, h, "Fish")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))
}

func TestHierarchyScan_ClassTable(t *testing.T) {
	c, h := setupHierarchyCatalog(t, catalog.ClassTable)

	plan, err := HierarchyScan(c, h, "Animal")
	require.NoError(t, err)
	ji, ok := plan.(*JoinInheritorsNode)
	require.True(t, ok)
	require.Len(t, ji.Extensions, 1)
	assert.Equal(t, []int64{2}, ji.Extensions[0].Tags)
	assert.Equal(t, KindIndexScan, ji.Root.Kind())
	assert.Equal(t, 5, ji.Header().NumColumns())
	assert.Equal(t, []OrderItem{{Column: 0}}, ji.Header().Order)

	plan, err = HierarchyScan(c, h, "Dog")
	require.NoError(t, err)
	ji = plan.(*JoinInheritorsNode)
	assert.Equal(t, KindFilterInheritors, ji.Root.Kind())

	plan, err = HierarchyScan(c, h, "Cat")
	require.NoError(t, err)
	assert.Equal(t, KindFilterInheritors, plan.Kind(), "cats own no extension table")
}

func TestHierarchyScan_ConcreteTable(t *testing.T) {
	c, h := setupHierarchyCatalog(t, catalog.ConcreteTable)

	plan, err := HierarchyScan(c, h, "Animal")
	require.NoError(t, err)
	mi, ok := plan.(*MergeInheritorsNode)
	require.True(t, ok)
	require.Len(t, mi.Sources, 3)
	assert.Equal(t, []int{0, 1}, mi.ColumnMaps[1], "dog.id and dog.name feed the common columns")
	assert.Equal(t, 2, mi.Header().NumColumns())

	plan, err = HierarchyScan(c, h, "Dog")
	require.NoError(t, err)
	assert.Equal(t, KindIndexScan, plan.Kind())
}

func TestAlignColumns(t *testing.T) {
	target := NewHeader([]ColumnDescriptor{{Name: "id"}, {Name: "name"}, {Name: "breed"}})
	source := NewHeader([]ColumnDescriptor{
		{Name: "x", Origin: &catalog.ColumnRef{Table: "cat", Column: "name"}},
		{Name: "id"},
	})
	assert.Equal(t, []int{1, 0, -1}, AlignColumns(target, source))
}
