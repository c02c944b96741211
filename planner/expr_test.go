package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

// Helper to create a standard tuple for testing
// Schema: [id(int), name(string), age(int), bio(string), extra(int)]
// Values: [1, "alice", NULL, NULL, ∅]
func makeExprTestTuple() (storage.Tuple, []common.Type) {
	schema := []common.Type{common.IntType, common.StringType, common.IntType, common.StringType, common.IntType}
	tup := storage.FromValues(
		common.NewIntValue(1),          // 0: id
		common.NewStringValue("alice"), // 1: name
		common.NewNullInt(),            // 2: age (NULL)
		common.NewNullString(),         // 3: bio (NULL)
		common.Unavailable(),           // 4: extra (not produced)
	)
	return tup, schema
}

// expectBool asserts a predicate result: 1=True, 0=False, -1=Null
func expectBool(t *testing.T, expected int, res common.Value, msgAndArgs ...any) {
	t.Helper()
	if expected == -1 {
		assert.True(t, res.IsNull(), msgAndArgs...)
		return
	}
	require.False(t, res.IsNull(), msgAndArgs...)
	assert.Equal(t, int64(expected), res.IntValue(), msgAndArgs...)
}

func TestComparisonLogic(t *testing.T) {
	tup, schema := makeExprTestTuple()

	id := NewColumnValueExpression(0, schema, "id")
	age := NewColumnValueExpression(2, schema, "age")
	bio := NewColumnValueExpression(3, schema, "bio")
	extra := NewColumnValueExpression(4, schema, "extra")
	const1 := NewConstantValueExpression(common.NewIntValue(1))
	const5 := NewConstantValueExpression(common.NewIntValue(5))

	tests := []struct {
		name     string
		left     Expr
		right    Expr
		op       ComparisonType
		expected int
	}{
		{"1=1", id, const1, Equal, 1},
		{"1=5", id, const5, Equal, 0},
		{"1<>5", id, const5, NotEqual, 1},
		{"1<5", id, const5, LessThan, 1},
		{"1>=1", id, const1, GreaterThanOrEqual, 1},
		{"1>5", id, const5, GreaterThan, 0},
		{"1=NULL", id, age, Equal, -1},
		{"NULL=NULL", age, age, Equal, -1},
		{"Str=NULL", bio, bio, Equal, -1},
		{"unavailable=1", extra, const1, Equal, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectBool(t, tt.expected, NewComparisonExpression(tt.left, tt.right, tt.op).Eval(tup))
		})
	}
}

func TestThreeValuedLogic(t *testing.T) {
	tup := storage.FromValues()

	T := NewConstantValueExpression(common.NewIntValue(1))
	F := NewConstantValueExpression(common.NewIntValue(0))
	N := NewConstantValueExpression(common.NewNullInt())

	tests := []struct {
		name     string
		expr     Expr
		expected int
	}{
		{"T AND T", NewBinaryLogicExpression(T, T, And), 1},
		{"T AND F", NewBinaryLogicExpression(T, F, And), 0},
		{"T AND N", NewBinaryLogicExpression(T, N, And), -1},
		{"F AND N", NewBinaryLogicExpression(F, N, And), 0},
		{"N AND N", NewBinaryLogicExpression(N, N, And), -1},
		{"T OR F", NewBinaryLogicExpression(T, F, Or), 1},
		{"N OR T", NewBinaryLogicExpression(N, T, Or), 1},
		{"F OR N", NewBinaryLogicExpression(F, N, Or), -1},
		{"F OR F", NewBinaryLogicExpression(F, F, Or), 0},
		{"NOT T", NewNegationExpression(T), 0},
		{"NOT F", NewNegationExpression(F), 1},
		{"NOT N", NewNegationExpression(N), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectBool(t, tt.expected, tt.expr.Eval(tup))
		})
	}
}

func TestNullChecks(t *testing.T) {
	tup, schema := makeExprTestTuple()
	id := NewColumnValueExpression(0, schema, "id")
	age := NewColumnValueExpression(2, schema, "age")
	extra := NewColumnValueExpression(4, schema, "extra")

	expectBool(t, 0, NewNullCheckExpression(id, IsNull).Eval(tup))
	expectBool(t, 1, NewNullCheckExpression(id, IsNotNull).Eval(tup))
	expectBool(t, 1, NewNullCheckExpression(age, IsNull).Eval(tup))
	expectBool(t, 0, NewNullCheckExpression(age, IsNotNull).Eval(tup))
	expectBool(t, 1, NewNullCheckExpression(extra, IsNull).Eval(tup), "unavailable counts as NULL")
}

func TestInList(t *testing.T) {
	tup, schema := makeExprTestTuple()
	id := NewColumnValueExpression(0, schema, "id")
	age := NewColumnValueExpression(2, schema, "age")
	name := NewColumnValueExpression(1, schema, "name")

	expectBool(t, 1, NewInIntListExpression(id, 3, 1, 2).Eval(tup))
	expectBool(t, 0, NewInIntListExpression(id, 3, 4).Eval(tup))
	expectBool(t, 0, NewInIntListExpression(id).Eval(tup))
	expectBool(t, -1, NewInIntListExpression(age, 1).Eval(tup))
	expectBool(t, 1, NewInListExpression(name, common.NewStringValue("bob"), common.NewStringValue("alice")).Eval(tup))
	assert.Equal(t, "(id IN (1, 2))", NewInIntListExpression(id, 1, 2).String())
}

func TestLike(t *testing.T) {
	tup := storage.FromValues()

	hello := NewConstantValueExpression(common.NewStringValue("hello"))
	pattern := func(p string) Expr { return NewConstantValueExpression(common.NewStringValue(p)) }

	expectBool(t, 1, NewLikeExpression(hello, pattern("he%")).Eval(tup))
	expectBool(t, 1, NewLikeExpression(hello, pattern("%ll%")).Eval(tup))
	expectBool(t, 1, NewLikeExpression(hello, pattern("he__o")).Eval(tup))
	expectBool(t, 0, NewLikeExpression(hello, pattern("world")).Eval(tup))
	expectBool(t, 1, NewLikeExpression(pattern("100%"), pattern("100\\%")).Eval(tup))
	expectBool(t, 0, NewLikeExpression(pattern("1000"), pattern("100\\%")).Eval(tup))
	expectBool(t, -1, NewLikeExpression(NewConstantValueExpression(common.NewNullString()), pattern("%")).Eval(tup))

	// non-constant pattern compiled per row
	schema := []common.Type{common.StringType}
	row := storage.FromValues(common.NewStringValue("a_c"))
	expectBool(t, 1, NewLikeExpression(NewConstantValueExpression(common.NewStringValue("abc")), NewColumnValueExpression(0, schema, "p")).Eval(row))
}

// TestComplexExpressionTree evaluates
//
//	( val > 90 AND status = 'active' ) OR ( region IS NOT NULL )
//
// on [id=10, val=100, status="active", region=NULL], which is TRUE.
func TestComplexExpressionTree(t *testing.T) {
	schema := []common.Type{common.IntType, common.IntType, common.StringType, common.StringType}
	tup := storage.FromValues(
		common.NewIntValue(10),
		common.NewIntValue(100),
		common.NewStringValue("active"),
		common.NewNullString(),
	)

	valCol := NewColumnValueExpression(1, schema, "val")
	statusCol := NewColumnValueExpression(2, schema, "status")
	regionCol := NewColumnValueExpression(3, schema, "region")

	gtExpr := NewComparisonExpression(valCol, NewConstantValueExpression(common.NewIntValue(90)), GreaterThan)
	eqExpr := NewComparisonExpression(statusCol, NewConstantValueExpression(common.NewStringValue("active")), Equal)
	andExpr := NewBinaryLogicExpression(gtExpr, eqExpr, And)
	rootExpr := NewBinaryLogicExpression(andExpr, NewNullCheckExpression(regionCol, IsNotNull), Or)

	expectBool(t, 1, rootExpr.Eval(tup))
	assert.Equal(t, `(((val > 90) AND (status = "active")) OR (region IS NOT NULL))`, rootExpr.String())

	// NULLs bubble up when no operand decides the result
	nullRow := storage.FromValues(common.NewIntValue(10), common.NewNullInt(), common.NewNullString(), common.NewNullString())
	nullExpr := NewBinaryLogicExpression(gtExpr, NewLikeExpression(regionCol, NewConstantValueExpression(common.NewStringValue("US%"))), Or)
	expectBool(t, -1, nullExpr.Eval(nullRow))
}

func TestCheckExpr(t *testing.T) {
	h := NewHeader([]ColumnDescriptor{
		{Name: "id", Type: common.IntType},
		{Name: "name", Type: common.StringType},
	})

	id, err := NewColumnRef(h, "id")
	require.NoError(t, err)
	_, err = NewColumnRef(h, "missing")
	assert.True(t, common.IsErrorCode(err, common.NoSuchObjectError))

	ok := NewComparisonExpression(id, NewConstantValueExpression(common.NewIntValue(3)), Equal)
	assert.NoError(t, CheckExpr(ok, h))

	mismatched := NewComparisonExpression(id, NewConstantValueExpression(common.NewStringValue("x")), Equal)
	assert.True(t, common.IsErrorCode(CheckExpr(mismatched, h), common.KeyTypeMismatchError))

	wide := []common.Type{common.IntType, common.StringType, common.IntType}
	outOfRange := NewNegationExpression(NewColumnValueExpression(2, wide, "z"))
	assert.True(t, common.IsErrorCode(CheckExpr(outOfRange, h), common.ColumnOutOfRangeError))

	badList := NewInListExpression(id, common.NewStringValue("a"))
	assert.True(t, common.IsErrorCode(CheckExpr(badList, h), common.KeyTypeMismatchError))
}
