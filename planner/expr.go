package planner

import (
	"fmt"
	"regexp"
	"strings"

	"mit.edu/dsg/qexec/common"
	"mit.edu/dsg/qexec/storage"
)

// Expr represents a node in an expression tree.
// Expressions are stateless and immutable plan nodes. Predicates evaluate to an int: non-zero is true, zero
// is false and NULL is unknown.
type Expr interface {
	// Eval evaluates the expression against the provided tuple.
	Eval(t storage.Tuple) common.Value

	// OutputType returns the type of value this expression produces.
	OutputType() common.Type

	// Children returns the operands of the expression.
	Children() []Expr

	// String returns a string representation of the expression.
	String() string
}

func boolValue(b bool) common.Value {
	if b {
		return common.NewIntValue(1)
	}
	return common.NewIntValue(0)
}

func ExprIsTrue(v common.Value) bool {
	// Must be an integer type, not null, and non-zero.
	return v.Type() == common.IntType && !v.IsNull() && v.IntValue() != 0
}

func ExprIsFalse(v common.Value) bool {
	return v.Type() == common.IntType && !v.IsNull() && v.IntValue() == 0
}

// CheckExpr validates an expression against the header of the rows it will be evaluated on: column
// references must be in range with the expected type and compared operands must have the same type.
func CheckExpr(e Expr, h Header) error {
	switch expr := e.(type) {
	case *BoundValueExpr:
		if expr.fieldOffset < 0 || expr.fieldOffset >= h.NumColumns() {
			return common.NewError(common.ColumnOutOfRangeError, "column %s (#%d) out of range for %s", expr.name, expr.fieldOffset, h)
		}
		if h.Columns[expr.fieldOffset].Type != expr.outputType {
			return common.NewError(common.KeyTypeMismatchError, "column %s is %s, expected %s", expr.name, h.Columns[expr.fieldOffset].Type, expr.outputType)
		}
	case *ComparisonExpression:
		if expr.left.OutputType() != expr.right.OutputType() {
			return common.NewError(common.KeyTypeMismatchError, "cannot compare %s with %s in %s", expr.left.OutputType(), expr.right.OutputType(), expr)
		}
	case *InListExpression:
		for _, v := range expr.list {
			if v.Type() != expr.child.OutputType() {
				return common.NewError(common.KeyTypeMismatchError, "IN list value %v does not match %s", v, expr.child.OutputType())
			}
		}
	}
	for _, child := range e.Children() {
		if err := CheckExpr(child, h); err != nil {
			return err
		}
	}
	return nil
}

// BoundValueExpr reads a column of the input tuple.
type BoundValueExpr struct {
	fieldOffset int // offset of the column in the input tuple
	outputType  common.Type
	name        string
}

func NewColumnValueExpression(fieldOffset int, tupleSchema []common.Type, name string) *BoundValueExpr {
	return &BoundValueExpr{
		fieldOffset: fieldOffset,
		outputType:  tupleSchema[fieldOffset],
		name:        name,
	}
}

// NewColumnRef resolves a column of h by name.
func NewColumnRef(h Header, name string) (*BoundValueExpr, error) {
	offset := h.ColumnIndex(name)
	if offset < 0 {
		return nil, common.NewError(common.NoSuchObjectError, "column '%s' does not exist in %s", name, h)
	}
	return &BoundValueExpr{fieldOffset: offset, outputType: h.Columns[offset].Type, name: name}, nil
}

// Offset returns the position of the referenced column.
func (e *BoundValueExpr) Offset() int {
	return e.fieldOffset
}

func (e *BoundValueExpr) Eval(t storage.Tuple) common.Value {
	return t.GetValue(e.fieldOffset)
}

func (e *BoundValueExpr) OutputType() common.Type {
	return e.outputType
}

func (e *BoundValueExpr) Children() []Expr {
	return nil
}

func (e *BoundValueExpr) String() string {
	return e.name
}

type ConstantValueExpr struct {
	val common.Value
}

func NewConstantValueExpression(val common.Value) *ConstantValueExpr {
	return &ConstantValueExpr{val: val}
}

func (e *ConstantValueExpr) Eval(storage.Tuple) common.Value {
	return e.val
}

func (e *ConstantValueExpr) OutputType() common.Type {
	return e.val.Type()
}

func (e *ConstantValueExpr) Children() []Expr {
	return nil
}

func (e *ConstantValueExpr) String() string {
	return e.val.String()
}

type ComparisonType int

const (
	Equal ComparisonType = iota
	NotEqual
	GreaterThan
	LessThan
	GreaterThanOrEqual
	LessThanOrEqual
)

func (c ComparisonType) String() string {
	switch c {
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	case GreaterThanOrEqual:
		return ">="
	case LessThanOrEqual:
		return "<="
	}
	return "???"
}

func (c ComparisonType) holds(cmp int) bool {
	switch c {
	case Equal:
		return cmp == 0
	case NotEqual:
		return cmp != 0
	case GreaterThan:
		return cmp > 0
	case LessThan:
		return cmp < 0
	case GreaterThanOrEqual:
		return cmp >= 0
	case LessThanOrEqual:
		return cmp <= 0
	}
	return false
}

type ComparisonExpression struct {
	left     Expr
	right    Expr
	compType ComparisonType
}

func NewComparisonExpression(left Expr, right Expr, compType ComparisonType) *ComparisonExpression {
	return &ComparisonExpression{
		left:     left,
		right:    right,
		compType: compType,
	}
}

// Eval yields NULL when either side is NULL or unavailable.
func (e *ComparisonExpression) Eval(t storage.Tuple) common.Value {
	val1 := e.left.Eval(t)
	val2 := e.right.Eval(t)
	if val1.IsNull() || val2.IsNull() {
		return common.NewNullInt()
	}
	return boolValue(e.compType.holds(val1.Compare(val2)))
}

func (e *ComparisonExpression) OutputType() common.Type {
	return common.IntType
}

func (e *ComparisonExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *ComparisonExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left, e.compType, e.right)
}

type BinaryLogicType int

const (
	And BinaryLogicType = iota
	Or
)

func (l BinaryLogicType) String() string {
	switch l {
	case And:
		return "AND"
	case Or:
		return "OR"
	}
	return "???"
}

type BinaryLogicExpression struct {
	left      Expr
	right     Expr
	logicType BinaryLogicType
}

func NewBinaryLogicExpression(left Expr, right Expr, logicType BinaryLogicType) *BinaryLogicExpression {
	return &BinaryLogicExpression{
		left:      left,
		right:     right,
		logicType: logicType,
	}
}

// Eval implements three-valued logic.
func (e *BinaryLogicExpression) Eval(t storage.Tuple) common.Value {
	val1 := e.left.Eval(t)
	val2 := e.right.Eval(t)

	// dominant is the operand value that decides the result on its own: false for AND, true for OR.
	dominant := e.logicType == Or
	decides := func(v common.Value) bool {
		if dominant {
			return ExprIsTrue(v)
		}
		return ExprIsFalse(v)
	}
	if decides(val1) || decides(val2) {
		return boolValue(dominant)
	}
	if val1.IsNull() || val2.IsNull() {
		return common.NewNullInt()
	}
	return boolValue(!dominant)
}

func (e *BinaryLogicExpression) OutputType() common.Type {
	return common.IntType
}

func (e *BinaryLogicExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *BinaryLogicExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left, e.logicType, e.right)
}

type NegationExpression struct {
	child Expr
}

func NewNegationExpression(child Expr) *NegationExpression {
	return &NegationExpression{child: child}
}

func (e *NegationExpression) Eval(t storage.Tuple) common.Value {
	val := e.child.Eval(t)
	if val.IsNull() {
		return common.NewNullInt()
	}
	return boolValue(!ExprIsTrue(val))
}

func (e *NegationExpression) OutputType() common.Type {
	return common.IntType
}

func (e *NegationExpression) Children() []Expr {
	return []Expr{e.child}
}

func (e *NegationExpression) String() string {
	return fmt.Sprintf("!(%s)", e.child)
}

type NullCheckType int

const (
	IsNull NullCheckType = iota
	IsNotNull
)

func (n NullCheckType) String() string {
	switch n {
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	}
	return "???"
}

// NullCheckExpression tests for NULL. Unavailable fields count as NULL.
type NullCheckExpression struct {
	child     Expr
	checkType NullCheckType
}

func NewNullCheckExpression(child Expr, checkType NullCheckType) *NullCheckExpression {
	return &NullCheckExpression{
		child:     child,
		checkType: checkType,
	}
}

func (e *NullCheckExpression) Eval(t storage.Tuple) common.Value {
	isNull := e.child.Eval(t).IsNull()
	return boolValue(isNull == (e.checkType == IsNull))
}

func (e *NullCheckExpression) OutputType() common.Type {
	return common.IntType
}

func (e *NullCheckExpression) Children() []Expr {
	return []Expr{e.child}
}

func (e *NullCheckExpression) String() string {
	return fmt.Sprintf("(%s %s)", e.child, e.checkType)
}

// InListExpression tests membership of a value in a constant list. A NULL operand yields NULL.
type InListExpression struct {
	child Expr
	list  []common.Value
}

func NewInListExpression(child Expr, list ...common.Value) *InListExpression {
	return &InListExpression{child: child, list: list}
}

// NewInIntListExpression is a shorthand for membership in a set of integers, such as type tags.
func NewInIntListExpression(child Expr, list ...int64) *InListExpression {
	values := make([]common.Value, len(list))
	for i, v := range list {
		values[i] = common.NewIntValue(v)
	}
	return NewInListExpression(child, values...)
}

func (e *InListExpression) Eval(t storage.Tuple) common.Value {
	val := e.child.Eval(t)
	if val.IsNull() {
		return common.NewNullInt()
	}
	for _, candidate := range e.list {
		if !candidate.IsNull() && val.Compare(candidate) == 0 {
			return boolValue(true)
		}
	}
	return boolValue(false)
}

func (e *InListExpression) OutputType() common.Type {
	return common.IntType
}

func (e *InListExpression) Children() []Expr {
	return []Expr{e.child}
}

func (e *InListExpression) String() string {
	parts := make([]string, len(e.list))
	for i, v := range e.list {
		parts[i] = v.String()
	}
	return fmt.Sprintf("(%s IN (%s))", e.child, strings.Join(parts, ", "))
}

// LikeExpression matches a string against a SQL LIKE pattern (% and _ wildcards, backslash escapes).
type LikeExpression struct {
	left  Expr // The value to check
	right Expr // The pattern (usually a constant)
	// compiled is set when the pattern is a constant.
	compiled *regexp.Regexp
}

func NewLikeExpression(left Expr, right Expr) *LikeExpression {
	e := &LikeExpression{left: left, right: right}
	if c, ok := right.(*ConstantValueExpr); ok && !c.val.IsNull() {
		e.compiled = likeToRegexp(c.val.StringValue())
	}
	return e
}

// likeToRegexp translates a LIKE pattern rune by rune. QuoteMeta alone cannot be used because it does not
// distinguish escaped wildcards from literal ones.
func likeToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	chars := []rune(pattern)
	for i := 0; i < len(chars); i++ {
		switch c := chars[i]; {
		case c == '\\' && i+1 < len(chars) && (chars[i+1] == '%' || chars[i+1] == '_'):
			b.WriteString(regexp.QuoteMeta(string(chars[i+1])))
			i++
		case c == '%':
			b.WriteString(".*")
		case c == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (e *LikeExpression) Eval(t storage.Tuple) common.Value {
	val := e.left.Eval(t)
	if val.IsNull() {
		return common.NewNullInt() // Boolean NULL
	}
	re := e.compiled
	if re == nil {
		patternVal := e.right.Eval(t)
		if patternVal.IsNull() {
			return common.NewNullInt()
		}
		re = likeToRegexp(patternVal.StringValue())
	}
	return boolValue(re.MatchString(val.StringValue()))
}

func (e *LikeExpression) OutputType() common.Type {
	return common.IntType
}

func (e *LikeExpression) Children() []Expr {
	return []Expr{e.left, e.right}
}

func (e *LikeExpression) String() string {
	return fmt.Sprintf("(%s LIKE %s)", e.left, e.right)
}
