package planner

import (
	"fmt"
)

type CountKind int

const (
	// CountConstant is a fixed row count.
	CountConstant CountKind = iota
	// CountParameter reads the count from a named execution parameter.
	CountParameter
	// CountFromChild is the row count of the child plus Delta. The child must be able to count itself.
	CountFromChild
)

// Count is the source of a Skip or Take row count. It is resolved once per pass.
type Count struct {
	Kind      CountKind
	Value     int
	Parameter string
	Delta     int
}

func ConstantCount(n int) Count {
	return Count{Kind: CountConstant, Value: n}
}

func ParameterCount(name string) Count {
	return Count{Kind: CountParameter, Parameter: name}
}

// ChildCount resolves to the child's row count plus delta, e.g. ChildCount(-3) skips all but the last three rows.
func ChildCount(delta int) Count {
	return Count{Kind: CountFromChild, Delta: delta}
}

func (c Count) String() string {
	switch c.Kind {
	case CountParameter:
		return "$" + c.Parameter
	case CountFromChild:
		return fmt.Sprintf("count%+d", c.Delta)
	}
	return fmt.Sprintf("%d", c.Value)
}

// SkipNode drops the first Count rows of its child.
type SkipNode struct {
	unaryNode
	Count Count
}

func NewSkipNode(child PlanNode, count Count) *SkipNode {
	return &SkipNode{
		unaryNode: unaryNode{Child: child},
		Count:     count,
	}
}

func (n *SkipNode) Kind() NodeKind {
	return KindSkip
}

func (n *SkipNode) Header() Header {
	return n.Child.Header()
}

func (n *SkipNode) String() string {
	return fmt.Sprintf("Skip: %s", n.Count)
}

// TakeNode limits the number of output tuples.
type TakeNode struct {
	unaryNode
	Count Count
}

func NewTakeNode(child PlanNode, count Count) *TakeNode {
	return &TakeNode{
		unaryNode: unaryNode{Child: child},
		Count:     count,
	}
}

func (n *TakeNode) Kind() NodeKind {
	return KindTake
}

func (n *TakeNode) Header() Header {
	return n.Child.Header()
}

func (n *TakeNode) String() string {
	return fmt.Sprintf("Take: %s", n.Count)
}
