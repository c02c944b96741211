package planner

import (
	"fmt"
	"strings"

	"mit.edu/dsg/qexec/common"
)

type JoinType int

const (
	InnerJoin JoinType = iota
	LeftOuterJoin
)

func (t JoinType) String() string {
	if t == LeftOuterJoin {
		return "left outer"
	}
	return "inner"
}

// JoinAlgorithm names a physical join strategy.
type JoinAlgorithm int

const (
	// AlgorithmAuto lets the binder choose from the capabilities of the operands.
	AlgorithmAuto JoinAlgorithm = iota
	AlgorithmMerge
	AlgorithmIndex
	AlgorithmNestedLoop
)

func (a JoinAlgorithm) String() string {
	switch a {
	case AlgorithmAuto:
		return "auto"
	case AlgorithmMerge:
		return "merge"
	case AlgorithmIndex:
		return "index"
	case AlgorithmNestedLoop:
		return "nested_loop"
	}
	return "unknown"
}

// KeyPair equates column Left of the left input with column Right of the right input.
type KeyPair struct {
	Left  int
	Right int
}

// JoinNode is an equi-join of two inputs on a set of key pairs. Output rows are the left row followed by
// the right row, in left order. Algorithm is a hint: AlgorithmAuto lets the binder pick, any other value
// forces that algorithm and fails binding if the inputs cannot support it.
type JoinNode struct {
	Left      PlanNode
	Right     PlanNode
	Keys      []KeyPair
	Type      JoinType
	Algorithm JoinAlgorithm
	header    Header
}

func NewJoinNode(left, right PlanNode, keys []KeyPair, joinType JoinType) *JoinNode {
	return &JoinNode{
		Left:   left,
		Right:  right,
		Keys:   keys,
		Type:   joinType,
		header: left.Header().Concat(right.Header()),
	}
}

// WithAlgorithm returns a copy of the node forcing the given algorithm.
func (n *JoinNode) WithAlgorithm(a JoinAlgorithm) *JoinNode {
	cp := *n
	cp.Algorithm = a
	return &cp
}

func (n *JoinNode) Kind() NodeKind {
	return KindJoin
}

func (n *JoinNode) Header() Header {
	return n.header
}

func (n *JoinNode) OutputSchema() []common.Type {
	return n.header.Types()
}

func (n *JoinNode) Children() []PlanNode {
	return []PlanNode{n.Left, n.Right}
}

func (n *JoinNode) String() string {
	keys := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		keys[i] = fmt.Sprintf("#%d = #%d", k.Left, k.Right)
	}
	return fmt.Sprintf("Join (%s, %s): %s", n.Type, n.Algorithm, strings.Join(keys, " AND "))
}
