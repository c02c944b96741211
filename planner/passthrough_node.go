package planner

import (
	"fmt"

	"mit.edu/dsg/qexec/common"
)

// AliasNode relabels the columns of its child. Rows pass through unchanged.
type AliasNode struct {
	unaryNode
	Name  string
	Names []string
}

func NewAliasNode(child PlanNode, name string, columnNames ...string) *AliasNode {
	return &AliasNode{
		unaryNode: unaryNode{Child: child},
		Name:      name,
		Names:     columnNames,
	}
}

func (n *AliasNode) Kind() NodeKind {
	return KindAlias
}

func (n *AliasNode) Header() Header {
	return n.Child.Header().Rename(n.Names)
}

func (n *AliasNode) String() string {
	return fmt.Sprintf("Alias: %s", n.Name)
}

// TransparentNode marks a boundary in the plan without changing anything about its child.
type TransparentNode struct {
	unaryNode
	Label string
}

func NewTransparentNode(child PlanNode, label string) *TransparentNode {
	return &TransparentNode{
		unaryNode: unaryNode{Child: child},
		Label:     label,
	}
}

func (n *TransparentNode) Kind() NodeKind {
	return KindTransparent
}

func (n *TransparentNode) Header() Header {
	return n.Child.Header()
}

func (n *TransparentNode) String() string {
	return fmt.Sprintf("Transparent: %s", n.Label)
}

// SubstitutingNode defers the choice of its implementation to bind time: Build is called exactly once when
// the node is bound and the plan it returns is bound in its place. The substitute must produce rows of the
// declared header's shape.
type SubstitutingNode struct {
	Build  func() (PlanNode, error)
	Label  string
	header Header
}

func NewSubstitutingNode(header Header, label string, build func() (PlanNode, error)) *SubstitutingNode {
	return &SubstitutingNode{
		Build:  build,
		Label:  label,
		header: header,
	}
}

func (n *SubstitutingNode) Kind() NodeKind {
	return KindSubstituting
}

func (n *SubstitutingNode) Header() Header {
	return n.header
}

func (n *SubstitutingNode) OutputSchema() []common.Type {
	return n.header.Types()
}

// Children is empty: the substitute does not exist before binding.
func (n *SubstitutingNode) Children() []PlanNode {
	return nil
}

func (n *SubstitutingNode) String() string {
	return fmt.Sprintf("Substituting: %s", n.Label)
}
