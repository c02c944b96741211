package planner

import (
	"strings"
)

// Explain renders a plan tree, one node per line, children indented under their parent.
func Explain(root PlanNode) string {
	var b strings.Builder
	explain(&b, root, 0)
	return b.String()
}

func explain(b *strings.Builder, n PlanNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.String())
	b.WriteString("\n")
	for _, child := range n.Children() {
		explain(b, child, depth+1)
	}
}
