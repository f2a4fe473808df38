package analyzer

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/graph"
)

// computeMetrics derives the syntactic measures for one callable from its
// definition node and body. Everything here is computed from the tree alone;
// no execution, no type inference.
func computeMetrics(fn, body *tree_sitter.Node, numParams, numDecorators int, hasDoc bool) graph.Metrics {
	m := graph.Metrics{
		LinesOfCode:   int(fn.EndPosition().Row) - int(fn.StartPosition().Row) + 1,
		Complexity:    1,
		NumParameters: numParams,
		NumDecorators: numDecorators,
		HasDocstring:  hasDoc,
	}
	countConstructs(body, &m)
	m.MaxNestingDepth = maxNestingDepth(body, 0)
	return m
}

// countConstructs walks the body counting decision points. Cyclomatic
// complexity starts at 1 and adds one per branch, loop, exception handler,
// context manager, assertion and boolean operator. Nested definitions are
// included: a closure's branches count toward its enclosing callable, the
// same way its lines do.
func countConstructs(n *tree_sitter.Node, m *graph.Metrics) {
	switch n.Kind() {
	case "if_statement", "elif_clause", "conditional_expression":
		m.Complexity++
		m.NumBranches++
	case "for_statement", "while_statement":
		m.Complexity++
		m.NumLoops++
	case "except_clause", "with_statement", "assert_statement", "boolean_operator":
		m.Complexity++
	case "return_statement":
		m.NumReturns++
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		countConstructs(n.NamedChild(i), m)
	}
}

// maxNestingDepth returns the deepest stack of compound statements below n.
func maxNestingDepth(n *tree_sitter.Node, depth int) int {
	deepest := depth
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		next := depth
		switch c.Kind() {
		case "if_statement", "for_statement", "while_statement",
			"with_statement", "try_statement":
			next = depth + 1
		}
		if d := maxNestingDepth(c, next); d > deepest {
			deepest = d
		}
	}
	return deepest
}
