// Package analysis runs read-only passes over syntax trees: complexity
// metrics, smell detection, dependency extraction, variable usage and
// pattern matching. Every pass accumulates into its own result value and
// leaves the tree untouched.
package analysis

import (
	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/visit"
)

// Complexity holds the metrics of one subtree.
type Complexity struct {
	// Cyclomatic is 1 plus the number of decision points.
	Cyclomatic int
	// Cognitive weights each decision point by its block nesting.
	Cognitive int
	// MaxNesting is the deepest block nesting seen.
	MaxNesting int
}

// FeatureComplexity is the complexity of one top-level feature.
type FeatureComplexity struct {
	Kind   string // node type
	Name   string // event, function or behavior name
	Line   int
	Column int
	Node   *ast.Node
	Complexity
}

const nestingKey = "analysis.nesting"

// isBlock reports commands that open a nested command list.
func isBlock(n *ast.Node) bool {
	if !n.Is(ast.TypeCommand) {
		return false
	}
	switch n.Str("name") {
	case "if", "unless", "repeat", "for", "tell":
		return true
	}
	return false
}

// isDecision reports nodes that add a branch to the control-flow graph.
func isDecision(n *ast.Node) bool {
	switch n.Type {
	case ast.TypeConditional:
		return true
	case ast.TypeBinary:
		op := n.Str("operator")
		return op == "and" || op == "or"
	case ast.TypeCommand:
		return isBlock(n) && n.Str("name") != "tell"
	}
	return false
}

func nesting(c *visit.Cursor) int {
	d, _ := c.Scope()[nestingKey].(int)
	return d
}

// Measure computes the complexity of the subtree rooted at root.
func Measure(root *ast.Node) Complexity {
	m := Complexity{Cyclomatic: 1}
	visit.Walk(root, visit.Visitor{Enter: func(c *visit.Cursor) {
		n := c.Node()
		depth := nesting(c)
		if isDecision(n) {
			m.Cyclomatic++
			if n.Is(ast.TypeBinary) {
				m.Cognitive++
			} else {
				m.Cognitive += 1 + depth
			}
		}
		if isBlock(n) {
			c.Scope()[nestingKey] = depth + 1
			m.MaxNesting = max(m.MaxNesting, depth+1)
		}
	}})
	return m
}

// MeasureFeatures measures every event handler, function, behavior and
// init block in the tree separately. Handlers nested in a behavior are
// reported on their own and also count toward the behavior.
func MeasureFeatures(root *ast.Node) []FeatureComplexity {
	var out []FeatureComplexity
	visit.Inspect(root, func(n *ast.Node) bool {
		switch n.Type {
		case ast.TypeEventHandler, ast.TypeFunction, ast.TypeBehavior, ast.TypeInit:
			out = append(out, FeatureComplexity{
				Kind:       n.Type,
				Name:       featureName(n),
				Line:       n.Line,
				Column:     n.Column,
				Node:       n,
				Complexity: Measure(n),
			})
		case ast.TypeCommand, ast.TypeCommandSequence:
			// Features never nest below commands except through `on`
			// used as a value, which is measured with its command.
			return false
		}
		return true
	})
	return out
}

func featureName(n *ast.Node) string {
	if n.Is(ast.TypeEventHandler) {
		return n.Str("event")
	}
	return n.Str("name")
}
