package visit

import "github.com/opal-lang/hyperscript/core/ast"

// FindNodes returns every node under root, root included, for which pred
// holds, in pre-order.
func FindNodes(root *ast.Node, pred func(*ast.Node) bool) []*ast.Node {
	var out []*ast.Node
	Inspect(root, func(n *ast.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindFirst returns the first node in pre-order for which pred holds.
func FindFirst(root *ast.Node, pred func(*ast.Node) bool) *ast.Node {
	var found *ast.Node
	Walk(root, Visitor{Enter: func(c *Cursor) {
		if pred(c.Node()) {
			found = c.Node()
			c.Stop()
		}
	}})
	return found
}

// OfType is a FindNodes predicate matching node types.
func OfType(types ...string) func(*ast.Node) bool {
	return func(n *ast.Node) bool {
		for _, t := range types {
			if n.Type == t {
				return true
			}
		}
		return false
	}
}

// Ancestors returns the nodes from root down to target's parent. Nodes carry
// no parent pointer, so the path is found by searching for target by
// identity. It returns nil when target is root or not in the tree.
func Ancestors(root, target *ast.Node) []*ast.Node {
	var stack, found []*ast.Node
	var search func(n *ast.Node) bool
	search = func(n *ast.Node) bool {
		if n == target {
			found = append([]*ast.Node(nil), stack...)
			return true
		}
		stack = append(stack, n)
		for _, c := range n.ChildNodes() {
			if search(c) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		return false
	}
	if root == nil || target == nil {
		return nil
	}
	search(root)
	if len(found) == 0 {
		return nil
	}
	return found
}

// Count returns the number of nodes under root, root included.
func Count(root *ast.Node) int {
	n := 0
	Inspect(root, func(*ast.Node) bool {
		n++
		return true
	})
	return n
}
