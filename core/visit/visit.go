// Package visit walks open-field syntax trees.
//
// A walk is depth-first and pre-order. Every field holding a child node or a
// list of child nodes is descended into, in field order; scalars are not.
// Walks never mutate the input tree. When a hook calls Cursor.Replace, the
// nodes on the path from the root to the replaced node are copied and the
// copy is returned, so callers holding the original root observe no change.
package visit

import (
	"fmt"
	"maps"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/invariant"
)

// Visitor holds the hooks of one pass. Any hook may be nil.
type Visitor struct {
	// Enter runs before a node's children are visited.
	Enter func(*Cursor)
	// On runs per node type, after Enter.
	On map[string]func(*Cursor)
	// Exit runs after a node's children are visited. It sees the rebuilt
	// node when a descendant was replaced.
	Exit func(*Cursor)
}

// PathStep locates a child within its parent. Index is -1 for single-node
// fields.
type PathStep struct {
	Field string
	Index int
}

func (s PathStep) String() string {
	if s.Index < 0 {
		return s.Field
	}
	return fmt.Sprintf("%s[%d]", s.Field, s.Index)
}

// Cursor is handed to every hook.
type Cursor struct {
	node    *ast.Node
	parent  *ast.Node
	path    []PathStep
	scope   map[string]any
	walk    *walker
	skip    bool
	replace []*ast.Node
	hasRepl bool
	done    bool
}

// Node returns the node being visited.
func (c *Cursor) Node() *ast.Node { return c.node }

// Parent returns the parent of the node, or nil at the root.
func (c *Cursor) Parent() *ast.Node { return c.parent }

// Path returns the field path from the root to the node.
func (c *Cursor) Path() []PathStep {
	return append([]PathStep(nil), c.path...)
}

// PathString renders Path as "commands[0].args[1]".
func (c *Cursor) PathString() string {
	parts := make([]string, len(c.path))
	for i, s := range c.path {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Depth is the number of ancestors.
func (c *Cursor) Depth() int { return len(c.path) }

// Scope is this node's copy of its parent's scope. Entries written here are
// seen by descendants but not by siblings or ancestors.
func (c *Cursor) Scope() map[string]any {
	c.live()
	return c.scope
}

// Skip stops the walk from descending into the node's children.
func (c *Cursor) Skip() {
	c.live()
	c.skip = true
}

// Stop aborts the whole walk after the current hook returns.
func (c *Cursor) Stop() {
	c.live()
	c.walk.stopped = true
}

// Replace substitutes the node with zero, one or several nodes. Zero deletes
// it; several are spliced into the parent's list. Replacement nodes are not
// walked.
func (c *Cursor) Replace(nodes ...*ast.Node) {
	c.live()
	for _, n := range nodes {
		invariant.Precondition(n != nil, "replacement nodes must not be nil")
	}
	c.replace = nodes
	c.hasRepl = true
}

func (c *Cursor) live() {
	invariant.Invariant(!c.done, "cursor used after its visit finished (path %s)", c.PathString())
}

type walker struct {
	v       Visitor
	stopped bool
}

// Walk runs v over root and returns the resulting tree: root itself when
// nothing was replaced, nil when root was deleted, and a program node
// holding the replacements when root was replaced by several nodes.
func Walk(root *ast.Node, v Visitor) *ast.Node {
	if root == nil {
		return nil
	}
	w := &walker{v: v}
	out, _ := w.visit(root, nil, nil, map[string]any{})
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return ast.Program(out)
}

// Inspect is a read-only walk. fn returns false to skip a node's children.
func Inspect(root *ast.Node, fn func(*ast.Node) bool) {
	Walk(root, Visitor{Enter: func(c *Cursor) {
		if !fn(c.Node()) {
			c.Skip()
		}
	}})
}

// visit returns the nodes that take n's place and whether they differ from n.
func (w *walker) visit(n, parent *ast.Node, path []PathStep, inherited map[string]any) ([]*ast.Node, bool) {
	c := &Cursor{node: n, parent: parent, path: path, scope: maps.Clone(inherited), walk: w}
	defer func() { c.done = true }()

	if w.v.Enter != nil {
		w.v.Enter(c)
	}
	if hook := w.v.On[n.Type]; hook != nil && !c.hasRepl && !w.stopped {
		hook(c)
	}
	if c.hasRepl {
		return c.replace, true
	}
	if w.stopped {
		return []*ast.Node{n}, false
	}

	current, changed := n, false
	if !c.skip {
		current, changed = w.children(n, path, c.scope)
	}

	if w.v.Exit != nil && !w.stopped {
		c.node = current
		w.v.Exit(c)
		if c.hasRepl {
			return c.replace, true
		}
	}
	return []*ast.Node{current}, changed
}

// children walks n's child fields, copying n on first change.
func (w *walker) children(n *ast.Node, path []PathStep, scope map[string]any) (*ast.Node, bool) {
	var out *ast.Node // copy of n, made lazily
	ensure := func() {
		if out == nil {
			out = &ast.Node{Type: n.Type, Start: n.Start, End: n.End, Line: n.Line, Column: n.Column}
			out.Fields = append([]ast.Field(nil), n.Fields...)
		}
	}

	for i, f := range n.Fields {
		if w.stopped {
			break
		}
		if child, ok := ast.AsNode(f.Value); ok {
			repl, changed := w.visit(child, n, extend(path, f.Name, -1), scope)
			if !changed {
				continue
			}
			ensure()
			switch len(repl) {
			case 0:
				out.Fields[i].Value = (*ast.Node)(nil)
			case 1:
				out.Fields[i].Value = repl[0]
			default:
				out.Fields[i].Value = repl
			}
			continue
		}

		list, ok := ast.AsNodeList(f.Value)
		if !ok {
			continue
		}
		var rebuilt []*ast.Node
		listChanged := false
		for j, child := range list {
			if child == nil || w.stopped {
				if listChanged {
					rebuilt = append(rebuilt, child)
				}
				continue
			}
			repl, changed := w.visit(child, n, extend(path, f.Name, j), scope)
			if changed && !listChanged {
				listChanged = true
				rebuilt = append(make([]*ast.Node, 0, len(list)+len(repl)), list[:j]...)
			}
			if listChanged {
				rebuilt = append(rebuilt, repl...)
			}
		}
		if listChanged {
			ensure()
			if rebuilt == nil {
				rebuilt = []*ast.Node{}
			}
			out.Fields[i].Value = rebuilt
		}
	}

	if out == nil {
		return n, false
	}
	out.Fields = compact(out.Fields)
	return out, true
}

// compact drops single-child fields whose child was deleted.
func compact(fields []ast.Field) []ast.Field {
	kept := fields[:0]
	for _, f := range fields {
		if c, ok := f.Value.(*ast.Node); ok && c == nil {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func extend(path []PathStep, field string, index int) []PathStep {
	out := make([]PathStep, len(path), len(path)+1)
	copy(out, path)
	return append(out, PathStep{Field: field, Index: index})
}
