package analysis

import (
	"regexp"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/generator"
	"github.com/opal-lang/hyperscript/core/visit"
)

// Match is a node whose rendered source matched a pattern.
type Match struct {
	Node   *ast.Node
	Text   string
	Line   int
	Column int
}

// MatchText renders every node of the given types (commands when none are
// given) and returns those whose text matches re, in pre-order.
func MatchText(root *ast.Node, re *regexp.Regexp, types ...string) []Match {
	if len(types) == 0 {
		types = []string{ast.TypeCommand}
	}
	want := visit.OfType(types...)

	var out []Match
	visit.Inspect(root, func(n *ast.Node) bool {
		if !want(n) {
			return true
		}
		text := generator.Snippet(n)
		if re.MatchString(text) {
			out = append(out, Match{Node: n, Text: text, Line: n.Line, Column: n.Column})
		}
		return true
	})
	return out
}

// Wildcard is the identifier name that matches any subtree in a shape
// pattern.
const Wildcard = "_"

// MatchShape returns the nodes structurally equal to pattern, ignoring
// source ranges. An identifier named "_" in pattern matches any node.
func MatchShape(root, pattern *ast.Node) []*ast.Node {
	return visit.FindNodes(root, func(n *ast.Node) bool {
		return sameShape(n, pattern)
	})
}

func sameShape(n, pattern *ast.Node) bool {
	if pattern.Is(ast.TypeIdentifier) && pattern.Str("name") == Wildcard {
		return n != nil
	}
	if n == nil || pattern == nil {
		return n == pattern
	}
	if n.Type != pattern.Type || len(n.Fields) != len(pattern.Fields) {
		return false
	}
	for _, pf := range pattern.Fields {
		v, ok := n.Get(pf.Name)
		if !ok || !sameValue(v, pf.Value) {
			return false
		}
	}
	return true
}

func sameValue(v, pattern any) bool {
	if pn, ok := pattern.(*ast.Node); ok {
		n, _ := v.(*ast.Node)
		return sameShape(n, pn)
	}
	if pl, ok := pattern.([]*ast.Node); ok {
		l, ok := v.([]*ast.Node)
		if !ok || len(l) != len(pl) {
			return false
		}
		for i := range pl {
			if !sameShape(l[i], pl[i]) {
				return false
			}
		}
		return true
	}
	if ps, ok := pattern.([]string); ok {
		s, ok := v.([]string)
		if !ok || len(s) != len(ps) {
			return false
		}
		for i := range ps {
			if s[i] != ps[i] {
				return false
			}
		}
		return true
	}
	return v == pattern
}
