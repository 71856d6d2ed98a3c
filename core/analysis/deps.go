package analysis

import (
	"cmp"
	"slices"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/visit"
)

// Edge kinds of the dependency graph.
const (
	EdgeUses     = "uses"     // feature -> selector
	EdgeSends    = "sends"    // feature -> event
	EdgeCalls    = "calls"    // feature -> function
	EdgeTriggers = "triggers" // event -> handler listening for it
)

// Edge is one dependency. Features are named "on click", "def f",
// "behavior B" or "init"; selectors by their source text.
type Edge struct {
	From string
	To   string
	Kind string
}

// Dependencies lists what a tree touches. Every list is sorted and free of
// duplicates.
type Dependencies struct {
	Selectors   []string
	Events      []string // events handled
	SentEvents  []string // events sent or triggered
	Calls       []string // functions called
	Definitions []string // functions defined
	Commands    []string
	Edges       []Edge
}

// ExtractDependencies collects the dependencies of the tree.
func ExtractDependencies(root *ast.Node) Dependencies {
	var d Dependencies
	const featureKey = "analysis.feature"
	handlers := map[string][]string{}

	visit.Walk(root, visit.Visitor{Enter: func(c *visit.Cursor) {
		n := c.Node()
		feature, _ := c.Scope()[featureKey].(string)

		switch n.Type {
		case ast.TypeEventHandler:
			label := "on " + n.Str("event")
			d.Events = append(d.Events, n.Str("event"))
			handlers[n.Str("event")] = append(handlers[n.Str("event")], label)
			c.Scope()[featureKey] = label
		case ast.TypeFunction:
			d.Definitions = append(d.Definitions, n.Str("name"))
			c.Scope()[featureKey] = "def " + n.Str("name")
		case ast.TypeBehavior:
			c.Scope()[featureKey] = "behavior " + n.Str("name")
		case ast.TypeInit:
			c.Scope()[featureKey] = "init"

		case ast.TypeSelector:
			sel := selectorText(n)
			d.Selectors = append(d.Selectors, sel)
			if feature != "" {
				d.Edges = append(d.Edges, Edge{From: feature, To: sel, Kind: EdgeUses})
			}

		case ast.TypeCall:
			if callee := n.Child("callee"); callee.Is(ast.TypeIdentifier) && !navigation[callee.Str("name")] {
				d.Calls = append(d.Calls, callee.Str("name"))
				if feature != "" {
					d.Edges = append(d.Edges, Edge{From: feature, To: callee.Str("name"), Kind: EdgeCalls})
				}
			}

		case ast.TypeCommand:
			d.Commands = append(d.Commands, n.Str("name"))
			switch n.Str("name") {
			case "send", "trigger":
				if args := n.Children("args"); len(args) > 0 && args[0].Is(ast.TypeIdentifier) {
					ev := args[0].Str("name")
					d.SentEvents = append(d.SentEvents, ev)
					if feature != "" {
						d.Edges = append(d.Edges, Edge{From: feature, To: ev, Kind: EdgeSends})
					}
				}
			}
		}
	}})

	for _, ev := range d.SentEvents {
		for _, h := range handlers[ev] {
			d.Edges = append(d.Edges, Edge{From: ev, To: h, Kind: EdgeTriggers})
		}
	}

	for _, list := range []*[]string{&d.Selectors, &d.Events, &d.SentEvents, &d.Calls, &d.Definitions, &d.Commands} {
		slices.Sort(*list)
		*list = slices.Compact(*list)
	}
	slices.SortFunc(d.Edges, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	d.Edges = slices.Compact(d.Edges)
	return d
}

// Undefined returns functions called but never defined in the tree.
func (d Dependencies) Undefined() []string {
	var out []string
	for _, c := range d.Calls {
		if _, found := slices.BinarySearch(d.Definitions, c); !found {
			out = append(out, c)
		}
	}
	return out
}

var navigation = map[string]bool{
	"closest": true, "first": true, "last": true, "next": true, "previous": true,
}

func selectorText(n *ast.Node) string {
	v := n.Str("value")
	if n.Str("kind") == ast.SelectorQuery {
		return "<" + v + "/>"
	}
	return v
}
