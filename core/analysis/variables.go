package analysis

import (
	"slices"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/visit"
)

// VarScope classifies where a variable lives.
type VarScope string

const (
	ScopeLocal  VarScope = "local"  // :x, or a plain name
	ScopeGlobal VarScope = "global" // $x
	ScopeLoop   VarScope = "loop"   // bound by for / repeat for
	ScopeParam  VarScope = "param"  // def or behavior parameter
)

// Location is a source position.
type Location struct {
	Line   int
	Column int
}

// Variable is the usage record of one name.
type Variable struct {
	Name   string
	Scope  VarScope
	Reads  []Location
	Writes []Location
}

// Usage maps variable names to their records.
type Usage struct {
	Variables map[string]*Variable
}

// Names returns the recorded names, sorted.
func (u *Usage) Names() []string {
	names := make([]string, 0, len(u.Variables))
	for name := range u.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unused returns variables written but never read. Loop variables and
// parameters count as written.
func (u *Usage) Unused() []string {
	var out []string
	for _, name := range u.Names() {
		if v := u.Variables[name]; len(v.Reads) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Undefined returns variables read but never written. Globals are
// excluded; they may be set by another script.
func (u *Usage) Undefined() []string {
	var out []string
	for _, name := range u.Names() {
		v := u.Variables[name]
		if len(v.Writes) == 0 && v.Scope != ScopeGlobal {
			out = append(out, name)
		}
	}
	return out
}

// implicit names are provided by the execution context.
var implicit = map[string]bool{
	"me": true, "it": true, "you": true, "result": true,
	"event": true, "target": true, "detail": true,
}

// writers name the argument or modifier a command assigns to.
var writers = map[string]string{
	"set":       "args",
	"default":   "args",
	"increment": "args",
	"decrement": "args",
	"put":       "into",
}

const (
	bindingsKey = "analysis.bindings"
	commandKey  = "analysis.command"
)

// VariableUsage records reads and writes of every variable. Scopes are
// tracked per subtree, so a loop variable is only bound inside its loop.
func VariableUsage(root *ast.Node) *Usage {
	u := &Usage{Variables: map[string]*Variable{}}

	record := func(n *ast.Node, scope VarScope, write bool) {
		name := n.Str("name")
		v := u.Variables[name]
		if v == nil {
			v = &Variable{Name: name, Scope: scope}
			u.Variables[name] = v
		}
		loc := Location{Line: n.Line, Column: n.Column}
		if write {
			v.Writes = append(v.Writes, loc)
		} else {
			v.Reads = append(v.Reads, loc)
		}
	}

	bind := func(c *visit.Cursor, params []*ast.Node, scope VarScope) {
		bound := copyBindings(c)
		for _, p := range params {
			if p.Is(ast.TypeIdentifier) && !p.IsError() {
				bound[p.Str("name")] = scope
				record(p, scope, true)
			}
		}
		c.Scope()[bindingsKey] = bound
	}

	visit.Walk(root, visit.Visitor{Enter: func(c *visit.Cursor) {
		n := c.Node()
		switch n.Type {
		case ast.TypeFunction, ast.TypeBehavior:
			bind(c, n.Children("params"), ScopeParam)
			return
		case ast.TypeCommand:
			c.Scope()[commandKey] = n.Str("name")
			switch n.Str("name") {
			case "for":
				bind(c, n.Children("args"), ScopeLoop)
			case "repeat":
				if n.ModifierMap()["in"] != nil {
					bind(c, n.Children("args"), ScopeLoop)
				}
			}
			return
		case ast.TypeIdentifier:
		default:
			return
		}

		name := n.Str("name")
		if n.IsError() || implicit[name] || !isVariableRef(c) {
			return
		}
		if isLoopBinding(c) {
			// Recorded when the loop was entered.
			return
		}

		bound, _ := c.Scope()[bindingsKey].(map[string]VarScope)
		scope, ok := bound[name]
		if !ok {
			scope = scopeOf(name)
		}

		if isWriteTarget(c) {
			record(n, scope, true)
			if cmd, _ := c.Scope()[commandKey].(string); cmd == "increment" || cmd == "decrement" {
				record(n, scope, false)
			}
			return
		}
		record(n, scope, false)
	}})
	return u
}

func copyBindings(c *visit.Cursor) map[string]VarScope {
	out := map[string]VarScope{}
	if prev, ok := c.Scope()[bindingsKey].(map[string]VarScope); ok {
		for k, v := range prev {
			out[k] = v
		}
	}
	return out
}

func scopeOf(name string) VarScope {
	if strings.HasPrefix(name, "$") {
		return ScopeGlobal
	}
	return ScopeLocal
}

// isVariableRef filters identifiers that name something other than a
// variable: callees, property names and conversion types.
func isVariableRef(c *visit.Cursor) bool {
	parent := c.Parent()
	if parent == nil {
		return true
	}
	path := c.Path()
	field := path[len(path)-1].Field
	switch parent.Type {
	case ast.TypeFunction, ast.TypeBehavior:
		return field != "params"
	case ast.TypeCall:
		return field != "callee"
	case ast.TypeMember:
		return field != "property" || parent.Bool("computed")
	case ast.TypePossessive:
		return field != "property"
	case ast.TypeBinary:
		return !(parent.Str("operator") == "as" && field == "right")
	case ast.TypeCommand:
		// send/trigger name an event, not a variable.
		name := parent.Str("name")
		return !(field == "args" && (name == "send" || name == "trigger"))
	}
	return true
}

func isLoopBinding(c *visit.Cursor) bool {
	parent := c.Parent()
	if !parent.Is(ast.TypeCommand) {
		return false
	}
	path := c.Path()
	last := path[len(path)-1]
	if last.Field != "args" || last.Index != 0 {
		return false
	}
	switch parent.Str("name") {
	case "for":
		return true
	case "repeat":
		return parent.ModifierMap()["in"] != nil
	}
	return false
}

func isWriteTarget(c *visit.Cursor) bool {
	parent := c.Parent()
	if parent == nil {
		return false
	}
	path := c.Path()
	last := path[len(path)-1]
	switch parent.Type {
	case ast.TypeAssignment:
		return last.Field == "target"
	case ast.TypeCommand:
		return writers[parent.Str("name")] == "args" && last.Field == "args" && last.Index == 0
	case ast.TypeModifiers:
		cmd, _ := c.Scope()[commandKey].(string)
		return writers[cmd] == last.Field
	}
	return false
}
