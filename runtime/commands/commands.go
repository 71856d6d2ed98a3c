// Package commands implements the built-in commands: the control-flow
// constructs and a reference set of DOM, data and event commands.
//
// Every command follows the two-phase contract in runtime/command. Loop
// conditions are the one exception to evaluate-once: they are kept as
// nodes and re-evaluated per iteration, since that is what they mean.
package commands

import (
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/eval"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// Builtins returns a fresh instance of every built-in command.
func Builtins() []command.Command {
	return []command.Command{
		If(), Unless(), Repeat(), For(), Break(), Continue(), Halt(), Return(), Exit(), Tell(),
		Set(), Put(), Increment(), Decrement(), Log(), Call(), Get(),
		Add(), Remove(), Toggle(), Show(), Hide(),
		Send(), Trigger(), Wait(),
	}
}

// Register adds the built-ins to r.
func Register(r *command.Registry) error {
	for _, cmd := range Builtins() {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-ins.
func NewRegistry() *command.Registry {
	r := command.NewRegistry()
	r.MustRegister(Builtins()...)
	return r
}

// passThrough completes a side-effect-only command without disturbing it.
func passThrough(c *execution.Context) flow.Completion {
	return flow.Normal(c.It)
}

// targets evaluates an optional target expression into elements. A missing
// expression means me.
func targets(name string, ev execution.Evaluator, c *execution.Context, n *ast.Node) ([]dom.Element, error) {
	if n == nil {
		if c.Me == nil {
			return nil, command.Inputf(name, "no target given and no element in scope")
		}
		return []dom.Element{c.Me}, nil
	}
	v, err := ev.Evaluate(c, n)
	if err != nil {
		return nil, err
	}
	els, err := eval.Elements(v)
	if err != nil {
		return nil, command.Inputf(name, "target: %v", err)
	}
	return els, nil
}

// items turns an evaluated collection into loop items.
func items(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []dom.Element:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = el
		}
		return out
	case map[string]any:
		keys := make([]any, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		return keys
	case string:
		out := make([]any, 0, len(val))
		for _, r := range val {
			out = append(out, string(r))
		}
		return out
	}
	if eval.IsNotFound(v) {
		return nil
	}
	return []any{v}
}

// classNames reads `.a` or `.a.b` selector literals.
func classNames(n *ast.Node) ([]string, bool) {
	if !n.Is(ast.TypeSelector) || n.Str("kind") != ast.SelectorClass {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(n.Str("value"), ".") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}

type attrSpec struct {
	Name  string
	Value string
}

// attrSpecOf reads `[name]`, `[name=value]` and `@name`.
func attrSpecOf(n *ast.Node) (attrSpec, bool) {
	switch {
	case n.Is(ast.TypeAttributeRef):
		return attrSpec{Name: n.Str("name")}, true
	case n.Is(ast.TypeSelector) && n.Str("kind") == ast.SelectorAttribute:
		inner := strings.TrimSuffix(strings.TrimPrefix(n.Str("value"), "["), "]")
		name, value, _ := strings.Cut(inner, "=")
		return attrSpec{Name: strings.TrimSpace(name), Value: strings.Trim(strings.TrimSpace(value), `"'`)}, name != ""
	}
	return attrSpec{}, false
}
