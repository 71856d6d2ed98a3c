package eval

import (
	"errors"
	"fmt"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// navigation words parse to calls; they read their selector argument as
// syntax, so they are handled before the callee is evaluated.
var navigation = map[string]bool{
	"closest": true, "first": true, "last": true, "next": true, "previous": true,
}

func (e *Evaluator) call(c *execution.Context, n *ast.Node) (any, error) {
	callee := n.Child("callee")
	args := n.Children("args")

	if callee.Is(ast.TypeIdentifier) && navigation[callee.Str("name")] {
		if _, bound := c.Lookup(callee.Str("name")); !bound {
			return e.navigate(c, callee.Str("name"), args)
		}
	}

	fn, err := e.Evaluate(c, callee)
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(args))
	for _, arg := range args {
		v, err := e.Evaluate(c, arg)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	switch f := fn.(type) {
	case *execution.Function:
		return Invoke(c, f, values)
	case Func:
		return f(c, values)
	case func(c *execution.Context, args []any) (any, error):
		return f(c, values)
	case nil, notFound:
		if callee.Is(ast.TypeIdentifier) {
			return nil, fmt.Errorf("%s is not defined", callee.Str("name"))
		}
	}
	return nil, fmt.Errorf("%s is not a function", TypeName(fn))
}

// Invoke runs a script function with fresh locals. A return completes the
// call with its value; halt and failures propagate as errors.
func Invoke(c *execution.Context, fn *execution.Function, args []any) (any, error) {
	fc := c.Call()
	for i, param := range fn.Params {
		var v any
		if i < len(args) {
			v = args[i]
		}
		if err := fc.Locals.Set(param, v); err != nil {
			return nil, err
		}
	}

	done := fc.RunNode(ast.Sequence(fn.Body))
	returned := done.Kind == flow.KindReturn
	done = flow.Function(done)
	if done.Abrupt() {
		return nil, fmt.Errorf("%s: %w", fn.Name, done.AsError())
	}
	if returned {
		return done.Value, nil
	}
	return nil, nil
}

func (e *Evaluator) navigate(c *execution.Context, name string, args []*ast.Node) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%s needs an argument", name)
	}

	switch name {
	case "first", "last":
		items, err := e.navigationItems(c, args)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		if name == "first" {
			return items[0], nil
		}
		return items[len(items)-1], nil
	}

	selector, err := e.selectorText(c, args[0])
	if err != nil {
		return nil, err
	}
	from, err := e.origin(c, args)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("%s needs an element to start from", name)
	}

	if name == "closest" {
		el, err := from.Closest(selector)
		if err != nil {
			return nil, err
		}
		return orNil(el), nil
	}

	step := dom.Element.Next
	if name == "previous" {
		step = dom.Element.Previous
	}
	for cur := step(from); cur != nil; cur = step(cur) {
		ok, err := cur.Matches(selector)
		if err != nil {
			return nil, err
		}
		if ok {
			return cur, nil
		}
	}
	return nil, nil
}

// navigationItems lists what first and last pick from: a selector queried
// within an optional container, or any evaluated collection.
func (e *Evaluator) navigationItems(c *execution.Context, args []*ast.Node) ([]any, error) {
	if sel := args[0]; sel.Is(ast.TypeSelector) && len(args) > 1 {
		container, err := e.origin(c, args)
		if err != nil {
			return nil, err
		}
		if container == nil {
			return nil, nil
		}
		els, err := container.QueryAll(sel.Str("value"))
		if err != nil {
			return nil, err
		}
		return toAny(els), nil
	}

	v, err := e.Evaluate(c, args[0])
	if err != nil {
		return nil, err
	}
	switch items := v.(type) {
	case nil, notFound:
		return nil, nil
	case []any:
		return items, nil
	case []dom.Element:
		return toAny(items), nil
	case string:
		out := make([]any, 0, len(items))
		for _, r := range items {
			out = append(out, string(r))
		}
		return out, nil
	}
	return []any{v}, nil
}

// origin is the element navigation starts from: the second argument when
// present, else me.
func (e *Evaluator) origin(c *execution.Context, args []*ast.Node) (dom.Element, error) {
	if len(args) < 2 {
		return c.Me, nil
	}
	v, err := e.Evaluate(c, args[1])
	if err != nil {
		return nil, err
	}
	switch el := Unwrap(v).(type) {
	case nil, notFound:
		return nil, nil
	case dom.Element:
		return el, nil
	}
	return nil, errors.New("navigation origin is not an element")
}

func toAny(els []dom.Element) []any {
	out := make([]any, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out
}
