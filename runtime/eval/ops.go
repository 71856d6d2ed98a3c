package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
)

func (e *Evaluator) binary(c *execution.Context, n *ast.Node) (any, error) {
	op := n.Str("operator")
	left, right := n.Child("left"), n.Child("right")

	// Operators that read their operands as syntax, or short-circuit.
	switch op {
	case "and", "or":
		l, err := e.Evaluate(c, left)
		if err != nil {
			return nil, err
		}
		if Truthy(l) == (op == "or") {
			return l, nil
		}
		return e.Evaluate(c, right)
	case "as":
		return e.convert(c, left, right)
	case "of":
		return e.of(c, left, right)
	case "matches":
		return e.matches(c, left, right)
	}

	l, err := e.Evaluate(c, left)
	if err != nil {
		return nil, err
	}
	r, err := e.Evaluate(c, right)
	if err != nil {
		return nil, err
	}

	switch op {
	case "+":
		if isNumeric(l) && isNumeric(r) {
			x, _ := ToNumber(l)
			y, _ := ToNumber(r)
			return x + y, nil
		}
		return ToString(l) + ToString(r), nil
	case "-", "*", "/", "%", "mod":
		return arithmetic(op, l, r)
	case "<", "<=", ">", ">=":
		return compare(op, l, r)
	case "==", "is":
		return LooseEqual(l, r), nil
	case "!=", "is not":
		return !LooseEqual(l, r), nil
	case "===":
		return StrictEqual(l, r), nil
	case "!==":
		return !StrictEqual(l, r), nil
	case "contains":
		return Contains(l, r), nil
	case "in":
		return Contains(r, l), nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}

func arithmetic(op string, l, r any) (any, error) {
	x, err := ToNumber(l)
	if err != nil {
		return nil, err
	}
	y, err := ToNumber(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		return x / y, nil
	default:
		return math.Mod(x, y), nil
	}
}

func compare(op string, l, r any) (any, error) {
	var c int
	ls, lok := l.(string)
	rs, rok := r.(string)
	if lok && rok {
		c = strings.Compare(ls, rs)
	} else {
		x, err := ToNumber(l)
		if err != nil {
			return nil, err
		}
		y, err := ToNumber(r)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}
		switch {
		case x < y:
			c = -1
		case x > y:
			c = 1
		}
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

// Contains backs `contains` and `in`. Strings test substrings, lists test
// membership, maps test keys and elements test descent.
func Contains(container, item any) bool {
	switch c := container.(type) {
	case nil, notFound:
		return false
	case string:
		return strings.Contains(c, ToString(item))
	case []any:
		for _, v := range c {
			if LooseEqual(v, item) {
				return true
			}
		}
		return false
	case map[string]any:
		_, ok := c[ToString(item)]
		return ok
	case []dom.Element:
		for _, el := range c {
			if Contains(el, item) {
				return true
			}
		}
		return false
	case dom.Element:
		els, err := Elements(item)
		if err != nil || len(els) == 0 {
			return false
		}
		for _, el := range els {
			if !isDescendant(c, el) {
				return false
			}
		}
		return true
	}
	return false
}

// isDescendant reports whether el is inside ancestor, or is ancestor.
func isDescendant(ancestor, el dom.Element) bool {
	for cur := el; cur != nil; cur = cur.Parent() {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// of reads `prop of obj` and `@attr of obj`.
func (e *Evaluator) of(c *execution.Context, left, right *ast.Node) (any, error) {
	obj, err := e.Evaluate(c, right)
	if err != nil {
		return nil, err
	}
	switch left.Type {
	case ast.TypeIdentifier:
		return Get(obj, left.Str("name")), nil
	case ast.TypeAttributeRef:
		return attributeOf(obj, left.Str("name"))
	}
	return nil, fmt.Errorf("expected a property name before 'of', got %s", left.Type)
}

// matches tests elements against a CSS selector, or strings against a
// regular expression.
func (e *Evaluator) matches(c *execution.Context, left, right *ast.Node) (any, error) {
	l, err := e.Evaluate(c, left)
	if err != nil {
		return nil, err
	}
	pattern, err := e.selectorText(c, right)
	if err != nil {
		return nil, err
	}

	switch v := Unwrap(l).(type) {
	case nil, notFound:
		return false, nil
	case string:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		return re.MatchString(v), nil
	}

	els, err := Elements(l)
	if err != nil {
		return false, nil
	}
	if len(els) == 0 {
		return false, nil
	}
	for _, el := range els {
		ok, err := el.Matches(pattern)
		if err != nil {
			return nil, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// selectorText reads a selector literal as text; any other expression
// must evaluate to a string.
func (e *Evaluator) selectorText(c *execution.Context, n *ast.Node) (string, error) {
	if n.Is(ast.TypeSelector) {
		return n.Str("value"), nil
	}
	v, err := e.Evaluate(c, n)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a selector, got %s", TypeName(v))
	}
	return s, nil
}

func (e *Evaluator) unary(c *execution.Context, n *ast.Node) (any, error) {
	op := n.Str("operator")
	v, err := e.Evaluate(c, n.Child("operand"))
	if err != nil {
		return nil, err
	}
	switch op {
	case "not":
		return !Truthy(v), nil
	case "no":
		return IsEmpty(v) || v == false, nil
	case "empty":
		return IsEmpty(v), nil
	case "exists":
		if els, ok := v.([]dom.Element); ok {
			return len(els) > 0, nil
		}
		return !IsNull(v), nil
	case "-":
		x, err := ToNumber(v)
		if err != nil {
			return nil, err
		}
		return -x, nil
	case "+":
		return ToNumber(v)
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}
