// Package eval evaluates expression nodes against an execution Context.
//
// It owns the value rules every command shares: truthiness, numeric
// coercion, equality, selector resolution, collection handling and the
// `as` conversion table. Commands receive values produced here and never
// resolve selectors themselves.
package eval

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/flow"
)

// Func is a host function callable from scripts.
type Func func(c *execution.Context, args []any) (any, error)

// Error locates an evaluation failure.
type Error struct {
	Type   string
	Line   int
	Column int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s: %v", e.Line, e.Column, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Evaluator is the default execution.Evaluator.
type Evaluator struct {
	logger      *slog.Logger
	conversions map[string]Conversion
	functions   map[string]Func
	resolvers   []Resolver
}

// Resolver supplies values for names no scope binds, such as functions a
// dispatcher defined.
type Resolver func(name string) (any, bool)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithConversion adds or replaces an `as` conversion.
func WithConversion(name string, conv Conversion) Option {
	return func(e *Evaluator) { e.conversions[name] = conv }
}

// WithFunction exposes a host function under name. Script variables with
// the same name shadow it.
func WithFunction(name string, fn Func) Option {
	return func(e *Evaluator) { e.functions[name] = fn }
}

// WithResolver adds a fallback for unbound names. Resolvers run in the
// order given, after scopes and host functions.
func WithResolver(r Resolver) Option {
	return func(e *Evaluator) { e.resolvers = append(e.resolvers, r) }
}

// New creates an Evaluator with the built-in conversions.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		conversions: maps.Clone(builtinConversions),
		functions:   map[string]Func{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ execution.Evaluator = (*Evaluator)(nil)

// Evaluate returns the value of n. Failures carry the position of the
// innermost node that failed; control-flow signals raised by function
// bodies pass through unwrapped.
func (e *Evaluator) Evaluate(c *execution.Context, n *ast.Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	v, err := e.eval(c, n)
	if err == nil {
		return v, nil
	}
	var located *Error
	if flow.IsSignal(err) || errors.As(err, &located) {
		return nil, err
	}
	return nil, &Error{Type: n.Type, Line: n.Line, Column: n.Column, Err: err}
}

func (e *Evaluator) eval(c *execution.Context, n *ast.Node) (any, error) {
	switch n.Type {
	case ast.TypeLiteral:
		return n.Value("value"), nil

	case ast.TypeIdentifier:
		return e.identifier(c, n)

	case ast.TypeSelector:
		return Resolve(c, n.Str("kind"), n.Str("value"))

	case ast.TypeAttributeRef:
		if c.Me == nil {
			return nil, fmt.Errorf("@%s needs an element in scope", n.Str("name"))
		}
		return attribute(c.Me, n.Str("name")), nil

	case ast.TypeBinary:
		return e.binary(c, n)

	case ast.TypeUnary:
		return e.unary(c, n)

	case ast.TypeAssignment:
		place, err := Locate(e, c, n.Child("target"))
		if err != nil {
			return nil, err
		}
		v, err := e.Evaluate(c, n.Child("value"))
		if err != nil {
			return nil, err
		}
		return v, place(v)

	case ast.TypeCall:
		return e.call(c, n)

	case ast.TypeMember, ast.TypePossessive:
		obj, err := e.Evaluate(c, n.Child("object"))
		if err != nil {
			return nil, err
		}
		key, isAttr, err := e.propertyKey(c, n)
		if err != nil {
			return nil, err
		}
		if isAttr {
			return attributeOf(obj, key.(string))
		}
		return Get(obj, key), nil

	case ast.TypeConditional:
		test, err := e.Evaluate(c, n.Child("test"))
		if err != nil {
			return nil, err
		}
		if Truthy(test) {
			return e.Evaluate(c, n.Child("consequent"))
		}
		return e.Evaluate(c, n.Child("alternate"))

	case ast.TypeArray:
		elems := n.Children("elements")
		out := make([]any, 0, len(elems))
		for _, el := range elems {
			v, err := e.Evaluate(c, el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil

	case ast.TypeObject:
		out := map[string]any{}
		for _, prop := range n.Children("properties") {
			v, err := e.Evaluate(c, prop.Child("value"))
			if err != nil {
				return nil, err
			}
			out[prop.Str("key")] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s nodes are not expressions", n.Type)
}

func (e *Evaluator) identifier(c *execution.Context, n *ast.Node) (any, error) {
	name := n.Str("name")
	if name == ast.ErrorName {
		return nil, errors.New("cannot evaluate unparseable input")
	}
	if v, ok := c.Lookup(name); ok {
		return v, nil
	}
	if fn, ok := e.functions[name]; ok {
		return fn, nil
	}
	for _, r := range e.resolvers {
		if v, ok := r(name); ok {
			return v, nil
		}
	}
	e.logger.Debug("unbound identifier", "name", name, "line", n.Line)
	return NotFound, nil
}

// propertyKey returns the key of a member or possessive node and whether
// it names an attribute.
func (e *Evaluator) propertyKey(c *execution.Context, n *ast.Node) (any, bool, error) {
	prop := n.Child("property")
	if prop == nil {
		return nil, false, errors.New("missing property")
	}
	if n.Bool("computed") {
		key, err := e.Evaluate(c, prop)
		return key, false, err
	}
	switch prop.Type {
	case ast.TypeIdentifier:
		return prop.Str("name"), false, nil
	case ast.TypeAttributeRef:
		return prop.Str("name"), true, nil
	}
	return nil, false, fmt.Errorf("cannot use %s as a property name", prop.Type)
}

// Place is an assignable location whose object and key were already
// evaluated.
type Place func(value any) error

// Locate resolves an assignable target: a variable, a member or possessive
// property, or an attribute of me. Object and key expressions are evaluated
// now, once; the write happens when the Place is called.
func Locate(ev execution.Evaluator, c *execution.Context, target *ast.Node) (Place, error) {
	_, place, err := locate(ev, c, target, false)
	return place, err
}

// LocateValue is Locate that also reads the target's current value from the
// same evaluated object and key, for read-modify-write commands.
func LocateValue(ev execution.Evaluator, c *execution.Context, target *ast.Node) (any, Place, error) {
	return locate(ev, c, target, true)
}

func locate(ev execution.Evaluator, c *execution.Context, target *ast.Node, read bool) (any, Place, error) {
	if target == nil {
		return nil, nil, errors.New("missing assignment target")
	}
	switch target.Type {
	case ast.TypeIdentifier:
		name := target.Str("name")
		if name == ast.ErrorName {
			return nil, nil, errors.New("cannot assign to unparseable input")
		}
		var current any
		if read {
			v, err := ev.Evaluate(c, target)
			if err != nil {
				return nil, nil, err
			}
			current = v
		}
		return current, func(v any) error { return c.Assign(name, v) }, nil

	case ast.TypeAttributeRef:
		name := target.Str("name")
		if c.Me == nil {
			return nil, nil, fmt.Errorf("@%s needs an element in scope", name)
		}
		me := c.Me
		var current any
		if read {
			current = attribute(me, name)
		}
		return current, func(v any) error { return setAttributeOf(me, name, v) }, nil

	case ast.TypeMember, ast.TypePossessive:
		obj, err := ev.Evaluate(c, target.Child("object"))
		if err != nil {
			return nil, nil, err
		}
		prop := target.Child("property")
		if prop == nil {
			return nil, nil, errors.New("missing property")
		}
		var key any
		if target.Bool("computed") {
			if key, err = ev.Evaluate(c, prop); err != nil {
				return nil, nil, err
			}
		} else {
			name := prop.Str("name")
			if prop.Is(ast.TypeAttributeRef) {
				var current any
				if read {
					if current, err = attributeOf(obj, name); err != nil {
						return nil, nil, err
					}
				}
				return current, func(v any) error { return setAttributeOf(obj, name, v) }, nil
			}
			key = name
		}
		var current any
		if read {
			current = Get(obj, key)
		}
		return current, func(v any) error { return Set(obj, key, v) }, nil
	}
	return nil, nil, fmt.Errorf("cannot assign to %s", target.Type)
}

// Assign stores value into target using the context's evaluator.
func Assign(c *execution.Context, target *ast.Node, value any) error {
	place, err := Locate(c.Evaluator, c, target)
	if err != nil {
		return err
	}
	return place(value)
}
