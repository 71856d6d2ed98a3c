package ast

// Constructors for every node shape the parser emits. Field names used here
// are the contract between the parser, the evaluator and the generator.

// Program holds several top-level features.
func Program(body []*Node) *Node {
	return New(TypeProgram, F("body", body))
}

// EventHandler is `on <event> [from <selector>] <commands>`.
func EventHandler(event string, selector *Node, commands []*Node) *Node {
	return New(TypeEventHandler,
		F("event", event),
		F("selector", selector),
		F("commands", commands),
	)
}

// Behavior is `behavior Name(params) <features> end`.
func Behavior(name string, params []*Node, body []*Node) *Node {
	return New(TypeBehavior,
		F("name", name),
		F("params", params),
		F("body", body),
	)
}

// Function is `def name(params) <commands> end`.
func Function(name string, params []*Node, body []*Node) *Node {
	return New(TypeFunction,
		F("name", name),
		F("params", params),
		F("body", body),
	)
}

// Init is `init <commands> end`.
func Init(body []*Node) *Node {
	return New(TypeInit, F("body", body))
}

// Sequence is an ordered command list run strictly in order.
func Sequence(commands []*Node) *Node {
	return New(TypeCommandSequence, F("commands", commands))
}

// Command is one command invocation. Keyword modifiers hang off a modifiers
// node so they stay traversable.
func Command(name string, args []*Node, modifiers *Node, blocking bool) *Node {
	if modifiers == nil {
		modifiers = New(TypeModifiers)
	}
	return New(TypeCommand,
		F("name", name),
		F("args", args),
		F("modifiers", modifiers),
		F("isBlocking", blocking),
	)
}

// Modifiers maps keyword -> expression, in source order.
func Modifiers(fields ...Field) *Node {
	return New(TypeModifiers, fields...)
}

// ModifierMap returns a command node's modifiers keyed by keyword.
func (n *Node) ModifierMap() map[string]*Node {
	out := make(map[string]*Node)
	mods := n.Child("modifiers")
	if mods == nil {
		return out
	}
	for _, f := range mods.Fields {
		if c, ok := AsNode(f.Value); ok {
			out[f.Name] = c
		}
	}
	return out
}

// Literal wraps a scalar value. raw is the original source spelling.
func Literal(value any, raw string) *Node {
	return New(TypeLiteral, F("value", value), F("raw", raw))
}

// Identifier is a bare name, including context references such as me and it.
func Identifier(name string) *Node {
	return New(TypeIdentifier, F("name", name))
}

// ErrorNode is the sentinel substituted for unparseable input.
func ErrorNode() *Node {
	return Identifier(ErrorName)
}

// Selector is a CSS selector literal of the given kind.
func Selector(kind, value string) *Node {
	return New(TypeSelector, F("kind", kind), F("value", value))
}

// AttributeRef is `@name`.
func AttributeRef(name string) *Node {
	return New(TypeAttributeRef, F("name", name))
}

// Binary is a left/right operator expression.
func Binary(op string, left, right *Node) *Node {
	return New(TypeBinary, F("operator", op), F("left", left), F("right", right))
}

// Unary is a prefix operator expression.
func Unary(op string, operand *Node) *Node {
	return New(TypeUnary, F("operator", op), F("operand", operand))
}

// Assignment is `target = value`.
func Assignment(target, value *Node) *Node {
	return New(TypeAssignment, F("target", target), F("value", value))
}

// Call is `callee(args...)`.
func Call(callee *Node, args []*Node) *Node {
	return New(TypeCall, F("callee", callee), F("args", args))
}

// Member is `object.property` or, when computed, `object[property]`.
func Member(object, property *Node, computed bool) *Node {
	return New(TypeMember, F("object", object), F("property", property), F("computed", computed))
}

// Possessive is `object's property`.
func Possessive(object, property *Node) *Node {
	return New(TypePossessive, F("object", object), F("property", property))
}

// Conditional is `if test then consequent [else alternate]`.
func Conditional(test, consequent, alternate *Node) *Node {
	return New(TypeConditional,
		F("test", test),
		F("consequent", consequent),
		F("alternate", alternate),
	)
}

// Array is `[a, b, ...]`.
func Array(elements []*Node) *Node {
	return New(TypeArray, F("elements", elements))
}

// Object is `{key: value, ...}`.
func Object(properties []*Node) *Node {
	return New(TypeObject, F("properties", properties))
}

// Property is one `key: value` entry of an object literal.
func Property(key string, value *Node) *Node {
	return New(TypeProperty, F("key", key), F("value", value))
}
