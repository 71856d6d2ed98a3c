// Package ast defines the open-field syntax tree shared by the parser, the
// evaluator, the dispatcher and the tooling passes.
//
// A Node is a tagged variant: a Type discriminator, source range metadata and
// an ordered list of named fields. A field value is either a child (*Node), a
// child list ([]*Node) or a scalar (string, float64, bool, nil, []string).
// Type and range live outside Fields, so every field is a traversal candidate
// and generic passes never need per-type schemas.
package ast

import "fmt"

// Node type tags produced by the parser.
const (
	TypeProgram         = "program"
	TypeEventHandler    = "eventHandler"
	TypeBehavior        = "behavior"
	TypeFunction        = "functionDefinition"
	TypeInit            = "initBlock"
	TypeCommandSequence = "commandSequence"
	TypeCommand         = "command"
	TypeModifiers       = "modifiers"

	TypeLiteral      = "literal"
	TypeIdentifier   = "identifier"
	TypeSelector     = "selector"
	TypeAttributeRef = "attributeRef"
	TypeBinary       = "binaryExpression"
	TypeUnary        = "unaryExpression"
	TypeAssignment   = "assignmentExpression"
	TypeCall         = "callExpression"
	TypeMember       = "memberExpression"
	TypePossessive   = "possessiveExpression"
	TypeConditional  = "conditionalExpression"
	TypeArray        = "arrayLiteral"
	TypeObject       = "objectLiteral"
	TypeProperty     = "objectProperty"
)

// ErrorName is the identifier the parser substitutes wherever it could not
// build a node. Trees containing it are still fully traversable.
const ErrorName = "__ERROR__"

// Selector kinds carried in the "kind" field of selector nodes.
const (
	SelectorID        = "id"
	SelectorClass     = "class"
	SelectorAttribute = "attribute"
	SelectorQuery     = "query"
)

// Node is one syntax tree node.
type Node struct {
	Type   string
	Start  int // byte offset of the first character
	End    int // byte offset one past the last character
	Line   int
	Column int
	Fields []Field
}

// Field is a named node attribute.
type Field struct {
	Name  string
	Value any
}

// F is shorthand for building a Field.
func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// New creates a node of the given type. Fields whose value is a nil child are
// dropped so optional children never appear as typed nils.
func New(typ string, fields ...Field) *Node {
	n := &Node{Type: typ}
	for _, f := range fields {
		if child, ok := f.Value.(*Node); ok && child == nil {
			continue
		}
		n.Fields = append(n.Fields, f)
	}
	return n
}

// At sets the node's source range and returns it.
func (n *Node) At(start, end, line, column int) *Node {
	n.Start, n.End, n.Line, n.Column = start, end, line, column
	return n
}

// Span copies the range of from..to onto n. Either bound may be nil.
func (n *Node) Span(from, to *Node) *Node {
	if from != nil {
		n.Start, n.Line, n.Column = from.Start, from.Line, from.Column
	}
	if to != nil {
		n.End = to.End
	}
	return n
}

// Get returns the raw value of a field.
func (n *Node) Get(name string) (any, bool) {
	if n == nil {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Value returns the field value or nil.
func (n *Node) Value(name string) any {
	v, _ := n.Get(name)
	return v
}

// Has reports whether the field exists.
func (n *Node) Has(name string) bool {
	_, ok := n.Get(name)
	return ok
}

// Set replaces a field in place or appends it. It is meant for construction;
// tooling passes rewrite trees through the visitor instead.
func (n *Node) Set(name string, value any) *Node {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			n.Fields[i].Value = value
			return n
		}
	}
	n.Fields = append(n.Fields, Field{Name: name, Value: value})
	return n
}

// Child returns a single-node field, or nil.
func (n *Node) Child(name string) *Node {
	c, _ := n.Value(name).(*Node)
	return c
}

// Children returns a node-list field, or nil.
func (n *Node) Children(name string) []*Node {
	c, _ := n.Value(name).([]*Node)
	return c
}

// Str returns a string field, or "".
func (n *Node) Str(name string) string {
	s, _ := n.Value(name).(string)
	return s
}

// Bool returns a bool field, or false.
func (n *Node) Bool(name string) bool {
	b, _ := n.Value(name).(bool)
	return b
}

// Num returns a number field, or 0.
func (n *Node) Num(name string) float64 {
	f, _ := n.Value(name).(float64)
	return f
}

// Is reports whether n is non-nil and of the given type.
func (n *Node) Is(typ string) bool {
	return n != nil && n.Type == typ
}

// IsError reports whether n is the parser's error sentinel.
func (n *Node) IsError() bool {
	return n.Is(TypeIdentifier) && n.Str("name") == ErrorName
}

// ChildNodes returns every direct child in field order, flattening lists.
func (n *Node) ChildNodes() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, f := range n.Fields {
		if c, ok := AsNode(f.Value); ok {
			out = append(out, c)
		} else if cs, ok := AsNodeList(f.Value); ok {
			for _, c := range cs {
				if c != nil {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{Type: n.Type, Start: n.Start, End: n.End, Line: n.Line, Column: n.Column}
	if len(n.Fields) > 0 {
		cp.Fields = make([]Field, len(n.Fields))
	}
	for i, f := range n.Fields {
		cp.Fields[i] = Field{Name: f.Name, Value: cloneValue(f.Value)}
	}
	return cp
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Node:
		return val.Clone()
	case []*Node:
		out := make([]*Node, len(val))
		for i, c := range val {
			out[i] = c.Clone()
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Type {
	case TypeIdentifier:
		return fmt.Sprintf("%s(%s)", n.Type, n.Str("name"))
	case TypeLiteral:
		return fmt.Sprintf("%s(%v)", n.Type, n.Value("value"))
	case TypeBinary, TypeUnary:
		return fmt.Sprintf("%s(%s)", n.Type, n.Str("operator"))
	case TypeCommand:
		return fmt.Sprintf("%s(%s)", n.Type, n.Str("name"))
	}
	return n.Type
}

// AsNode reports whether v is a non-nil child node. It is the reflection-free
// "looks like a child" predicate every generic pass relies on.
func AsNode(v any) (*Node, bool) {
	n, ok := v.(*Node)
	return n, ok && n != nil && n.Type != ""
}

// AsNodeList reports whether v is a child list.
func AsNodeList(v any) ([]*Node, bool) {
	l, ok := v.([]*Node)
	return l, ok
}
