// Package generator turns syntax trees back into script source.
//
// Output re-parses to the same tree shape (ranges aside). Operator
// precedence is restored with parentheses only where the tree requires them.
package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
)

// GeneratorError reports a node the generator cannot render.
type GeneratorError struct {
	Message  string
	NodeType string
	Line     int
	Column   int
}

func (e *GeneratorError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("generator error at %d:%d: %s (%s)", e.Line, e.Column, e.Message, e.NodeType)
	}
	return fmt.Sprintf("generator error: %s (%s)", e.Message, e.NodeType)
}

// Option configures generation.
type Option func(*config)

type config struct {
	indent string
}

// WithIndent renders command lists one command per line, nesting blocks by
// indent. The default is a single line joined with `then`.
func WithIndent(indent string) Option {
	return func(c *config) { c.indent = indent }
}

// Generate renders n as source.
func Generate(n *ast.Node, opts ...Option) (string, error) {
	g := &gen{}
	for _, opt := range opts {
		opt(&g.config)
	}
	g.node(n, 0)
	if g.err != nil {
		return "", g.err
	}
	return g.b.String(), nil
}

// Snippet renders n on one line, writing unknown nodes as <type>. It is
// meant for labels and reports, not for round trips.
func Snippet(n *ast.Node) string {
	g := &gen{lenient: true}
	g.node(n, 0)
	return g.b.String()
}

type gen struct {
	config
	b       strings.Builder
	err     error
	lenient bool
}

func (g *gen) w(parts ...string) {
	for _, p := range parts {
		g.b.WriteString(p)
	}
}

func (g *gen) fail(n *ast.Node, msg string) {
	if g.lenient {
		g.w("<", n.Type, ">")
		return
	}
	if g.err == nil {
		g.err = &GeneratorError{Message: msg, NodeType: n.Type, Line: n.Line, Column: n.Column}
	}
}

func (g *gen) multiline() bool { return g.indent != "" }

func (g *gen) newline(depth int) {
	g.w("\n", strings.Repeat(g.indent, depth))
}

// node renders any node. depth is the block nesting level used by multi-line
// output.
func (g *gen) node(n *ast.Node, depth int) {
	if n == nil {
		return
	}
	switch n.Type {
	case ast.TypeProgram:
		for i, f := range n.Children("body") {
			if i > 0 {
				g.w("\n")
				if g.multiline() {
					g.w("\n")
				}
			}
			g.node(f, depth)
		}

	case ast.TypeEventHandler:
		g.w("on ", n.Str("event"))
		if sel := n.Child("selector"); sel != nil {
			g.w(" from ")
			g.expr(sel, precLowest)
		}
		// Nested handlers need an explicit end so the enclosing block
		// keeps its own.
		g.block(n.Children("commands"), depth, g.multiline() || depth > 0)

	case ast.TypeBehavior:
		g.w("behavior ", n.Str("name"))
		g.params(n.Children("params"))
		for _, f := range n.Children("body") {
			if g.multiline() {
				g.newline(depth + 1)
			} else {
				g.w(" ")
			}
			g.node(f, depth+1)
		}
		g.end(depth)

	case ast.TypeFunction:
		g.w("def ", n.Str("name"))
		g.params(n.Children("params"))
		g.block(n.Children("body"), depth, true)

	case ast.TypeInit:
		g.w("init")
		g.block(n.Children("body"), depth, true)

	case ast.TypeCommandSequence:
		g.list(n.Children("commands"), depth)

	case ast.TypeCommand:
		g.command(n, depth)

	case ast.TypeModifiers:
		g.modifiers(n)

	default:
		g.expr(n, precLowest)
	}
}

// block renders a command list after a header, closing with `end` when
// asked to.
func (g *gen) block(cmds []*ast.Node, depth int, closeWithEnd bool) {
	if g.multiline() {
		for _, c := range cmds {
			g.newline(depth + 1)
			g.node(c, depth+1)
		}
	} else if len(cmds) > 0 {
		g.w(" ")
		g.list(cmds, depth)
	}
	if closeWithEnd {
		g.end(depth)
	}
}

func (g *gen) end(depth int) {
	if g.multiline() {
		g.newline(depth)
	} else {
		g.w(" ")
	}
	g.w("end")
}

func (g *gen) list(cmds []*ast.Node, depth int) {
	for i, c := range cmds {
		if i > 0 {
			if g.multiline() {
				g.newline(depth)
			} else {
				g.w(" then ")
			}
		}
		g.node(c, depth)
	}
}

func (g *gen) params(params []*ast.Node) {
	if params == nil {
		return
	}
	g.w("(")
	for i, p := range params {
		if i > 0 {
			g.w(", ")
		}
		g.w(p.Str("name"))
	}
	g.w(")")
}

func (g *gen) command(n *ast.Node, depth int) {
	name := n.Str("name")
	mods := n.ModifierMap()

	switch name {
	case "if", "unless":
		g.w(name, " ")
		g.args(n.Children("args"))
		g.w(" then")
		g.body(mods["then"], depth)
		if alt := mods["else"]; alt != nil {
			g.sep(depth)
			g.w("else")
			if nested := alt.Children("commands"); len(nested) == 1 && isIf(nested[0]) {
				g.w(" ")
				g.command(nested[0], depth)
				return
			}
			g.body(alt, depth)
		}
		g.sep(depth)
		g.w("end")
		return

	case "repeat":
		g.w("repeat")
		switch {
		case mods["times"] != nil:
			g.w(" ")
			g.args(n.Children("args"))
			g.w(" times")
		case mods["while"] != nil:
			g.w(" while ")
			g.expr(mods["while"], precLowest)
		case mods["until"] != nil:
			g.w(" until ")
			g.expr(mods["until"], precLowest)
		case mods["in"] != nil:
			if args := n.Children("args"); len(args) > 0 {
				g.w(" for ", args[0].Str("name"))
			}
			g.w(" in ")
			g.expr(mods["in"], precLowest)
		default:
			g.w(" forever")
		}
		g.body(mods["body"], depth)
		g.sep(depth)
		g.w("end")
		return

	case "for":
		g.w("for ")
		g.args(n.Children("args"))
		g.w(" in ")
		g.expr(mods["in"], precLowest)
		g.body(mods["body"], depth)
		g.sep(depth)
		g.w("end")
		return

	case "tell":
		g.w("tell ")
		g.args(n.Children("args"))
		g.body(mods["body"], depth)
		g.sep(depth)
		g.w("end")
		return
	}

	g.w(name)
	if args := n.Children("args"); len(args) > 0 {
		g.w(" ")
		g.args(args)
	}
	if m := n.Child("modifiers"); m != nil && len(m.Fields) > 0 {
		g.w(" ")
		g.modifiers(m)
	}
}

func isIf(n *ast.Node) bool {
	return n.Is(ast.TypeCommand) && (n.Str("name") == "if" || n.Str("name") == "unless")
}

// body renders a nested command sequence of a block command.
func (g *gen) body(seq *ast.Node, depth int) {
	if seq == nil {
		return
	}
	cmds := seq.Children("commands")
	if g.multiline() {
		for _, c := range cmds {
			g.newline(depth + 1)
			g.node(c, depth+1)
		}
		return
	}
	if len(cmds) > 0 {
		g.w(" ")
		g.list(cmds, depth)
	}
}

func (g *gen) sep(depth int) {
	if g.multiline() {
		g.newline(depth)
	} else {
		g.w(" ")
	}
}

func (g *gen) args(args []*ast.Node) {
	for i, a := range args {
		if i > 0 {
			g.w(", ")
		}
		g.expr(a, precLowest)
	}
}

// modifiers renders `kw expr` pairs. Flag modifiers render as the bare
// keyword.
func (g *gen) modifiers(m *ast.Node) {
	first := true
	for _, f := range m.Fields {
		child, ok := ast.AsNode(f.Value)
		if !ok {
			continue
		}
		if !first {
			g.w(" ")
		}
		first = false
		g.w(f.Name)
		if isFlag(child) {
			continue
		}
		g.w(" ")
		g.expr(child, precLowest)
	}
}

func isFlag(n *ast.Node) bool {
	return n.Is(ast.TypeLiteral) && n.Str("raw") == "" && n.Value("value") == true
}

// Expression precedence levels, lowest first.
const (
	precLowest = iota
	precAssign
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

func binaryPrec(op string) int {
	switch op {
	case "or":
		return precOr
	case "and":
		return precAnd
	case "==", "!=", "===", "!==", "is", "is not", "matches", "contains", "in", "of":
		return precEquality
	case "<", "<=", ">", ">=":
		return precComparison
	case "+", "-":
		return precAdditive
	case "*", "/", "%", "mod":
		return precMultiplicative
	case "as":
		return precPostfix
	}
	return precLowest
}

func prec(n *ast.Node) int {
	switch n.Type {
	case ast.TypeAssignment:
		return precAssign
	case ast.TypeBinary:
		return binaryPrec(n.Str("operator"))
	case ast.TypeUnary:
		switch n.Str("operator") {
		case "empty", "exists":
			return precEquality
		}
		return precUnary
	case ast.TypeCall, ast.TypeMember, ast.TypePossessive:
		return precPostfix
	}
	return precPrimary
}

// expr renders n, parenthesised when it binds looser than min.
func (g *gen) expr(n *ast.Node, min int) {
	if n == nil {
		return
	}
	if prec(n) < min {
		g.w("(")
		g.expr(n, precLowest)
		g.w(")")
		return
	}

	switch n.Type {
	case ast.TypeLiteral:
		g.w(literal(n))

	case ast.TypeIdentifier:
		g.w(n.Str("name"))

	case ast.TypeSelector:
		g.w(selector(n))

	case ast.TypeAttributeRef:
		g.w("@", n.Str("name"))

	case ast.TypeBinary:
		op := n.Str("operator")
		p := binaryPrec(op)
		if op == "as" {
			g.expr(n.Child("left"), precPostfix)
			g.w(" as ")
			g.expr(n.Child("right"), precPrimary)
			return
		}
		g.expr(n.Child("left"), p)
		g.w(" ", op, " ")
		g.expr(n.Child("right"), p+1)

	case ast.TypeUnary:
		op := n.Str("operator")
		switch op {
		case "empty":
			g.expr(n.Child("operand"), precComparison)
			g.w(" is empty")
		case "exists":
			g.expr(n.Child("operand"), precComparison)
			g.w(" exists")
		case "-", "+":
			g.w(op)
			g.expr(n.Child("operand"), precPostfix)
		default:
			g.w(op, " ")
			g.expr(n.Child("operand"), precUnary)
		}

	case ast.TypeAssignment:
		g.expr(n.Child("target"), precOr)
		g.w(" = ")
		g.expr(n.Child("value"), precAssign)

	case ast.TypeCall:
		g.expr(n.Child("callee"), precPostfix)
		g.w("(")
		g.args(n.Children("args"))
		g.w(")")

	case ast.TypeMember:
		obj, prop := n.Child("object"), n.Child("property")
		if n.Bool("computed") {
			g.expr(obj, precPostfix)
			g.w("[")
			g.expr(prop, precLowest)
			g.w("]")
			return
		}
		if pronoun, ok := pronouns[obj.Str("name")]; ok && obj.Is(ast.TypeIdentifier) {
			g.w(pronoun, " ")
			g.expr(prop, precPrimary)
			return
		}
		g.expr(obj, precPostfix)
		if prop.Is(ast.TypeAttributeRef) {
			g.w("'s ")
		} else {
			g.w(".")
		}
		g.expr(prop, precPrimary)

	case ast.TypePossessive:
		g.expr(n.Child("object"), precPostfix)
		g.w("'s ")
		g.expr(n.Child("property"), precPrimary)

	case ast.TypeConditional:
		g.w("(if ")
		g.expr(n.Child("test"), precLowest)
		g.w(" then ")
		g.expr(n.Child("consequent"), precLowest)
		if alt := n.Child("alternate"); alt != nil {
			g.w(" else ")
			g.expr(alt, precLowest)
		}
		g.w(")")

	case ast.TypeArray:
		g.w("[")
		g.args(n.Children("elements"))
		g.w("]")

	case ast.TypeObject:
		g.w("{")
		for i, p := range n.Children("properties") {
			if i > 0 {
				g.w(", ")
			}
			g.w(objectKey(p.Str("key")), ": ")
			g.expr(p.Child("value"), precLowest)
		}
		g.w("}")

	case ast.TypeCommand, ast.TypeCommandSequence, ast.TypeEventHandler:
		g.node(n, 0)

	default:
		g.fail(n, "unsupported node type")
	}
}

var pronouns = map[string]string{"me": "my", "it": "its", "you": "your"}

func literal(n *ast.Node) string {
	if raw := n.Str("raw"); raw != "" {
		return raw
	}
	switch v := n.Value("value").(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(n.Value("value"))
}

func selector(n *ast.Node) string {
	v := n.Str("value")
	switch n.Str("kind") {
	case ast.SelectorQuery:
		return "<" + v + "/>"
	case ast.SelectorAttribute:
		if strings.HasPrefix(v, "[") && !strings.HasPrefix(v, "[@") {
			return "[@" + v[1:]
		}
	}
	return v
}

func objectKey(k string) string {
	if k == "" {
		return `""`
	}
	for i, r := range k {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isLetter && (i == 0 || r < '0' || r > '9') {
			return strconv.Quote(k)
		}
	}
	return k
}
