package parser

import (
	"strconv"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/runtime/lexer"
)

// Precedence, lowest to highest:
//
//	assignment (=, right-assoc)
//	or
//	and
//	equality and domain (== != === !== is, is not, matches, contains, in, of, exists)
//	comparison (< <= > >=)
//	additive (+ -)
//	multiplicative (* / % mod)
//	unary (not no - +)
//	postfix (call, member, computed member, possessive, as)
//	primary

func (p *parser) expression() *ast.Node {
	p.recordDebugEvent("enter_expression", p.current().Value)
	return p.assignment()
}

func (p *parser) assignment() *ast.Node {
	left := p.logicalOr()
	if p.current().Is(lexer.OPERATOR, "=") {
		p.advance()
		right := p.assignment()
		return ast.Assignment(left, right).Span(left, right)
	}
	return left
}

func (p *parser) logicalOr() *ast.Node {
	left := p.logicalAnd()
	for p.isWord(lexer.KEYWORD, "or") {
		p.advance()
		right := p.logicalAnd()
		left = ast.Binary("or", left, right).Span(left, right)
	}
	return left
}

func (p *parser) logicalAnd() *ast.Node {
	left := p.equality()
	// `and` before a command name separates commands instead.
	for p.isWord(lexer.KEYWORD, "and") && p.peek(1).Type != lexer.COMMAND {
		p.advance()
		right := p.equality()
		left = ast.Binary("and", left, right).Span(left, right)
	}
	return left
}

func (p *parser) equality() *ast.Node {
	left := p.comparison()
	for {
		tok := p.current()
		switch {
		case tok.Type == lexer.COMPARISON && isEqualityOp(tok.Value):
			p.advance()
			right := p.comparison()
			left = ast.Binary(tok.Value, left, right).Span(left, right)

		case tok.Is(lexer.KEYWORD, "is"), tok.Is(lexer.KEYWORD, "am"):
			p.advance()
			negated := false
			if p.isWord(lexer.KEYWORD, "not") {
				p.advance()
				negated = true
			}
			if p.isWord(lexer.KEYWORD, "empty") {
				p.advance()
				left = p.negate(ast.Unary("empty", left).Span(left, nil), negated)
				left.End = p.prevEnd()
				continue
			}
			if p.isWord(lexer.KEYWORD, "in") {
				p.advance()
				right := p.comparison()
				left = p.negate(ast.Binary("in", left, right).Span(left, right), negated)
				continue
			}
			right := p.comparison()
			op := "is"
			if negated {
				op = "is not"
			}
			left = ast.Binary(op, left, right).Span(left, right)

		case tok.Is(lexer.KEYWORD, "match"):
			// first-person form: I match .active
			p.advance()
			right := p.comparison()
			left = ast.Binary("matches", left, right).Span(left, right)

		case tok.Is(lexer.KEYWORD, "matches"), tok.Is(lexer.KEYWORD, "contains"),
			tok.Is(lexer.KEYWORD, "in"), tok.Is(lexer.KEYWORD, "of"):
			p.advance()
			right := p.comparison()
			left = ast.Binary(tok.Value, left, right).Span(left, right)

		case tok.Is(lexer.KEYWORD, "does") && p.peek(1).Is(lexer.KEYWORD, "not"):
			// does not contain / does not match
			p.advance()
			p.advance()
			verb := p.current()
			op := ""
			switch verb.Value {
			case "contain", "contains":
				op = "contains"
			case "match", "matches":
				op = "matches"
			}
			if op == "" {
				return p.errorNode("expected 'contain' or 'match' after 'does not', got "+describe(verb),
					"comparison", "'contain' or 'match'")
			}
			p.advance()
			right := p.comparison()
			left = p.negate(ast.Binary(op, left, right).Span(left, right), true)

		case tok.Is(lexer.KEYWORD, "exists"):
			p.advance()
			left = ast.Unary("exists", left).Span(left, nil)
			left.End = tok.End

		default:
			return left
		}
	}
}

func (p *parser) negate(n *ast.Node, negated bool) *ast.Node {
	if !negated {
		return n
	}
	return ast.Unary("not", n).Span(n, n)
}

func isEqualityOp(op string) bool {
	switch op {
	case "==", "!=", "===", "!==":
		return true
	}
	return false
}

func (p *parser) comparison() *ast.Node {
	left := p.additive()
	for {
		tok := p.current()
		if tok.Type != lexer.COMPARISON || isEqualityOp(tok.Value) {
			return left
		}
		// `<` may open a query selector the lexer could not classify; that
		// form only appears in primary position.
		p.advance()
		right := p.additive()
		left = ast.Binary(tok.Value, left, right).Span(left, right)
	}
}

func (p *parser) additive() *ast.Node {
	left := p.multiplicative()
	for p.current().Is(lexer.OPERATOR, "+") || p.current().Is(lexer.OPERATOR, "-") {
		op := p.advance().Value
		right := p.multiplicative()
		left = ast.Binary(op, left, right).Span(left, right)
	}
	return left
}

func (p *parser) multiplicative() *ast.Node {
	left := p.unary()
	for {
		tok := p.current()
		isOp := tok.Type == lexer.OPERATOR && (tok.Value == "*" || tok.Value == "/" || tok.Value == "%")
		if !isOp && !tok.Is(lexer.KEYWORD, "mod") {
			return left
		}
		p.advance()
		right := p.unary()
		left = ast.Binary(tok.Value, left, right).Span(left, right)
	}
}

func (p *parser) unary() *ast.Node {
	tok := p.current()
	if tok.Is(lexer.KEYWORD, "not") || tok.Is(lexer.KEYWORD, "no") ||
		tok.Is(lexer.OPERATOR, "-") || tok.Is(lexer.OPERATOR, "+") {
		p.advance()
		operand := p.unary()
		return p.finish(ast.Unary(tok.Value, operand), tok)
	}
	return p.postfix()
}

// postfix folds call, member, possessive and `as` chains onto a primary.
func (p *parser) postfix() *ast.Node {
	expr := p.primary()
	for {
		tok := p.current()
		switch {
		case tok.Is(lexer.PUNCTUATION, "("):
			p.advance()
			args := p.expressionList(")", "call arguments")
			expr = p.spanTo(ast.Call(expr, args), expr)

		case tok.Is(lexer.PUNCTUATION, ".") && isWordToken(p.peek(1)):
			p.advance()
			name := p.advance()
			prop := p.finish(ast.Identifier(name.Value), name)
			expr = p.spanTo(ast.Member(expr, prop, false), expr)

		case tok.Is(lexer.PUNCTUATION, "["):
			p.advance()
			index := p.expression()
			p.expectPunct("]", "computed member access")
			expr = p.spanTo(ast.Member(expr, index, true), expr)

		case tok.Type == lexer.POSSESSIVE:
			p.advance()
			prop := p.propertyName("possessive")
			expr = p.spanTo(ast.Possessive(expr, prop), expr)

		case tok.Is(lexer.KEYWORD, "as"):
			p.advance()
			typeTok := p.current()
			if !isWordToken(typeTok) {
				return p.errorNode("expected a type name after 'as', got "+describe(typeTok), "conversion", "type name")
			}
			p.advance()
			target := p.finish(ast.Identifier(typeTok.Value), typeTok)
			expr = ast.Binary("as", expr, target).Span(expr, target)

		default:
			return expr
		}
	}
}

// propertyName parses the property after a possessive or `my`: a word or an
// attribute reference.
func (p *parser) propertyName(context string) *ast.Node {
	tok := p.current()
	switch {
	case tok.Type == lexer.ATTRIBUTE_REF:
		p.advance()
		return p.finish(ast.AttributeRef(tok.Value), tok)
	case isWordToken(tok):
		p.advance()
		return p.finish(ast.Identifier(tok.Value), tok)
	}
	return p.errorNode("expected property name, got "+describe(tok), context, "property name")
}

func (p *parser) spanTo(n, from *ast.Node) *ast.Node {
	n.Span(from, nil)
	n.End = p.prevEnd()
	return n
}

// expressionList parses comma-separated expressions up to the closing
// punctuation, which it consumes.
func (p *parser) expressionList(closing, context string) []*ast.Node {
	var items []*ast.Node
	for !p.isPunct(closing) && !p.at(lexer.EOF) {
		items = append(items, p.expression())
		if !p.isPunct(",") {
			break
		}
		p.advance()
	}
	p.expectPunct(closing, context)
	return items
}

func (p *parser) primary() *ast.Node {
	tok := p.current()

	switch tok.Type {
	case lexer.NUMBER:
		p.advance()
		return p.finish(numberLiteral(tok.Value), tok)

	case lexer.STRING:
		p.advance()
		return p.finish(ast.Literal(tok.Value, p.source[tok.Start:tok.End]), tok)

	case lexer.BOOLEAN:
		p.advance()
		return p.finish(ast.Literal(tok.Value == "true", tok.Value), tok)

	case lexer.ID_SELECTOR:
		p.advance()
		return p.finish(ast.Selector(ast.SelectorID, tok.Value), tok)

	case lexer.CLASS_SELECTOR:
		p.advance()
		return p.finish(ast.Selector(ast.SelectorClass, tok.Value), tok)

	case lexer.ATTRIBUTE_SELECTOR:
		p.advance()
		return p.finish(ast.Selector(ast.SelectorAttribute, tok.Value), tok)

	case lexer.QUERY_SELECTOR:
		p.advance()
		return p.finish(ast.Selector(ast.SelectorQuery, tok.Value), tok)

	case lexer.ATTRIBUTE_REF:
		p.advance()
		return p.finish(ast.AttributeRef(tok.Value), tok)

	case lexer.CONTEXT_VAR:
		p.advance()
		name := tok.Value
		if name == "I" {
			name = "me"
		}
		return p.finish(ast.Identifier(name), tok)

	case lexer.IDENTIFIER, lexer.EVENT:
		p.advance()
		return p.finish(ast.Identifier(tok.Value), tok)

	case lexer.COMPARISON:
		if tok.Value == "<" {
			return p.querySelectorFallback()
		}

	case lexer.PUNCTUATION:
		switch tok.Value {
		case "(":
			p.advance()
			inner := p.expression()
			p.expectPunct(")", "parenthesized expression")
			return inner
		case "[":
			p.advance()
			elems := p.expressionList("]", "array literal")
			return p.finish(ast.Array(elems), tok)
		case "{":
			return p.objectLiteral()
		}

	case lexer.COMMAND:
		if tok.Value == "if" {
			return p.conditional()
		}

	case lexer.KEYWORD:
		switch tok.Value {
		case "the":
			p.advance()
			return p.primary()
		case "null":
			p.advance()
			return p.finish(ast.Literal(nil, "null"), tok)
		case "on":
			return p.eventHandler()
		case "closest", "first", "last", "next", "previous":
			return p.navigation()
		case "my", "its", "your":
			p.advance()
			owner := map[string]string{"my": "me", "its": "it", "your": "you"}[tok.Value]
			object := p.finish(ast.Identifier(owner), tok)
			prop := p.propertyName("implicit member access")
			return p.finish(ast.Member(object, prop, false), tok)
		}
	}

	if tok.Type == lexer.EOF {
		p.errorAt(tok, "unexpected end of input", "expression", "expression",
			"Complete the expression", "")
		return ast.ErrorNode().At(tok.Start, tok.End, tok.Line, tok.Column)
	}
	return p.errorNode("expected expression, got "+describe(tok), "expression", "expression")
}

// numberLiteral converts number tokens. Durations normalise to milliseconds
// and keep their unit.
func numberLiteral(raw string) *ast.Node {
	text, unit := raw, ""
	switch {
	case strings.HasSuffix(raw, "ms"):
		text, unit = strings.TrimSuffix(raw, "ms"), "ms"
	case strings.HasSuffix(raw, "s"):
		text, unit = strings.TrimSuffix(raw, "s"), "s"
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return ast.ErrorNode()
	}
	if unit == "s" {
		value *= 1000
	}
	n := ast.Literal(value, raw)
	if unit != "" {
		n.Set("unit", unit)
	}
	return n
}

// querySelectorFallback reads `< ... />` spread over several tokens by
// taking the raw source between the brackets.
func (p *parser) querySelectorFallback() *ast.Node {
	open := p.current()
	for i := p.pos + 1; i+1 < len(p.tokens); i++ {
		t := p.tokens[i]
		if t.Type == lexer.EOF {
			break
		}
		if t.Is(lexer.OPERATOR, "/") && p.tokens[i+1].Is(lexer.COMPARISON, ">") && t.End == p.tokens[i+1].Start {
			value := strings.TrimSpace(p.source[open.End:t.Start])
			p.pos = i + 2
			return p.finish(ast.Selector(ast.SelectorQuery, value), open)
		}
	}
	return p.errorNode("expected expression, got "+describe(open), "query selector", "'/>'")
}

// conditional parses the expression form `if <test> then <a> [else <b>]`.
func (p *parser) conditional() *ast.Node {
	start := p.advance() // if
	test := p.expression()
	p.expectKeyword("then", "conditional expression", "set x to if y then 1 else 2")
	consequent := p.expression()
	var alternate *ast.Node
	if p.isWord(lexer.KEYWORD, "else") {
		p.advance()
		alternate = p.expression()
	}
	return p.finish(ast.Conditional(test, consequent, alternate), start)
}

// navigation parses closest/first/last/next/previous into a call on the
// navigation function:
//
//	closest <form/>          -> closest(<form/>)
//	first <li/> in #list     -> first(<li/>, #list)
//	next .item from me       -> next(.item, me)
//	first(items)             -> first(items)
func (p *parser) navigation() *ast.Node {
	start := p.advance()
	callee := p.finish(ast.Identifier(start.Value), start)

	if p.isPunct("(") {
		p.advance()
		args := p.expressionList(")", "navigation call")
		return p.finish(ast.Call(callee, args), start)
	}

	args := []*ast.Node{p.primary()}
	if p.isWord(lexer.KEYWORD, "in") || p.isWord(lexer.KEYWORD, "from") {
		p.advance()
		args = append(args, p.postfix())
	}
	return p.finish(ast.Call(callee, args), start)
}

// objectLiteral parses `{key: value, ...}`.
func (p *parser) objectLiteral() *ast.Node {
	start := p.advance() // {
	var props []*ast.Node
	for !p.isPunct("}") && !p.at(lexer.EOF) {
		keyTok := p.current()
		if !isWordToken(keyTok) && keyTok.Type != lexer.STRING {
			p.errorNode("expected property key, got "+describe(keyTok), "object literal", "property key")
			continue
		}
		p.advance()
		if !p.expectPunct(":", "object literal") {
			continue
		}
		value := p.expression()
		props = append(props, p.finish(ast.Property(keyTok.Value, value), keyTok))
		if !p.isPunct(",") {
			break
		}
		p.advance()
	}
	p.expectPunct("}", "object literal")
	return p.finish(ast.Object(props), start)
}
