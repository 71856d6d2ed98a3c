package parser

import (
	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/invariant"
	"github.com/opal-lang/hyperscript/runtime/lexer"
)

// modifierKeywords introduce keyword arguments of a command.
var modifierKeywords = map[string]bool{
	"to": true, "from": true, "into": true, "with": true, "by": true,
	"on": true, "at": true, "before": true, "after": true,
	"times": true, "until": true, "while": true,
}

// commandList parses commands separated by `then`, `and` or plain adjacency,
// up to a block terminator or the start of the next feature.
func (p *parser) commandList() []*ast.Node {
	var cmds []*ast.Node
	for {
		for p.isWord(lexer.KEYWORD, "then") || p.atAndCommand() {
			p.advance()
		}
		if p.atListEnd() {
			return cmds
		}

		before := p.pos
		if !p.at(lexer.COMMAND) {
			tok := p.current()
			p.errorAt(tok, "expected a command, got "+describe(tok), "command list", "command",
				"Start each step with a command name",
				"on click add .active then wait 1s then remove .active")
			p.advance()
			cmds = append(cmds, ast.ErrorNode().At(tok.Start, tok.End, tok.Line, tok.Column))
			continue
		}
		cmds = append(cmds, p.command())

		invariant.Invariant(p.pos > before, "command parsing must consume tokens at %d", before)
	}
}

// atListEnd reports tokens that close a command list.
func (p *parser) atListEnd() bool {
	tok := p.current()
	if tok.Type == lexer.EOF {
		return true
	}
	if tok.Type != lexer.KEYWORD {
		return false
	}
	switch tok.Value {
	case "end", "else", "on", "def", "behavior", "init":
		return true
	}
	return false
}

// atAndCommand reports `and` used as a command separator.
func (p *parser) atAndCommand() bool {
	return p.isWord(lexer.KEYWORD, "and") && p.peek(1).Type == lexer.COMMAND
}

// atArgsEnd reports tokens that end a command's argument list.
func (p *parser) atArgsEnd() bool {
	tok := p.current()
	switch tok.Type {
	case lexer.EOF, lexer.COMMAND:
		return true
	case lexer.KEYWORD:
		switch tok.Value {
		case "then", "else", "end", "def", "behavior", "init":
			return true
		case "and":
			return p.atAndCommand()
		case "on":
			// `on <event>` starts the next handler; otherwise `on` is a modifier.
			return p.peek(1).Type == lexer.EVENT
		}
	}
	return false
}

func (p *parser) atModifier() bool {
	tok := p.current()
	return tok.Type == lexer.KEYWORD && modifierKeywords[tok.Value]
}

// command parses one command starting at a COMMAND token.
func (p *parser) command() *ast.Node {
	p.recordDebugEvent("enter_command", p.current().Value)
	start := p.advance()

	switch start.Value {
	case "if", "unless":
		return p.ifCommand(start)
	case "repeat":
		return p.repeatCommand(start)
	case "for":
		return p.forCommand(start)
	case "tell":
		return p.tellCommand(start)
	}

	args, mods := p.arguments()
	return p.finish(ast.Command(start.Value, args, mods, lexer.BlockingCommands[start.Value]), start)
}

// arguments parses positional expressions and keyword modifiers. Positional
// arguments may be separated by commas or whitespace.
func (p *parser) arguments() ([]*ast.Node, *ast.Node) {
	var args []*ast.Node
	mods := ast.Modifiers()

	for !p.atArgsEnd() {
		before := p.pos
		if p.atModifier() {
			kw := p.advance()
			if p.atArgsEnd() || p.atModifier() {
				mods.Set(kw.Value, flag(kw))
			} else {
				mods.Set(kw.Value, p.expression())
			}
		} else {
			args = append(args, p.expression())
			if p.isPunct(",") {
				p.advance()
			}
		}
		invariant.Invariant(p.pos > before, "argument parsing must consume tokens at %d", before)
	}
	return args, mods
}

// flag is the value of a modifier keyword that takes no expression.
func flag(kw lexer.Token) *ast.Node {
	return ast.Literal(true, "").At(kw.Start, kw.End, kw.Line, kw.Column)
}

// ifCommand parses `if|unless <cond> [then] <commands> [else <commands>] [end]`.
// `else if` chains share the inner command's `end`.
func (p *parser) ifCommand(start lexer.Token) *ast.Node {
	cond := p.expression()
	if p.isWord(lexer.KEYWORD, "then") {
		p.advance()
	}

	mods := ast.Modifiers()
	thenTok := p.current()
	mods.Set("then", p.finish(ast.Sequence(p.commandList()), thenTok))

	closed := false
	if p.isWord(lexer.KEYWORD, "else") {
		p.advance()
		elseTok := p.current()
		if elseTok.Is(lexer.COMMAND, "if") || elseTok.Is(lexer.COMMAND, "unless") {
			nested := p.command()
			mods.Set("else", p.finish(ast.Sequence([]*ast.Node{nested}), elseTok))
			closed = true
		} else {
			mods.Set("else", p.finish(ast.Sequence(p.commandList()), elseTok))
		}
	}
	if !closed && p.isWord(lexer.KEYWORD, "end") {
		p.advance()
	}
	return p.finish(ast.Command(start.Value, []*ast.Node{cond}, mods, false), start)
}

// repeatCommand parses the repeat loop forms:
//
//	repeat N times <commands> end
//	repeat while|until <cond> <commands> end
//	repeat for x in <expr> <commands> end
//	repeat in <expr> <commands> end
//	repeat forever <commands> end
func (p *parser) repeatCommand(start lexer.Token) *ast.Node {
	var args []*ast.Node
	mods := ast.Modifiers()

	switch tok := p.current(); {
	case tok.Is(lexer.KEYWORD, "forever"), tok.Type == lexer.COMMAND && !tok.Is(lexer.COMMAND, "for"):
		if tok.Type == lexer.KEYWORD {
			p.advance()
		}
		mods.Set("forever", flag(tok))
	case tok.Is(lexer.KEYWORD, "while"), tok.Is(lexer.KEYWORD, "until"):
		p.advance()
		mods.Set(tok.Value, p.expression())
	case tok.Is(lexer.COMMAND, "for"):
		p.advance()
		args = append(args, p.loopVariable())
		p.expectKeyword("in", "repeat loop", "repeat for item in items log item end")
		mods.Set("in", p.expression())
	case tok.Is(lexer.KEYWORD, "in"):
		p.advance()
		mods.Set("in", p.expression())
	default:
		args = append(args, p.expression())
		timesTok := p.current()
		if p.expectKeyword("times", "repeat loop", "repeat 3 times add .tick end") {
			mods.Set("times", flag(timesTok))
		}
	}

	p.loopBody(mods, "repeat loop")
	return p.finish(ast.Command(start.Value, args, mods, false), start)
}

// forCommand parses `for [each] x in <expr> <commands> end`.
func (p *parser) forCommand(start lexer.Token) *ast.Node {
	if p.isWord(lexer.KEYWORD, "each") {
		p.advance()
	}
	variable := p.loopVariable()
	mods := ast.Modifiers()
	if p.expectKeyword("in", "for loop", "for item in items log item end") {
		mods.Set("in", p.expression())
	}
	p.loopBody(mods, "for loop")
	return p.finish(ast.Command(start.Value, []*ast.Node{variable}, mods, false), start)
}

// tellCommand parses `tell <target> <commands> end`.
func (p *parser) tellCommand(start lexer.Token) *ast.Node {
	target := p.expression()
	mods := ast.Modifiers()
	p.loopBody(mods, "tell block")
	return p.finish(ast.Command(start.Value, []*ast.Node{target}, mods, false), start)
}

func (p *parser) loopBody(mods *ast.Node, context string) {
	bodyTok := p.current()
	mods.Set("body", p.finish(ast.Sequence(p.commandList()), bodyTok))
	if p.isWord(lexer.KEYWORD, "end") {
		p.advance()
		return
	}
	if !p.at(lexer.EOF) {
		p.errorAt(p.current(), "expected 'end', got "+describe(p.current()), context, "'end'",
			"Close the block with 'end'", "")
	}
}

// loopVariable parses the name bound by a loop. `in` is not read as an
// operator here.
func (p *parser) loopVariable() *ast.Node {
	tok := p.current()
	if tok.Type != lexer.IDENTIFIER {
		return p.errorNode("expected loop variable, got "+describe(tok), "loop", "identifier")
	}
	p.advance()
	return p.finish(ast.Identifier(tok.Value), tok)
}

func (p *parser) expectKeyword(value, context, example string) bool {
	if p.isWord(lexer.KEYWORD, value) {
		p.advance()
		return true
	}
	p.errorAt(p.current(), "expected '"+value+"', got "+describe(p.current()), context, "'"+value+"'", "", example)
	return false
}
