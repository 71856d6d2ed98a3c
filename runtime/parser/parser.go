// Package parser turns script source into an open-field AST.
//
// Parsing never fails outright. The first problem is recorded on the result,
// a sentinel error node takes the place of whatever could not be built, and
// the parser keeps consuming tokens so callers always receive a traversable
// tree.
package parser

import (
	"io"
	"log/slog"
	"time"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/invariant"
	"github.com/opal-lang/hyperscript/runtime/lexer"
)

// ParseResult is the outcome of one parse.
type ParseResult struct {
	Success bool
	Node    *ast.Node // never nil, even when Success is false
	Tokens  []lexer.Token
	Error   *ParseError // first error only

	Telemetry   *ParseTelemetry // nil unless enabled
	DebugEvents []DebugEvent    // nil unless enabled
}

// Parse tokenizes and parses source.
//
// A single top-level feature (event handler, command, expression, ...) is
// returned as is; several are wrapped in a program node; commands chained
// with `then` or `and` become a command sequence.
func Parse(source string, opts ...ParserOpt) *ParseResult {
	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.logger == nil {
		config.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var telemetry *ParseTelemetry
	var startTotal time.Time
	if config.telemetry >= TelemetryBasic {
		telemetry = &ParseTelemetry{}
		if config.telemetry >= TelemetryTiming {
			startTotal = time.Now()
		}
	}

	var startLex time.Time
	if config.telemetry >= TelemetryTiming {
		startLex = time.Now()
	}
	tokens := lexer.Tokenize(source, lexer.WithLogger(config.logger))
	if config.telemetry >= TelemetryTiming {
		telemetry.LexTime = time.Since(startLex)
	}

	p := &parser{
		source: source,
		tokens: tokens,
		config: config,
	}
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 32)
	}

	var startParse time.Time
	if config.telemetry >= TelemetryTiming {
		startParse = time.Now()
	}

	node := p.file()

	invariant.Postcondition(node != nil, "parse must always produce a node")

	if config.telemetry >= TelemetryBasic {
		telemetry.TokenCount = len(tokens)
		telemetry.NodeCount = countNodes(node)
		if p.err != nil {
			telemetry.ErrorCount = 1
		}
		if config.telemetry >= TelemetryTiming {
			telemetry.ParseTime = time.Since(startParse)
			telemetry.TotalTime = time.Since(startTotal)
		}
	}

	if p.err != nil {
		config.logger.Debug("parse error",
			"message", p.err.Message,
			"line", p.err.Line,
			"column", p.err.Column)
	}

	return &ParseResult{
		Success:     p.err == nil,
		Node:        node,
		Tokens:      tokens,
		Error:       p.err,
		Telemetry:   telemetry,
		DebugEvents: p.debugEvents,
	}
}

// parser is the internal parser state
type parser struct {
	source      string
	tokens      []lexer.Token
	pos         int
	err         *ParseError
	config      *ParserConfig
	debugEvents []DebugEvent
}

// recordDebugEvent records debug events when debug tracing is enabled
func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff || p.debugEvents == nil {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.pos,
		Context:   context,
	})
}

// file parses the whole token stream.
func (p *parser) file() *ast.Node {
	p.recordDebugEvent("enter_source", "")
	start := p.current()

	var items []*ast.Node
	for !p.at(lexer.EOF) {
		before := p.pos
		items = append(items, p.feature())

		// A stray block terminator at top level has nothing to close.
		if p.pos == before || p.isWord(lexer.KEYWORD, "end") || p.isWord(lexer.KEYWORD, "else") {
			p.errorAt(p.current(), "unexpected "+describe(p.current()), "top level", "",
				"Remove it or open a block that it can close",
				"if x then add .a end")
			p.advance()
		}
	}

	switch len(items) {
	case 0:
		return p.finish(ast.Program(nil), start)
	case 1:
		return items[0]
	}
	return p.finish(ast.Program(items), start)
}

// feature parses one top-level item.
func (p *parser) feature() *ast.Node {
	tok := p.current()
	switch {
	case tok.Is(lexer.KEYWORD, "on"):
		return p.eventHandler()
	case tok.Is(lexer.KEYWORD, "def"):
		return p.functionDef()
	case tok.Is(lexer.KEYWORD, "behavior"):
		return p.behavior()
	case tok.Is(lexer.KEYWORD, "init"):
		return p.initBlock()
	case tok.Type == lexer.COMMAND:
		cmds := p.commandList()
		if len(cmds) == 1 {
			return cmds[0]
		}
		return p.finish(ast.Sequence(cmds), tok)
	}
	return p.expression()
}

// eventHandler parses `on <event> [from <selector>] <commands> [end]`.
func (p *parser) eventHandler() *ast.Node {
	p.recordDebugEvent("enter_eventHandler", "")
	start := p.advance() // on

	event := ""
	if name := p.current(); isWordToken(name) {
		event = p.advance().Value
	} else {
		p.errorAt(name, "expected event name after 'on', got "+describe(name), "event handler", "event name",
			"Name the event that triggers the handler",
			"on click add .active to me")
		if !p.at(lexer.EOF) && name.Type != lexer.COMMAND {
			p.advance()
		}
	}

	var selector *ast.Node
	if p.isWord(lexer.KEYWORD, "from") {
		p.advance()
		selector = p.expression()
	}

	commands := p.commandList()
	if p.isWord(lexer.KEYWORD, "end") {
		p.advance()
	}
	return p.finish(ast.EventHandler(event, selector, commands), start)
}

// functionDef parses `def name(params) <commands> end`.
func (p *parser) functionDef() *ast.Node {
	p.recordDebugEvent("enter_functionDef", "")
	start := p.advance() // def

	name := p.dottedName("function definition")
	params := p.paramList("function definition")
	body := p.commandList()
	p.expectEnd("function definition", "def greet(name) log name end")
	return p.finish(ast.Function(name, params, body), start)
}

// behavior parses `behavior Name(params) <features> end`.
func (p *parser) behavior() *ast.Node {
	p.recordDebugEvent("enter_behavior", "")
	start := p.advance() // behavior

	name := p.dottedName("behavior")
	params := p.paramList("behavior")

	var body []*ast.Node
	for !p.at(lexer.EOF) && !p.isWord(lexer.KEYWORD, "end") {
		before := p.pos
		body = append(body, p.feature())
		if p.pos == before {
			p.advance()
		}
	}
	p.expectEnd("behavior", "behavior Removable on click remove me end end")
	return p.finish(ast.Behavior(name, params, body), start)
}

// initBlock parses `init <commands> [end]`.
func (p *parser) initBlock() *ast.Node {
	start := p.advance() // init
	body := p.commandList()
	if p.isWord(lexer.KEYWORD, "end") {
		p.advance()
	}
	return p.finish(ast.Init(body), start)
}

func (p *parser) dottedName(context string) string {
	tok := p.current()
	if !isWordToken(tok) {
		p.errorAt(tok, "expected a name, got "+describe(tok), context, "name", "", "")
		return ast.ErrorName
	}
	name := p.advance().Value
	for p.isPunct(".") && isWordToken(p.peek(1)) {
		p.advance()
		name += "." + p.advance().Value
	}
	return name
}

// paramList parses an optional `(a, b, ...)` list of identifiers.
func (p *parser) paramList(context string) []*ast.Node {
	if !p.isPunct("(") {
		return nil
	}
	p.advance()

	var params []*ast.Node
	for !p.isPunct(")") && !p.at(lexer.EOF) {
		tok := p.current()
		if !isWordToken(tok) {
			p.errorAt(tok, "expected parameter name, got "+describe(tok), context, "parameter name", "", "")
			p.advance()
			continue
		}
		p.advance()
		params = append(params, p.finish(ast.Identifier(tok.Value), tok))
		if p.isPunct(",") {
			p.advance()
		}
	}
	p.expectPunct(")", context)
	return params
}

func (p *parser) expectEnd(context, example string) {
	if p.isWord(lexer.KEYWORD, "end") {
		p.advance()
		return
	}
	p.errorAt(p.current(), "expected 'end', got "+describe(p.current()), context, "'end'",
		"Close the block with 'end'", example)
}

// Token cursor helpers

func (p *parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) peek(offset int) lexer.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// advance consumes the current token. EOF is never consumed.
func (p *parser) advance() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(typ lexer.TokenType) bool {
	return p.current().Type == typ
}

func (p *parser) isWord(typ lexer.TokenType, value string) bool {
	return p.current().Is(typ, value)
}

func (p *parser) isPunct(value string) bool {
	return p.current().Is(lexer.PUNCTUATION, value)
}

func (p *parser) expectPunct(value, context string) bool {
	if p.isPunct(value) {
		p.advance()
		return true
	}
	p.errorAt(p.current(), "expected '"+value+"', got "+describe(p.current()), context, "'"+value+"'", "", "")
	return false
}

// prevEnd is the end offset of the last consumed token.
func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.tokens[p.pos-1].End
}

// finish stamps the range from start up to the last consumed token.
func (p *parser) finish(n *ast.Node, start lexer.Token) *ast.Node {
	end := p.prevEnd()
	if end < start.Start {
		end = start.Start
	}
	return n.At(start.Start, end, start.Line, start.Column)
}

// errorAt records the first parse error. Later errors are dropped.
func (p *parser) errorAt(tok lexer.Token, message, context, expected, suggestion, example string) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{
		Position:   tok.Start,
		Line:       tok.Line,
		Column:     tok.Column,
		Message:    message,
		Context:    context,
		Expected:   expected,
		Got:        tok.Type,
		GotValue:   tok.Value,
		Suggestion: suggestion,
		Example:    example,
		source:     p.source,
	}
	p.recordDebugEvent("error", message)
}

// errorNode records an error at the current token, consumes it and returns
// the sentinel node in its place.
func (p *parser) errorNode(message, context, expected string) *ast.Node {
	tok := p.current()
	p.errorAt(tok, message, context, expected, "", "")
	p.advance()
	return ast.ErrorNode().At(tok.Start, tok.End, tok.Line, tok.Column)
}

func isWordToken(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.IDENTIFIER, lexer.KEYWORD, lexer.COMMAND, lexer.EVENT, lexer.CONTEXT_VAR:
		return true
	}
	return false
}

func countNodes(n *ast.Node) int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.ChildNodes() {
		total += countNodes(c)
	}
	return total
}
