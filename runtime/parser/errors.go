package parser

import (
	"fmt"
	"strings"

	"github.com/opal-lang/hyperscript/runtime/lexer"
)

// ParseError describes the first problem the parser met. The parser never
// returns it as a Go error from Parse; it is carried on the result instead.
type ParseError struct {
	// Location of the offending token
	Position int // byte offset
	Line     int
	Column   int

	// Core error info
	Message string // Clear, specific: "expected expression"
	Context string // What we were parsing: "event handler"

	// What went wrong
	Expected string          // What would be valid: "'end'"
	Got      lexer.TokenType // What we found instead
	GotValue string

	// How to fix it (educational)
	Suggestion string // Actionable fix: "Close the block with 'end'"
	Example    string // Valid syntax: "if x then add .a end"

	source string
}

// Error returns the compact form with a caret snippet:
//
//	1:8: expected expression in command arguments
//	 1 | add .a to
//	   |          ^ expected expression
//	   Add a target after 'to'
func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%d: %s", e.Line, e.Column, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " in %s", e.Context)
	}

	if line, ok := sourceLine(e.source, e.Line); ok {
		gutter := len(fmt.Sprint(e.Line)) + 1
		fmt.Fprintf(&b, "\n%*d | %s", gutter, e.Line, line)
		fmt.Fprintf(&b, "\n%s | ", strings.Repeat(" ", gutter))
		if e.Column > 0 {
			b.WriteString(strings.Repeat(" ", e.Column-1))
		}
		b.WriteString("^")
		if e.Expected != "" {
			fmt.Fprintf(&b, " expected %s", e.Expected)
		}
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&b, "\n%s%s", strings.Repeat(" ", 3), e.Suggestion)
	}
	if e.Example != "" {
		fmt.Fprintf(&b, "\n   Example: %s", e.Example)
	}
	return b.String()
}

func sourceLine(source string, line int) (string, bool) {
	if source == "" || line < 1 {
		return "", false
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[line-1], "\r"), true
}

// describe renders a token for error messages.
func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.ILLEGAL:
		return fmt.Sprintf("illegal character %q", tok.Value)
	}
	return fmt.Sprintf("%s %q", strings.ToLower(tok.Type.String()), tok.Value)
}
