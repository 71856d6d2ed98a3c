package analysis

import (
	"fmt"
	"sort"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/generator"
	"github.com/opal-lang/hyperscript/core/visit"
)

// Smell kinds.
const (
	SmellLongSequence     = "long-sequence"
	SmellDeepNesting      = "deep-nesting"
	SmellEmptyBlock       = "empty-block"
	SmellUnreachable      = "unreachable"
	SmellDuplicateHandler = "duplicate-handler"
	SmellParseError       = "parse-error"
	SmellHighComplexity   = "high-complexity"
)

// Smell is one finding.
type Smell struct {
	Kind    string
	Message string
	Line    int
	Column  int
	Node    *ast.Node
}

func (s Smell) String() string {
	return fmt.Sprintf("%d:%d: %s: %s", s.Line, s.Column, s.Kind, s.Message)
}

type smellConfig struct {
	maxSequence   int
	maxNesting    int
	maxComplexity int
}

// SmellOpt configures Smells.
type SmellOpt func(*smellConfig)

// WithMaxSequence flags command lists longer than n. Default 10.
func WithMaxSequence(n int) SmellOpt {
	return func(c *smellConfig) { c.maxSequence = n }
}

// WithMaxNesting flags blocks nested deeper than n. Default 3.
func WithMaxNesting(n int) SmellOpt {
	return func(c *smellConfig) { c.maxNesting = n }
}

// WithMaxComplexity flags features whose cyclomatic complexity exceeds n.
// Default 10.
func WithMaxComplexity(n int) SmellOpt {
	return func(c *smellConfig) { c.maxComplexity = n }
}

// terminal commands end the enclosing list; anything after them is dead.
var terminal = map[string]bool{
	"halt": true, "return": true, "exit": true, "break": true, "continue": true, "throw": true,
}

// Smells reports findings sorted by position.
func Smells(root *ast.Node, opts ...SmellOpt) []Smell {
	cfg := smellConfig{maxSequence: 10, maxNesting: 3, maxComplexity: 10}
	for _, opt := range opts {
		opt(&cfg)
	}

	var out []Smell
	report := func(kind string, n *ast.Node, format string, args ...any) {
		out = append(out, Smell{
			Kind:    kind,
			Message: fmt.Sprintf(format, args...),
			Line:    n.Line,
			Column:  n.Column,
			Node:    n,
		})
	}

	checkList := func(owner *ast.Node, cmds []*ast.Node) {
		if len(cmds) > cfg.maxSequence {
			report(SmellLongSequence, owner, "%d commands in one list (max %d)", len(cmds), cfg.maxSequence)
		}
		for i, c := range cmds {
			if i == len(cmds)-1 || !isTerminal(c) {
				continue
			}
			report(SmellUnreachable, cmds[i+1], "%q follows %q and never runs", cmds[i+1].Str("name"), c.Str("name"))
			break
		}
	}

	visit.Walk(root, visit.Visitor{Enter: func(c *visit.Cursor) {
		n := c.Node()
		depth := nesting(c)

		if n.IsError() {
			report(SmellParseError, n, "unparseable input")
			return
		}

		switch n.Type {
		case ast.TypeEventHandler:
			if len(n.Children("commands")) == 0 {
				report(SmellEmptyBlock, n, "handler for %q has no commands", n.Str("event"))
			}
			checkList(n, n.Children("commands"))
		case ast.TypeFunction, ast.TypeInit:
			checkList(n, n.Children("body"))
		case ast.TypeCommandSequence:
			checkList(n, n.Children("commands"))
		case ast.TypeProgram, ast.TypeBehavior:
			for _, dup := range duplicateHandlers(n.Children("body")) {
				report(SmellDuplicateHandler, dup, "another handler for %q is declared earlier", dup.Str("event"))
			}
		}

		switch n.Type {
		case ast.TypeEventHandler, ast.TypeFunction, ast.TypeBehavior:
			if m := Measure(n); m.Cyclomatic > cfg.maxComplexity {
				report(SmellHighComplexity, n, "cyclomatic complexity %d (max %d)", m.Cyclomatic, cfg.maxComplexity)
			}
		}

		if isBlock(n) {
			if depth+1 > cfg.maxNesting {
				report(SmellDeepNesting, n, "%q nested %d levels deep (max %d)", n.Str("name"), depth+1, cfg.maxNesting)
			}
			if emptyBody(n) {
				report(SmellEmptyBlock, n, "%q block has no commands", n.Str("name"))
			}
			c.Scope()[nestingKey] = depth + 1
		}
	}})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// isTerminal reports commands that unwind unconditionally. `halt the event`
// only suppresses the event and lets the list continue.
func isTerminal(n *ast.Node) bool {
	if !n.Is(ast.TypeCommand) || !terminal[n.Str("name")] {
		return false
	}
	return n.Str("name") != "halt" || len(n.Children("args")) == 0
}

func emptyBody(n *ast.Node) bool {
	mods := n.ModifierMap()
	key := "body"
	if name := n.Str("name"); name == "if" || name == "unless" {
		key = "then"
	}
	body := mods[key]
	return body == nil || len(body.Children("commands")) == 0
}

// duplicateHandlers returns handlers whose event and source match an
// earlier sibling.
func duplicateHandlers(features []*ast.Node) []*ast.Node {
	seen := map[string]bool{}
	var dups []*ast.Node
	for _, f := range features {
		if !f.Is(ast.TypeEventHandler) {
			continue
		}
		key := f.Str("event")
		if sel := f.Child("selector"); sel != nil {
			key += " from " + generator.Snippet(sel)
		}
		if seen[key] {
			dups = append(dups, f)
		}
		seen[key] = true
	}
	return dups
}
