package docgen

import (
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/generator"
)

// Describe summarizes a feature in one line of plain English, for example
// "On click: adds .active to me, then waits 1s".
func Describe(n *ast.Node) string {
	switch n.Type {
	case ast.TypeEventHandler:
		head := "On " + n.Str("event")
		if sel := n.Child("selector"); sel != nil {
			head += " from " + generator.Snippet(sel)
		}
		return head + ": " + describeSequence(n.Children("commands"))
	case ast.TypeFunction:
		return "Function " + n.Str("name") + params(n) + ": " + describeSequence(n.Children("body"))
	case ast.TypeInit:
		return "On init: " + describeSequence(n.Children("body"))
	case ast.TypeBehavior:
		return "Behavior " + n.Str("name") + params(n) + " " + describeBehavior(n.Children("body"))
	}
	return capitalize(describeCommand(n))
}

func describeBehavior(features []*ast.Node) string {
	var handles, defines []string
	inits := false
	for _, f := range features {
		switch f.Type {
		case ast.TypeEventHandler:
			handles = append(handles, f.Str("event"))
		case ast.TypeFunction:
			defines = append(defines, f.Str("name"))
		case ast.TypeInit:
			inits = true
		}
	}
	var parts []string
	if len(handles) > 0 {
		parts = append(parts, "handles "+strings.Join(handles, ", "))
	}
	if len(defines) > 0 {
		parts = append(parts, "defines "+strings.Join(defines, ", "))
	}
	if inits {
		parts = append(parts, "runs an init block")
	}
	if len(parts) == 0 {
		return "is empty"
	}
	return strings.Join(parts, "; ")
}

func describeSequence(cmds []*ast.Node) string {
	if len(cmds) == 0 {
		return "does nothing"
	}
	phrases := make([]string, len(cmds))
	for i, c := range cmds {
		phrases[i] = describeCommand(c)
	}
	return strings.Join(phrases, ", then ")
}

func describeBody(seq *ast.Node) string {
	if seq == nil {
		return describeSequence(nil)
	}
	return describeSequence(seq.Children("commands"))
}

// describeCommand phrases one command in the third person.
func describeCommand(n *ast.Node) string {
	if n.IsError() {
		return "(unparseable command)"
	}
	if !n.Is(ast.TypeCommand) {
		if n.Is(ast.TypeEventHandler) || n.Is(ast.TypeFunction) || n.Is(ast.TypeInit) || n.Is(ast.TypeBehavior) {
			return Describe(n)
		}
		return generator.Snippet(n)
	}

	name := n.Str("name")
	rest := strings.TrimPrefix(commandHeader(n), name)
	mods := n.ModifierMap()
	switch name {
	case "if", "unless":
		s := name + rest + ", " + describeBody(mods["then"])
		if seq := mods["else"]; seq != nil {
			s += "; otherwise " + describeBody(seq)
		}
		return s
	case "break":
		return "leaves the loop"
	case "continue":
		return "skips to the next iteration"
	case "for":
		return "for" + rest + ": " + describeBody(mods["body"])
	}
	s := thirdPerson(name) + rest
	if seq := mods["body"]; seq != nil {
		s += ": " + describeBody(seq)
	}
	return s
}

func thirdPerson(verb string) string {
	for _, suffix := range []string{"s", "sh", "ch", "x", "z", "o"} {
		if strings.HasSuffix(verb, suffix) {
			return verb + "es"
		}
	}
	return verb + "s"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
