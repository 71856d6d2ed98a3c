package docgen

import (
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/generator"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Colorize wraps text in ANSI color codes if color is enabled
func Colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

// bodyModifiers hold nested command sequences rather than expressions.
var bodyModifiers = map[string]bool{"then": true, "else": true, "body": true}

type outline struct {
	label    string
	children []outline
}

// FormatTree renders a program as an outline: one entry per feature, with
// block commands nesting their bodies.
func FormatTree(w io.Writer, root *ast.Node, useColor bool) {
	features := root.Children("body")
	if len(features) == 0 {
		_, _ = fmt.Fprintln(w, "(empty script)")
		return
	}
	for _, f := range features {
		item := featureOutline(f, useColor)
		_, _ = fmt.Fprintln(w, item.label)
		renderChildren(w, item.children, "")
	}
}

func renderChildren(w io.Writer, items []outline, indent string) {
	for i, item := range items {
		prefix, next := "├─ ", "│  "
		if i == len(items)-1 {
			prefix, next = "└─ ", "   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, prefix, item.label)
		renderChildren(w, item.children, indent+next)
	}
}

func featureOutline(n *ast.Node, useColor bool) outline {
	var label string
	var body []*ast.Node
	switch n.Type {
	case ast.TypeEventHandler:
		label = "on " + n.Str("event")
		if sel := n.Child("selector"); sel != nil {
			label += " from " + generator.Snippet(sel)
		}
		body = n.Children("commands")
	case ast.TypeFunction:
		label = "def " + n.Str("name") + params(n)
		body = n.Children("body")
	case ast.TypeInit:
		label = "init"
		body = n.Children("body")
	case ast.TypeBehavior:
		label = "behavior " + n.Str("name") + params(n)
		item := outline{label: Colorize(label, ColorBlue, useColor)}
		for _, f := range n.Children("body") {
			item.children = append(item.children, featureOutline(f, useColor))
		}
		return item
	default:
		return commandOutline(n, useColor)
	}

	item := outline{label: Colorize(label, ColorBlue, useColor)}
	for _, c := range body {
		item.children = append(item.children, commandOutline(c, useColor))
	}
	return item
}

func params(n *ast.Node) string {
	ps := n.Children("params")
	if len(ps) == 0 {
		return ""
	}
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Str("name")
	}
	return "(" + strings.Join(names, ", ") + ")"
}

func commandOutline(n *ast.Node, useColor bool) outline {
	if n.IsError() {
		return outline{label: Colorize("<error>", ColorRed, useColor)}
	}
	if !n.Is(ast.TypeCommand) {
		if n.Is(ast.TypeEventHandler) || n.Is(ast.TypeFunction) || n.Is(ast.TypeInit) || n.Is(ast.TypeBehavior) {
			return featureOutline(n, useColor)
		}
		return outline{label: generator.Snippet(n)}
	}

	mods := n.ModifierMap()
	header := commandHeader(n)
	name := n.Str("name")
	label := Colorize(name, ColorCyan, useColor) + strings.TrimPrefix(header, name)
	item := outline{label: label}

	switch name {
	case "if", "unless":
		for _, kw := range []string{"then", "else"} {
			if seq := mods[kw]; seq != nil {
				item.children = append(item.children, branchOutline(kw, seq, useColor))
			}
		}
	default:
		if seq := mods["body"]; seq != nil {
			item.children = sequenceOutline(seq, useColor)
		}
	}
	return item
}

func branchOutline(kw string, seq *ast.Node, useColor bool) outline {
	return outline{label: Colorize(kw, ColorGray, useColor), children: sequenceOutline(seq, useColor)}
}

func sequenceOutline(seq *ast.Node, useColor bool) []outline {
	var out []outline
	for _, c := range seq.Children("commands") {
		out = append(out, commandOutline(c, useColor))
	}
	return out
}

// commandHeader renders n on one line without its nested bodies.
func commandHeader(n *ast.Node) string {
	mods := n.Child("modifiers")
	if mods == nil {
		return generator.Snippet(n)
	}
	head := n.Clone()
	kept := head.Child("modifiers")
	fields := kept.Fields[:0]
	for _, f := range kept.Fields {
		if !bodyModifiers[f.Name] {
			fields = append(fields, f)
		}
	}
	kept.Fields = fields

	s := generator.Snippet(head)
	if len(fields) == len(mods.Fields) {
		return s
	}
	s = strings.TrimSuffix(s, " end")
	return strings.TrimSuffix(s, " then")
}
