package docgen

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Render writes v, a Reference or a ScriptReport, in format f.
func Render(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	var b strings.Builder
	switch v := v.(type) {
	case Reference:
		if f == FormatMarkdown {
			referenceMarkdown(&b, v)
		} else {
			referenceText(&b, v)
		}
	case ScriptReport:
		if f == FormatMarkdown {
			reportMarkdown(&b, v)
		} else {
			reportText(&b, v)
		}
	default:
		return fmt.Errorf("cannot render %T as %s", v, f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func referenceText(b *strings.Builder, r Reference) {
	fmt.Fprintf(b, "hyperscript commands (%s)\n", r.Version)
	category := ""
	for _, c := range r.Commands {
		if c.Category != category {
			category = c.Category
			fmt.Fprintf(b, "\n%s:\n", category)
		}
		fmt.Fprintf(b, "  %-12s %s\n", c.Name, c.Summary)
		for _, s := range c.Syntax {
			fmt.Fprintf(b, "  %-12s   %s\n", "", s)
		}
		if d := c.Deprecation; d != nil {
			fmt.Fprintf(b, "  %-12s   deprecated since %s%s\n", "", d.Since, replacement(d))
		}
	}
}

func replacement(d *DeprecationDoc) string {
	if d.Replacement == "" {
		return ""
	}
	return ", use " + d.Replacement
}

func referenceMarkdown(b *strings.Builder, r Reference) {
	fmt.Fprintf(b, "# Command reference\n\nRuntime version `%s`.\n", r.Version)
	for _, category := range r.Categories() {
		fmt.Fprintf(b, "\n## %s\n", category)
		for _, c := range r.Commands {
			if c.Category != category {
				continue
			}
			fmt.Fprintf(b, "\n### `%s`\n\n%s\n", c.Name, c.Summary)
			if d := c.Deprecation; d != nil {
				fmt.Fprintf(b, "\n> Deprecated since %s%s.\n", d.Since, replacement(d))
			}
			if len(c.Syntax) > 0 {
				b.WriteString("\n```hyperscript\n")
				for _, s := range c.Syntax {
					b.WriteString(s + "\n")
				}
				b.WriteString("```\n")
			}
			if len(c.Examples) > 0 {
				b.WriteString("\nExamples:\n\n")
				for _, e := range c.Examples {
					fmt.Fprintf(b, "- `%s`\n", e)
				}
			}
			if len(c.SideEffects) > 0 {
				fmt.Fprintf(b, "\nSide effects: %s.\n", strings.Join(c.SideEffects, ", "))
			}
		}
	}
}

func reportText(b *strings.Builder, r ScriptReport) {
	if r.Name != "" {
		fmt.Fprintf(b, "%s\n", r.Name)
	}
	m := r.Metrics
	fmt.Fprintf(b, "nodes: %d  commands: %d  cyclomatic: %d  cognitive: %d  nesting: %d\n",
		m.Nodes, m.Commands, m.Cyclomatic, m.Cognitive, m.MaxNesting)
	for _, f := range r.Features {
		fmt.Fprintf(b, "  %d: %s %s (cyclomatic %d, cognitive %d)\n", f.Line, f.Kind, f.Name, f.Cyclomatic, f.Cognitive)
		fmt.Fprintf(b, "     %s\n", f.Description)
	}
	lists := []struct {
		label string
		items []string
	}{
		{"handles", r.Handles},
		{"sends", r.Sends},
		{"defines", r.Defines},
		{"calls", r.Calls},
		{"selectors", r.Selectors},
		{"commands", r.Commands},
	}
	for _, l := range lists {
		if len(l.items) > 0 {
			fmt.Fprintf(b, "%s: %s\n", l.label, strings.Join(l.items, ", "))
		}
	}
	for _, v := range r.Variables {
		fmt.Fprintf(b, "var %s (%s): %d reads, %d writes\n", v.Name, v.Scope, v.Reads, v.Writes)
	}
	for _, s := range r.Smells {
		fmt.Fprintf(b, "%d:%d: %s: %s\n", s.Line, s.Column, s.Kind, s.Message)
	}
}

func reportMarkdown(b *strings.Builder, r ScriptReport) {
	title := r.Name
	if title == "" {
		title = "Script"
	}
	fmt.Fprintf(b, "# %s\n\n", title)
	m := r.Metrics
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Nodes | %d |\n| Commands | %d |\n| Cyclomatic | %d |\n| Cognitive | %d |\n| Max nesting | %d |\n",
		m.Nodes, m.Commands, m.Cyclomatic, m.Cognitive, m.MaxNesting)

	if len(r.Features) > 0 {
		b.WriteString("\n## Features\n\n| Line | Kind | Name | Description | Cyclomatic | Cognitive |\n|---|---|---|---|---|---|\n")
		for _, f := range r.Features {
			fmt.Fprintf(b, "| %d | %s | %s | %s | %d | %d |\n", f.Line, f.Kind, f.Name,
				strings.ReplaceAll(f.Description, "|", `\|`), f.Cyclomatic, f.Cognitive)
		}
	}
	if len(r.Variables) > 0 {
		b.WriteString("\n## Variables\n\n| Name | Scope | Reads | Writes |\n|---|---|---|---|\n")
		for _, v := range r.Variables {
			fmt.Fprintf(b, "| `%s` | %s | %d | %d |\n", v.Name, v.Scope, v.Reads, v.Writes)
		}
	}
	if len(r.Smells) > 0 {
		b.WriteString("\n## Smells\n\n")
		for _, s := range r.Smells {
			fmt.Fprintf(b, "- %d:%d %s: %s\n", s.Line, s.Column, s.Kind, s.Message)
		}
	}
}
