// Package docgen extracts documentation from command metadata and from
// parsed scripts, and renders it as JSON, YAML, text or Markdown.
package docgen

import (
	"cmp"
	"slices"

	"github.com/opal-lang/hyperscript/runtime/command"
)

// CommandDoc documents one command.
type CommandDoc struct {
	Name        string          `json:"name" yaml:"name"`
	Category    string          `json:"category" yaml:"category"`
	Summary     string          `json:"summary" yaml:"summary"`
	Syntax      []string        `json:"syntax" yaml:"syntax"`
	Examples    []string        `json:"examples,omitempty" yaml:"examples,omitempty"`
	SideEffects []string        `json:"side_effects,omitempty" yaml:"side_effects,omitempty"`
	Deprecation *DeprecationDoc `json:"deprecation,omitempty" yaml:"deprecation,omitempty"`
	Schema      map[string]any  `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// DeprecationDoc documents a deprecation notice.
type DeprecationDoc struct {
	Since       string `json:"since" yaml:"since"`
	RemovedIn   string `json:"removed_in,omitempty" yaml:"removed_in,omitempty"`
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
}

// Reference is the documentation of a command set.
type Reference struct {
	Version  string       `json:"version" yaml:"version"`
	Commands []CommandDoc `json:"commands" yaml:"commands"`
}

// FromMetadata builds a reference sorted by category, then name.
func FromMetadata(version string, metas []command.Metadata) Reference {
	ref := Reference{Version: version, Commands: make([]CommandDoc, 0, len(metas))}
	for _, m := range metas {
		doc := CommandDoc{
			Name:        m.Name,
			Category:    string(m.Category),
			Summary:     m.Summary,
			Syntax:      m.Syntax,
			Examples:    m.Examples,
			SideEffects: m.SideEffects,
			Schema:      m.Schema,
		}
		if d := m.Deprecation; d != nil {
			doc.Deprecation = &DeprecationDoc{Since: d.Since, RemovedIn: d.RemovedIn, Replacement: d.Replacement}
		}
		ref.Commands = append(ref.Commands, doc)
	}
	slices.SortFunc(ref.Commands, func(a, b CommandDoc) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Name, b.Name))
	})
	return ref
}

// FromRegistry documents every command in r.
func FromRegistry(version string, r *command.Registry) Reference {
	return FromMetadata(version, r.Metadata())
}

// Categories returns the categories in order with their commands.
func (r Reference) Categories() []string {
	var out []string
	for _, c := range r.Commands {
		if len(out) == 0 || out[len(out)-1] != c.Category {
			out = append(out, c.Category)
		}
	}
	return out
}

// Lookup finds a command by name.
func (r Reference) Lookup(name string) (CommandDoc, bool) {
	i := slices.IndexFunc(r.Commands, func(c CommandDoc) bool { return c.Name == name })
	if i < 0 {
		return CommandDoc{}, false
	}
	return r.Commands[i], true
}
