package docgen

import (
	"github.com/opal-lang/hyperscript/core/analysis"
	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/visit"
)

// FeatureDoc is one handler, function, behavior or init block.
type FeatureDoc struct {
	Kind       string `json:"kind" yaml:"kind"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Line       int    `json:"line" yaml:"line"`
	Cyclomatic int    `json:"cyclomatic" yaml:"cyclomatic"`
	Cognitive  int    `json:"cognitive" yaml:"cognitive"`
	MaxNesting int    `json:"max_nesting" yaml:"max_nesting"`

	Description string `json:"description" yaml:"description"`
}

// VariableDoc summarizes one variable.
type VariableDoc struct {
	Name   string `json:"name" yaml:"name"`
	Scope  string `json:"scope" yaml:"scope"`
	Reads  int    `json:"reads" yaml:"reads"`
	Writes int    `json:"writes" yaml:"writes"`
}

// SmellDoc is one smell finding.
type SmellDoc struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
}

// Metrics are whole-script counts.
type Metrics struct {
	Nodes      int `json:"nodes" yaml:"nodes"`
	Commands   int `json:"commands" yaml:"commands"`
	Cyclomatic int `json:"cyclomatic" yaml:"cyclomatic"`
	Cognitive  int `json:"cognitive" yaml:"cognitive"`
	MaxNesting int `json:"max_nesting" yaml:"max_nesting"`
}

// ScriptReport documents one parsed script.
type ScriptReport struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	Metrics   Metrics       `json:"metrics" yaml:"metrics"`
	Features  []FeatureDoc  `json:"features" yaml:"features"`
	Handles   []string      `json:"handles,omitempty" yaml:"handles,omitempty"`
	Sends     []string      `json:"sends,omitempty" yaml:"sends,omitempty"`
	Defines   []string      `json:"defines,omitempty" yaml:"defines,omitempty"`
	Calls     []string      `json:"calls,omitempty" yaml:"calls,omitempty"`
	Selectors []string      `json:"selectors,omitempty" yaml:"selectors,omitempty"`
	Commands  []string      `json:"commands,omitempty" yaml:"commands,omitempty"`
	Variables []VariableDoc `json:"variables,omitempty" yaml:"variables,omitempty"`
	Smells    []SmellDoc    `json:"smells,omitempty" yaml:"smells,omitempty"`
}

// Analyze runs the analysis passes over root and collects the results.
func Analyze(name string, root *ast.Node, opts ...analysis.SmellOpt) ScriptReport {
	whole := analysis.Measure(root)
	deps := analysis.ExtractDependencies(root)
	r := ScriptReport{
		Name: name,
		Metrics: Metrics{
			Nodes:      visit.Count(root),
			Commands:   len(visit.FindNodes(root, func(n *ast.Node) bool { return n.Is(ast.TypeCommand) })),
			Cyclomatic: whole.Cyclomatic,
			Cognitive:  whole.Cognitive,
			MaxNesting: whole.MaxNesting,
		},
		Features:  []FeatureDoc{},
		Handles:   deps.Events,
		Sends:     deps.SentEvents,
		Defines:   deps.Definitions,
		Calls:     deps.Calls,
		Selectors: deps.Selectors,
		Commands:  deps.Commands,
	}

	for _, f := range analysis.MeasureFeatures(root) {
		r.Features = append(r.Features, FeatureDoc{
			Kind:       f.Kind,
			Name:       f.Name,
			Line:       f.Line,
			Cyclomatic: f.Cyclomatic,
			Cognitive:  f.Cognitive,
			MaxNesting: f.MaxNesting,

			Description: Describe(f.Node),
		})
	}

	usage := analysis.VariableUsage(root)
	for _, name := range usage.Names() {
		v := usage.Variables[name]
		r.Variables = append(r.Variables, VariableDoc{
			Name:   v.Name,
			Scope:  string(v.Scope),
			Reads:  len(v.Reads),
			Writes: len(v.Writes),
		})
	}

	for _, s := range analysis.Smells(root, opts...) {
		r.Smells = append(r.Smells, SmellDoc{Kind: s.Kind, Message: s.Message, Line: s.Line, Column: s.Column})
	}
	return r
}
