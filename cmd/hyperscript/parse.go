package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/opal-lang/hyperscript/core/analysis"
	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/astfmt"
	"github.com/opal-lang/hyperscript/core/docgen"
	"github.com/opal-lang/hyperscript/core/generator"
	"github.com/opal-lang/hyperscript/core/visit"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

// parse reads and parses one script, returning the parse error as a Go
// error.
func (a *app) parse(path string, opts ...parser.ParserOpt) (string, *parser.ParseResult, error) {
	name, src, err := a.readScript(path)
	if err != nil {
		return "", nil, err
	}
	res := parser.Parse(src, append(opts, parser.WithLogger(a.logger))...)
	if !res.Success {
		return name, res, res.Error
	}
	return name, res, nil
}

func (a *app) parseCmd() *cobra.Command {
	var (
		output    string
		telemetry bool
	)
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a script and print its tree",
		Long: "Parse a script (from a file, or stdin with - or no argument) and print it.\n" +
			"Outputs: tree (outline), nodes (node list), digest (structural BLAKE2b), cbor (binary).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []parser.ParserOpt
			if telemetry {
				opts = append(opts, parser.WithTelemetryTiming())
			}
			_, res, err := a.parse(argOrStdin(args), opts...)
			if err != nil {
				return err
			}
			if res.Telemetry != nil {
				t := res.Telemetry
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "tokens=%d nodes=%d lex=%s parse=%s total=%s\n",
					t.TokenCount, t.NodeCount, t.LexTime, t.ParseTime, t.TotalTime)
			}
			return writeTree(cmd.OutOrStdout(), output, res.Node, a.ui.color)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "tree", "Output: tree, nodes, digest or cbor")
	cmd.Flags().BoolVar(&telemetry, "telemetry", false, "Print token, node and timing counts to stderr")
	return cmd
}

func writeTree(w io.Writer, output string, root *ast.Node, color bool) error {
	switch output {
	case "tree":
		docgen.FormatTree(w, root, color)
		return nil
	case "nodes":
		var err error
		visit.Inspect(root, func(n *ast.Node) bool {
			if err == nil {
				_, err = fmt.Fprintf(w, "%d:%d %s\n", n.Line, n.Column, n)
			}
			return true
		})
		return err
	case "digest":
		digest, err := astfmt.Digest(root)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, digest)
		return err
	case "cbor":
		data, err := astfmt.Encode(root)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown output %q (want tree, nodes, digest or cbor)", output)
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Check scripts for syntax errors and unknown commands",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				_, res, err := a.parse(path)
				if err == nil {
					err = a.checkCommands(res.Node)
				}
				if err != nil {
					failed++
					a.ui.failure(cmd.OutOrStdout(), path, err)
					continue
				}
				a.ui.ok(cmd.OutOrStdout(), path)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(args))
			}
			return nil
		},
	}
}

// checkCommands reports the first command the registry does not know.
func (a *app) checkCommands(root *ast.Node) error {
	for _, n := range visit.FindNodes(root, visit.OfType(ast.TypeCommand)) {
		name := n.Str("name")
		if _, ok := a.registry.Lookup(name); !ok {
			return &command.Error{
				Command: name,
				Line:    n.Line,
				Column:  n.Column,
				Err:     &command.UnknownCommandError{Name: name, Suggestion: a.registry.Suggest(name)},
			}
		}
	}
	return nil
}

func (a *app) fmtCmd() *cobra.Command {
	var indent string
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Print a script in canonical layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, res, err := a.parse(argOrStdin(args))
			if err != nil {
				return err
			}
			var opts []generator.Option
			if indent != "" {
				opts = append(opts, generator.WithIndent(indent))
			}
			out, err := generator.Generate(res.Node, opts...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&indent, "indent", "  ", "Indent for nested blocks; empty prints one line")
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	var (
		format     string
		maxNesting int
	)
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Report complexity, dependencies, variables and smells of a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := docgen.ParseFormat(format)
			if err != nil {
				return err
			}
			name, res, err := a.parse(argOrStdin(args))
			if err != nil {
				return err
			}
			var opts []analysis.SmellOpt
			if maxNesting > 0 {
				opts = append(opts, analysis.WithMaxNesting(maxNesting))
			}
			return docgen.Render(cmd.OutOrStdout(), f, docgen.Analyze(name, res.Node, opts...))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: json, yaml, text or markdown")
	cmd.Flags().IntVar(&maxNesting, "max-nesting", 0, "Nesting depth that counts as a smell")
	return cmd
}
