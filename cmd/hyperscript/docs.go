package main

import (
	"github.com/spf13/cobra"

	"github.com/opal-lang/hyperscript/core/docgen"
	"github.com/opal-lang/hyperscript/runtime/command"
)

func (a *app) docsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "docs [command]",
		Short: "Print the command reference",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := docgen.ParseFormat(format)
			if err != nil {
				return err
			}
			ref := docgen.FromRegistry(command.RuntimeVersion, a.registry)
			if len(args) == 1 {
				doc, ok := ref.Lookup(args[0])
				if !ok {
					return &command.UnknownCommandError{Name: args[0], Suggestion: a.registry.Suggest(args[0])}
				}
				ref.Commands = []docgen.CommandDoc{doc}
			}
			return docgen.Render(cmd.OutOrStdout(), f, ref)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: json, yaml, text or markdown")
	return cmd
}
