// Command hyperscript is the developer CLI: it parses, checks, formats and
// runs scripts, documents the command set and scans templates for usage.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/commands"
)

const debugEnv = "HYPERSCRIPT_DEBUG"

// app carries what every subcommand shares.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	debug   bool
	noColor bool

	logger   *slog.Logger
	ui       ui
	registry *command.Registry
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.rootCmd().Execute(); err != nil {
		a.ui.formatError(a.stderr, err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hyperscript",
		Short:         "Parse, check, run and document hyperscript",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = newLogger(a.stderr, a.debug || os.Getenv(debugEnv) != "")
			a.ui = ui{color: shouldUseColor(a.stdout, a.noColor)}
			a.registry = commands.NewRegistry()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging (also "+debugEnv+")")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		a.parseCmd(),
		a.checkCmd(),
		a.fmtCmd(),
		a.analyzeCmd(),
		a.docsCmd(),
		a.runCmd(),
		a.scanCmd(),
		a.usageCmd(),
	)
	return root
}

// newLogger logs to w without time or level attributes.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && (attr.Key == slog.TimeKey || attr.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return attr
		},
	}))
}

// readScript reads a script from path, or from stdin when path is "-" or
// empty.
func (a *app) readScript(path string) (string, string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("error opening file %s: %w", path, err)
	}
	return path, string(data), nil
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
