package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	faintStyle = lipgloss.NewStyle().Faint(true)
	nameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// ui writes styled output. Styles are dropped when color is off.
type ui struct {
	color bool
}

// shouldUseColor respects --no-color and NO_COLOR, then asks whether w is a
// terminal.
func shouldUseColor(w io.Writer, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (u ui) paint(style lipgloss.Style, text string) string {
	if !u.color {
		return text
	}
	return style.Render(text)
}

func (u ui) ok(w io.Writer, path string) {
	_, _ = fmt.Fprintf(w, "%s  %s\n", u.paint(okStyle, "ok"), path)
}

func (u ui) failure(w io.Writer, path string, err error) {
	_, _ = fmt.Fprintf(w, "%s  %s\n", u.paint(errorStyle, "err"), path)
	u.formatError(w, err)
}

// formatError renders err with whatever guidance its type carries.
func (u ui) formatError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var (
		pe      *parser.ParseError
		unknown *command.UnknownCommandError
	)
	switch {
	case errors.As(err, &pe):
		_, _ = fmt.Fprintf(w, "%s %d:%d: %s", u.paint(errorStyle, "Error:"), pe.Line, pe.Column, pe.Message)
		if pe.Context != "" {
			_, _ = fmt.Fprintf(w, " in %s", pe.Context)
		}
		_, _ = fmt.Fprintln(w)
		if pe.Expected != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", u.paint(faintStyle, "expected "+pe.Expected+", got "+describeGot(pe)))
		}
		if pe.Suggestion != "" {
			_, _ = fmt.Fprintf(w, "  %s %s\n", u.paint(hintStyle, "Hint:"), pe.Suggestion)
		}
		if pe.Example != "" {
			_, _ = fmt.Fprintf(w, "  %s %s\n", u.paint(faintStyle, "Example:"), pe.Example)
		}
	case errors.As(err, &unknown):
		_, _ = fmt.Fprintf(w, "%s unknown command %q\n", u.paint(errorStyle, "Error:"), unknown.Name)
		if unknown.Suggestion != "" {
			_, _ = fmt.Fprintf(w, "  %s did you mean %s?\n", u.paint(hintStyle, "Hint:"), u.paint(nameStyle, unknown.Suggestion))
		}
	default:
		_, _ = fmt.Fprintf(w, "%s %v\n", u.paint(errorStyle, "Error:"), err)
	}
}

func describeGot(pe *parser.ParseError) string {
	if pe.GotValue != "" {
		return fmt.Sprintf("%q", pe.GotValue)
	}
	return pe.Got.String()
}
