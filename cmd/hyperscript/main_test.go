package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/core/ast"
	"github.com/opal-lang/hyperscript/core/docgen"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/commands"
	"github.com/opal-lang/hyperscript/runtime/parser"
	"github.com/opal-lang/hyperscript/runtime/scanner"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseTree(t *testing.T) {
	out, _, err := execute(t, "on click add .a to me", "parse")
	require.NoError(t, err)
	assert.Equal(t, "on click\n└─ add .a to me\n", out)
}

func TestParseOutputs(t *testing.T) {
	out, _, err := execute(t, "log 1", "parse", "-o", "digest")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "blake2b:"))

	out, _, err = execute(t, "log 1", "parse", "-o", "nodes")
	require.NoError(t, err)
	assert.Contains(t, out, "command(log)")

	_, errOut, err := execute(t, "log 1", "parse", "--telemetry")
	require.NoError(t, err)
	assert.Contains(t, errOut, "tokens=")

	_, _, err = execute(t, "log 1", "parse", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output")
}

func TestParseErrorIsReturned(t *testing.T) {
	_, _, err := execute(t, "add .a to", "parse")
	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 1, pe.Line)

	var buf bytes.Buffer
	ui{}.formatError(&buf, err)
	assert.True(t, strings.HasPrefix(buf.String(), "Error: 1:"))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good.hs"), "on click hide me")
	bad := writeFile(t, filepath.Join(dir, "bad.hs"), "on click add .a to")

	out, _, err := execute(t, "", "check", good)
	require.NoError(t, err)
	assert.Equal(t, "ok  "+good+"\n", out)

	out, _, err = execute(t, "", "check", good, bad)
	assert.ErrorContains(t, err, "1 of 2 scripts failed")
	assert.Contains(t, out, "err  "+bad)
}

func TestCheckCommandsSuggests(t *testing.T) {
	a := &app{registry: commands.NewRegistry()}
	root := ast.Program([]*ast.Node{
		ast.EventHandler("click", nil, []*ast.Node{ast.Command("hidee", nil, nil, false)}),
	})
	err := a.checkCommands(root)
	var unknown *command.UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "hide", unknown.Suggestion)

	var buf bytes.Buffer
	ui{}.formatError(&buf, err)
	assert.Contains(t, buf.String(), "did you mean hide?")
}

func TestFmt(t *testing.T) {
	out, _, err := execute(t, "on click if x then add .a end", "fmt", "--indent", "")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "if x then add .a")

	out, _, err = execute(t, "on click if x then add .a end", "fmt")
	require.NoError(t, err)
	assert.Greater(t, strings.Count(out, "\n"), 2)
}

func TestAnalyzeJSON(t *testing.T) {
	out, _, err := execute(t, "on click send done to #out", "analyze", "--format", "json")
	require.NoError(t, err)
	var r docgen.ScriptReport
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "<stdin>", r.Name)
	assert.Equal(t, []string{"click"}, r.Handles)
	assert.Equal(t, []string{"done"}, r.Sends)
}

func TestDocs(t *testing.T) {
	out, _, err := execute(t, "", "docs", "add", "--format", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "### `add`")
	assert.NotContains(t, out, "### `remove`")

	out, _, err = execute(t, "", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "control-flow:")

	_, _, err = execute(t, "", "docs", "hidee")
	var unknown *command.UnknownCommandError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "hide", unknown.Suggestion)

	_, _, err = execute(t, "", "docs", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")
}

const page = `<html><body _="on click increment $count then put $count into #count">
<button id="btn" _="on click add .clicked to me then send done to #out">go</button>
<p id="out" _="on done put 'yes' into me">no</p>
<p id="count"></p>
</body></html>`

func TestRunDispatchesEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "page.html"), page)

	out, _, err := execute(t, "", "run", path, "--event", "click", "--target", "#btn")
	require.NoError(t, err)
	assert.Contains(t, out, `class="clicked"`)
	assert.Contains(t, out, `<p id="out" _="on done put &#39;yes&#39; into me">yes</p>`)
	assert.Contains(t, out, `<p id="count">1</p>`, "click bubbles to body")

	out, _, err = execute(t, "", "run", path, "-e", "click", "-e", "click", "-t", "#btn")
	require.NoError(t, err)
	assert.Contains(t, out, `<p id="count">2</p>`)
}

func TestRunPersistsGlobals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "page.html"), page)
	globals := filepath.Join(dir, "globals.db")

	for range 2 {
		_, _, err := execute(t, "", "run", path, "-e", "click", "-t", "#btn", "--globals", globals, "-q")
		require.NoError(t, err)
	}
	out, _, err := execute(t, "", "run", path, "-e", "click", "-t", "#btn", "--globals", globals)
	require.NoError(t, err)
	assert.Contains(t, out, `<p id="count">3</p>`)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, "page.html"), page)

	_, _, err := execute(t, "", "run", path, "-e", "click", "-t", "#missing")
	assert.ErrorContains(t, err, "matches no element")

	broken := writeFile(t, filepath.Join(dir, "broken.html"), `<div _="on click add .a to"></div>`)
	_, _, err = execute(t, "", "run", broken)
	var pe *parser.ParseError
	assert.True(t, errors.As(err, &pe), "got %v", err)

	_, _, err = execute(t, "", "run", filepath.Join(dir, "nope.html"))
	assert.ErrorContains(t, err, "error opening file")
}

func TestScanAndUsage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.html"), `<b _="on click add .x">`)
	writeFile(t, filepath.Join(dir, "b.html"), `<b _="on click add .y then hide me">`)
	writeFile(t, filepath.Join(dir, "c.html"), `<b _="on click add .z to">`)
	db := filepath.Join(dir, "index", "usage.db")

	out, _, err := execute(t, "", "scan", dir, "--db", db, "--format", "json")
	require.NoError(t, err)
	var sum scanner.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, []string{"add", "hide"}, sum.Commands)
	assert.Equal(t, 3, sum.FileCount)
	assert.Len(t, sum.Failures, 1)

	out, _, err = execute(t, "", "usage", "commands", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "    3  add\n    1  hide\n", out)

	out, _, err = execute(t, "", "usage", "files", "hide", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.html")+"\n", out)

	out, _, err = execute(t, "", "usage", "failures", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "c.html")+":1:")
}

func TestScanUsesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, scanner.ConfigFile), "extensions: [.tpl]\ndb: usage.db\n")
	writeFile(t, filepath.Join(dir, "a.tpl"), `<b _="on click toggle .x">`)
	writeFile(t, filepath.Join(dir, "b.html"), `<b _="on click hide me">`)

	out, _, err := execute(t, "", "scan", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "files: 1")
	assert.Contains(t, out, "commands: toggle\n")
	assert.FileExists(t, filepath.Join(dir, "usage.db"))
}

func TestUsageWithoutIndex(t *testing.T) {
	_, _, err := execute(t, "", "usage", "commands", "--db", filepath.Join(t.TempDir(), "none.db"))
	assert.ErrorContains(t, err, "scan --db")
}

func TestNewLoggerStripsTimeAndLevel(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Info("hi", "n", 2)
	newLogger(&buf, false).Debug("hidden")
	newLogger(&buf, true).Debug("shown")
	assert.Equal(t, "msg=hi n=2\nmsg=shown\n", buf.String())
}

func TestShouldUseColor(t *testing.T) {
	assert.False(t, shouldUseColor(&bytes.Buffer{}, false))
	assert.False(t, shouldUseColor(os.Stdout, true))
	t.Setenv("NO_COLOR", "1")
	assert.False(t, shouldUseColor(os.Stdout, false))
}
