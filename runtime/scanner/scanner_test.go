package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExtract(t *testing.T) {
	content := "<button _=\"on click toggle .open\">x</button>\n" +
		"<div _='on load add .ready'></div>\n" +
		"<div _=`on click hide me`></div>\n" +
		"<Comp _={`on click show #x`} />\n" +
		"<Comp _={\"on click log 1\"} />\n" +
		"<p data-hs=\"on click put 'a' into me\"></p>\n" +
		"{% hs %}\n  on click send done\n{% endhs %}\n" +
		"{% hs_attr \"on click wait 1s\" %}\n" +
		"{% hs_script 'on click call go()' %}\n" +
		"<SCRIPT type=\"text/hyperscript\">\ndef f() return 1 end\n</SCRIPT>\n" +
		"<div _=\"   \"></div>\n"

	want := []string{
		"on click toggle .open",
		"on load add .ready",
		"on click hide me",
		"on click show #x",
		"on click log 1",
		"on click put 'a' into me",
		"on click send done",
		"on click wait 1s",
		"on click call go()",
		"def f() return 1 end",
	}
	if diff := cmp.Diff(want, New().Extract(content)); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		script string
		want   Summary
	}{
		{"on click toggle .open on #menu", Summary{Commands: []string{"toggle"}, Blocks: []string{}}},
		{"unless x then Hide me end", Summary{Commands: []string{"hide"}, Blocks: []string{"if"}}},
		{"repeat 3 times add .tick end", Summary{Commands: []string{"add"}, Blocks: []string{"repeat"}}},
		{"repeat while x log x end", Summary{Commands: []string{"log"}, Blocks: []string{"while"}}},
		{"for each row in .rows removeClass .x from row end", Summary{Commands: []string{"removeclass"}, Blocks: []string{"for"}}},
		{"on click put closest <form/> into x", Summary{Commands: []string{"put"}, Blocks: []string{}, Positional: true}},
		{"fetch /api async wait 1s", Summary{Commands: []string{"wait"}, Blocks: []string{"async", "fetch"}}},
	}
	s := New(WithoutSyntaxCheck())
	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			tt.want.Scripts = 1
			if diff := cmp.Diff(tt.want, s.Analyze(tt.script).Summary()); diff != "" {
				t.Errorf("usage mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeRecordsParseFailures(t *testing.T) {
	u := New().Analyze("add .a to")
	require.Len(t, u.Failures, 1)
	assert.Equal(t, "add .a to", u.Failures[0].Script)
	assert.Equal(t, 1, u.Failures[0].Line)
	assert.NotEmpty(t, u.Failures[0].Message)

	assert.Empty(t, New().Analyze("on click add .a to me").Failures)
}

func TestMerge(t *testing.T) {
	s := New(WithoutSyntaxCheck())
	u := s.ScanContent(`<a _="on click add .a"></a><b _="repeat 2 times log closest <p/> end"></b>`, "inline")
	assert.Equal(t, Summary{
		Commands:   []string{"add", "log"},
		Blocks:     []string{"repeat"},
		Positional: true,
		Scripts:    2,
	}, u.Summary())
	assert.True(t, NewFileUsage().Empty())
}

func TestScanFileUnreadable(t *testing.T) {
	u := New().ScanFile(filepath.Join(t.TempDir(), "missing.html"))
	assert.True(t, u.Empty())
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), `<b _="on click add .x">`)
	writeFile(t, filepath.Join(root, "sub", "b.jinja"), `{% hs %}repeat 2 times log 1 end{% endhs %}`)
	writeFile(t, filepath.Join(root, "node_modules", "c.html"), `<b _="on click hide me">`)
	writeFile(t, filepath.Join(root, "d.go"), `_="on click show me"`)
	writeFile(t, filepath.Join(root, "e.html"), `<p>plain</p>`)
	writeFile(t, filepath.Join(root, "f.html"), `<b _="add .a to">`)

	results, err := New().ScanDirectory(t.Context(), root)
	require.NoError(t, err)

	var got []string
	for path := range results {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"a.html", "sub/b.jinja", "f.html"}, got)

	sum := Combine(results).Summary()
	assert.Equal(t, []string{"add", "log"}, sum.Commands)
	assert.Equal(t, []string{"repeat"}, sum.Blocks)
	assert.Equal(t, 3, sum.FileCount)
	assert.Len(t, sum.Failures, 1)
}

func TestScanDirectoryEdgeCases(t *testing.T) {
	results, err := New().ScanDirectory(t.Context(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, results)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), `<b _="on click add .x">`)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = New().ScanDirectory(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanDirectories(t *testing.T) {
	one, two := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(one, "a.html"), `<b _="on click add .x">`)
	writeFile(t, filepath.Join(two, "b.htm"), `<b _="on click hide me">`)

	results, err := New().ScanDirectories(t.Context(), one, two)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFile), `
extensions: [.tpl, svelte]
exclude: [skip]
db: usage.db
debounce: 300ms
`)
	cfg, err := LoadConfig(filepath.Join(root, ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Extensions: []string{".tpl", "svelte"},
		Exclude:    []string{"skip"},
		DB:         "usage.db",
		Debounce:   300 * time.Millisecond,
	}, cfg)

	s := New(cfg.Options()...)
	assert.True(t, s.ShouldScan("page.TPL"))
	assert.True(t, s.ShouldScan("App.svelte"))
	assert.False(t, s.ShouldScan("page.html"))
	assert.False(t, s.ShouldScan("skip/page.tpl"))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	found, path, err := FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFile), path)
	assert.Equal(t, cfg, found)
}

func TestConfigErrors(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFile))
	require.NoError(t, err, "missing file is fine")
	assert.Equal(t, Config{}, cfg)
	assert.Empty(t, cfg.Options())

	bad := filepath.Join(t.TempDir(), ConfigFile)
	writeFile(t, bad, "extensions: {not: [a list")
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	writeFile(t, bad, "debounce: -1s")
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestWatchRescansOnChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.html"), `<b _="on click add .x">`)

	ctx, cancel := context.WithCancel(t.Context())
	reports := make(chan map[string]*FileUsage, 8)
	done := make(chan error, 1)
	go func() {
		done <- New().Watch(ctx, 20*time.Millisecond, func(r map[string]*FileUsage) { reports <- r }, root)
	}()

	next := func() map[string]*FileUsage {
		t.Helper()
		select {
		case r := <-reports:
			return r
		case <-time.After(5 * time.Second):
			t.Fatal("no scan reported")
			return nil
		}
	}

	assert.Len(t, next(), 1)

	writeFile(t, filepath.Join(root, "b.html"), `<b _="on click hide me">`)
	var latest map[string]*FileUsage
	for len(latest) < 2 {
		latest = next()
	}
	assert.True(t, Combine(latest).Commands["hide"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
