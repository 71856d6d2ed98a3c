package usagedb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opal-lang/hyperscript/runtime/scanner"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_RunsPendingMigrations(t *testing.T) {
	origAll := All
	defer func() { All = origAll }()
	All = []string{
		`CREATE TABLE test_one (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE test_two (id INTEGER PRIMARY KEY)`,
	}

	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db), "second run is a no-op")

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, 2, version)

	var name string
	require.NoError(t, db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='test_two'`).Scan(&name))
}

func TestMigrate_FailedMigrationKeepsVersion(t *testing.T) {
	origAll := All
	defer func() { All = origAll }()
	All = []string{
		`CREATE TABLE ok (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE broken (`,
	}

	db := openTestDB(t)
	assert.Error(t, Migrate(db))

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))
	_, err := db.Exec(`UPDATE schema_version SET version = ?`, len(All)+1)
	require.NoError(t, err)
	assert.Error(t, Migrate(db))
}

func usage(commands, blocks []string, positional bool, failures ...scanner.ParseFailure) *scanner.FileUsage {
	u := scanner.NewFileUsage()
	for _, c := range commands {
		u.Commands[c] = true
	}
	for _, b := range blocks {
		u.Blocks[b] = true
	}
	u.Positional = positional
	u.Scripts = 1
	u.Failures = failures
	return u
}

func TestReplaceAndQuery(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := t.Context()

	failure := scanner.ParseFailure{Script: "add .a to", Line: 1, Column: 10, Message: "expected expression"}
	results := map[string]*scanner.FileUsage{
		"a.html": usage([]string{"add", "toggle"}, []string{"if"}, true),
		"b.html": usage([]string{"add"}, nil, false, failure),
	}
	require.NoError(t, db.Replace(ctx, results))

	counts, err := db.CommandCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"add", 2}, {"toggle", 1}}, counts)

	files, err := db.FilesUsing(ctx, "add")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.html", "b.html"}, files)

	failures, err := db.Failures(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Failure{{Path: "b.html", ParseFailure: failure}}, failures)

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(results, loaded); diff != "" {
		t.Errorf("loaded results differ (-stored +loaded):\n%s", diff)
	}
}

func TestReplaceDropsStaleFiles(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := t.Context()

	require.NoError(t, db.Replace(ctx, map[string]*scanner.FileUsage{
		"old.html": usage([]string{"hide"}, nil, false),
	}))
	require.NoError(t, db.Replace(ctx, map[string]*scanner.FileUsage{
		"new.html": usage([]string{"show"}, nil, false),
	}))

	files, err := db.FilesUsing(ctx, "hide")
	require.NoError(t, err)
	assert.Empty(t, files)

	counts, err := db.CommandCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"show", 1}}, counts)
}
