// Package usagedb keeps the latest template scan in SQLite so the CLI can
// answer "which files use X" without rescanning.
package usagedb

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"

	_ "modernc.org/sqlite"

	"github.com/opal-lang/hyperscript/runtime/scanner"
)

// DB is an open usage index.
type DB struct {
	sql *sql.DB
}

// Open opens or creates the index at path and migrates it.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One writer; sqlite serializes anyway.
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &DB{sql: sqlDB}, nil
}

func (db *DB) Close() error { return db.sql.Close() }

// Replace stores results as the whole index, dropping files from earlier
// scans that are not in results.
func (db *DB) Replace(ctx context.Context, results map[string]*scanner.FileUsage) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("clearing files: %w", err)
	}
	for _, path := range slices.Sorted(maps.Keys(results)) {
		if err := insertFile(ctx, tx, path, results[path]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return nil
}

func insertFile(ctx context.Context, tx *sql.Tx, path string, u *scanner.FileUsage) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO files (file_path, scripts, positional) VALUES (?, ?, ?)`,
		path, u.Scripts, u.Positional)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading id of %s: %w", path, err)
	}

	for _, cmd := range slices.Sorted(maps.Keys(u.Commands)) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO file_commands (file_id, command) VALUES (?, ?)`, id, cmd); err != nil {
			return fmt.Errorf("inserting command %s of %s: %w", cmd, path, err)
		}
	}
	for _, block := range slices.Sorted(maps.Keys(u.Blocks)) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO file_blocks (file_id, block) VALUES (?, ?)`, id, block); err != nil {
			return fmt.Errorf("inserting block %s of %s: %w", block, path, err)
		}
	}
	for _, f := range u.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parse_failures (file_id, line, col, message, script) VALUES (?, ?, ?, ?, ?)`,
			id, f.Line, f.Column, f.Message, f.Script); err != nil {
			return fmt.Errorf("inserting failure of %s: %w", path, err)
		}
	}
	return nil
}

// Count is how many files use a name.
type Count struct {
	Name  string `json:"name"`
	Files int    `json:"files"`
}

// CommandCounts lists every used command with its file count, most used
// first.
func (db *DB) CommandCounts(ctx context.Context) ([]Count, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT command, COUNT(*) FROM file_commands GROUP BY command ORDER BY COUNT(*) DESC, command`)
	if err != nil {
		return nil, fmt.Errorf("querying command counts: %w", err)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Name, &c.Files); err != nil {
			return nil, fmt.Errorf("scanning command count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FilesUsing lists the files that use command, sorted by path.
func (db *DB) FilesUsing(ctx context.Context, command string) ([]string, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT f.file_path FROM files f
		JOIN file_commands c ON c.file_id = f.id
		WHERE c.command = ?
		ORDER BY f.file_path`, command)
	if err != nil {
		return nil, fmt.Errorf("querying files using %s: %w", command, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// Failure is a stored parse failure.
type Failure struct {
	Path string `json:"path"`
	scanner.ParseFailure
}

// Failures lists stored parse failures by path and position.
func (db *DB) Failures(ctx context.Context) ([]Failure, error) {
	rows, err := db.sql.QueryContext(ctx, `
		SELECT f.file_path, p.line, p.col, p.message, p.script FROM parse_failures p
		JOIN files f ON f.id = p.file_id
		ORDER BY f.file_path, p.line, p.col`)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Path, &f.Line, &f.Column, &f.Message, &f.Script); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Load rebuilds the stored results.
func (db *DB) Load(ctx context.Context) (map[string]*scanner.FileUsage, error) {
	results := map[string]*scanner.FileUsage{}
	ids := map[int64]*scanner.FileUsage{}

	rows, err := db.sql.QueryContext(ctx, `SELECT id, file_path, scripts, positional FROM files`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	for rows.Next() {
		var (
			id   int64
			path string
			u    = scanner.NewFileUsage()
		)
		if err := rows.Scan(&id, &path, &u.Scripts, &u.Positional); err != nil {
			rows.Close()
			return nil, err
		}
		results[path] = u
		ids[id] = u
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sets := []struct {
		query string
		pick  func(*scanner.FileUsage) map[string]bool
	}{
		{`SELECT file_id, command FROM file_commands`, func(u *scanner.FileUsage) map[string]bool { return u.Commands }},
		{`SELECT file_id, block FROM file_blocks`, func(u *scanner.FileUsage) map[string]bool { return u.Blocks }},
	}
	for _, set := range sets {
		if err := db.loadSet(ctx, set.query, ids, set.pick); err != nil {
			return nil, err
		}
	}

	failures, err := db.Failures(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range failures {
		u := results[f.Path]
		u.Failures = append(u.Failures, f.ParseFailure)
	}
	return results, nil
}

func (db *DB) loadSet(ctx context.Context, query string, ids map[int64]*scanner.FileUsage, pick func(*scanner.FileUsage) map[string]bool) error {
	rows, err := db.sql.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("loading usage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if u, ok := ids[id]; ok {
			pick(u)[name] = true
		}
	}
	return rows.Err()
}
