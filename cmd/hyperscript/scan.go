package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opal-lang/hyperscript/core/docgen"
	"github.com/opal-lang/hyperscript/internal/usagedb"
	"github.com/opal-lang/hyperscript/runtime/cache"
	"github.com/opal-lang/hyperscript/runtime/scanner"
)

type scanOptions struct {
	extensions []string
	excludes   []string
	db         string
	watch      bool
	debounce   time.Duration
	format     string
	noParse    bool
}

// scanSetup resolves the project config for dirs and merges flags over it.
func (a *app) scanSetup(dirs []string, opts scanOptions) (*scanner.Scanner, scanOptions, error) {
	cfg, path, err := scanner.FindConfig(dirs[0])
	if err != nil {
		return nil, opts, err
	}
	if path != "" {
		a.logger.Debug("loaded config", "path", path)
		if cfg.DB != "" && !filepath.IsAbs(cfg.DB) {
			cfg.DB = filepath.Join(filepath.Dir(path), cfg.DB)
		}
	}
	if len(opts.extensions) > 0 {
		cfg.Extensions = opts.extensions
	}
	if len(opts.excludes) > 0 {
		cfg.Exclude = opts.excludes
	}
	if opts.db == "" {
		opts.db = cfg.DB
	}
	if opts.debounce == 0 {
		opts.debounce = cfg.Debounce
	}

	sopts := append(cfg.Options(),
		scanner.WithLogger(a.logger),
		scanner.WithParseCache(cache.New(cache.WithLogger(a.logger))),
	)
	if opts.noParse {
		sopts = append(sopts, scanner.WithoutSyntaxCheck())
	}
	return scanner.New(sopts...), opts, nil
}

func (a *app) scanCmd() *cobra.Command {
	var opts scanOptions
	cmd := &cobra.Command{
		Use:   "scan [dir]...",
		Short: "Scan templates for the commands and blocks their scripts use",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			s, opts, err := a.scanSetup(args, opts)
			if err != nil {
				return err
			}
			report := func(results map[string]*scanner.FileUsage) error {
				if opts.db != "" {
					if err := storeResults(cmd.Context(), opts.db, results); err != nil {
						return err
					}
				}
				return a.writeSummary(cmd.OutOrStdout(), opts.format, scanner.Combine(results).Summary())
			}

			if !opts.watch {
				results, err := s.ScanDirectories(cmd.Context(), args...)
				if err != nil {
					return err
				}
				return report(results)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return s.Watch(ctx, opts.debounce, func(results map[string]*scanner.FileUsage) {
				if err := report(results); err != nil {
					a.ui.formatError(cmd.ErrOrStderr(), err)
				}
			}, args...)
		},
	}
	cmd.Flags().StringSliceVar(&opts.extensions, "ext", nil, "File extensions to scan (overrides config)")
	cmd.Flags().StringSliceVar(&opts.excludes, "exclude", nil, "Path patterns to skip (overrides config)")
	cmd.Flags().StringVar(&opts.db, "db", "", "Store results in this SQLite usage index")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Rescan when files change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "Quiet period before a watch rescan")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: json, yaml or text")
	cmd.Flags().BoolVar(&opts.noParse, "no-parse", false, "Skip the syntax check of each script")
	return cmd
}

func storeResults(ctx context.Context, path string, results map[string]*scanner.FileUsage) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	db, err := usagedb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Replace(ctx, results)
}

func (a *app) writeSummary(w io.Writer, format string, sum scanner.Summary) error {
	f, err := docgen.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == docgen.FormatJSON || f == docgen.FormatYAML {
		return docgen.Render(w, f, sum)
	}
	_, _ = fmt.Fprintf(w, "files: %d  scripts: %d  positional: %t\n", sum.FileCount, sum.Scripts, sum.Positional)
	_, _ = fmt.Fprintf(w, "commands: %s\n", a.names(sum.Commands))
	_, _ = fmt.Fprintf(w, "blocks: %s\n", a.names(sum.Blocks))
	for _, failure := range sum.Failures {
		_, _ = fmt.Fprintf(w, "%s %d:%d: %s\n    %s\n", a.ui.paint(errorStyle, "parse error"),
			failure.Line, failure.Column, failure.Message, failure.Script)
	}
	return nil
}

func (a *app) names(list []string) string {
	if len(list) == 0 {
		return a.ui.paint(faintStyle, "none")
	}
	styled := make([]string, len(list))
	for i, n := range list {
		styled[i] = a.ui.paint(nameStyle, n)
	}
	return strings.Join(styled, ", ")
}

func (a *app) usageCmd() *cobra.Command {
	var dbPath string
	open := func() (*usagedb.DB, error) {
		if dbPath == "" {
			cfg, path, err := scanner.FindConfig(".")
			if err != nil {
				return nil, err
			}
			if cfg.DB == "" {
				return nil, fmt.Errorf("no usage index: pass --db or set db in %s", scanner.ConfigFile)
			}
			dbPath = cfg.DB
			if !filepath.IsAbs(dbPath) {
				dbPath = filepath.Join(filepath.Dir(path), dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("usage index %s: %w (run `hyperscript scan --db` first)", dbPath, err)
		}
		return usagedb.Open(dbPath)
	}

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Query the usage index written by scan --db",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite usage index (default from config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "commands",
			Short: "List used commands by number of files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				counts, err := db.CommandCounts(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range counts {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%5d  %s\n", c.Files, a.ui.paint(nameStyle, c.Name))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "files <command>",
			Short: "List the files that use a command",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				files, err := db.FilesUsing(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, f := range files {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "failures",
			Short: "List scripts that failed to parse",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				failures, err := db.Failures(cmd.Context())
				if err != nil {
					return err
				}
				for _, f := range failures {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s\n", f.Path, f.Line, f.Column, f.Message)
				}
				return nil
			},
		},
	)
	return cmd
}
