// Package scanner finds scripts embedded in templates and reports which
// commands, blocks and positional expressions they use, so a bundler can
// ship only what a site needs.
//
// Detection is textual and deliberately loose; a word like "show" in a
// script counts as a use. Every script is also run through the parser and
// rejected scripts are reported as failures.
package scanner

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opal-lang/hyperscript/runtime/cache"
)

// DefaultExtensions are scanned unless WithExtensions says otherwise.
var DefaultExtensions = []string{".html", ".htm", ".txt", ".xml", ".jinja", ".jinja2"}

// DefaultExcludes are skipped unless WithExcludes says otherwise.
var DefaultExcludes = []string{"__pycache__", ".git", "node_modules", ".venv", "venv", "site-packages"}

// Scanner scans files and directories. It is safe for concurrent use.
type Scanner struct {
	extensions map[string]bool
	excludes   []string
	logger     *slog.Logger
	parses     *cache.Parser
	syntax     bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExtensions replaces the scanned file extensions. Extensions are
// matched case-insensitively and may omit the leading dot.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = map[string]bool{}
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions[strings.ToLower(ext)] = true
		}
	}
}

// WithExcludes replaces the exclude patterns. A path is skipped when it
// contains any pattern as a substring.
func WithExcludes(patterns ...string) Option {
	return func(s *Scanner) { s.excludes = patterns }
}

// WithLogger sets the logger for per-file debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithParseCache shares a parse cache, for example across watch rescans.
func WithParseCache(p *cache.Parser) Option {
	return func(s *Scanner) { s.parses = p }
}

// WithoutSyntaxCheck skips parsing scripts.
func WithoutSyntaxCheck() Option {
	return func(s *Scanner) { s.syntax = false }
}

// New creates a Scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{
		excludes: DefaultExcludes,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		syntax:   true,
	}
	WithExtensions(DefaultExtensions...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.parses == nil {
		s.parses = cache.New(cache.WithLogger(s.logger))
	}
	return s
}

// ShouldScan reports whether path has a scanned extension and matches no
// exclude pattern.
func (s *Scanner) ShouldScan(path string) bool {
	if !s.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return !s.excluded(path)
}

func (s *Scanner) excluded(path string) bool {
	for _, pattern := range s.excludes {
		if pattern != "" && strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// Extract returns every non-blank script in content, grouped by the
// pattern that found it.
func (s *Scanner) Extract(content string) []string {
	var scripts []string
	for _, re := range scriptPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			if script := strings.TrimSpace(m[1]); script != "" {
				scripts = append(scripts, script)
			}
		}
	}
	return scripts
}

// Analyze reports the usage of one script.
func (s *Scanner) Analyze(script string) *FileUsage {
	u := NewFileUsage()
	u.Scripts = 1
	for _, m := range commandPattern.FindAllStringSubmatch(script, -1) {
		u.Commands[strings.ToLower(m[1])] = true
	}
	for _, bp := range blockPatterns {
		if bp.re.MatchString(script) {
			u.Blocks[bp.block] = true
		}
	}
	u.Positional = positionalPattern.MatchString(script)

	if s.syntax {
		if res := s.parses.Parse(script); !res.Success && res.Error != nil {
			u.Failures = append(u.Failures, ParseFailure{
				Script:  script,
				Line:    res.Error.Line,
				Column:  res.Error.Column,
				Message: res.Error.Message,
			})
		}
	}
	return u
}

// ScanContent extracts and analyzes every script in content. name is only
// used for logging.
func (s *Scanner) ScanContent(content, name string) *FileUsage {
	u := NewFileUsage()
	for _, script := range s.Extract(content) {
		u.Merge(s.Analyze(script))
	}
	if !u.Empty() {
		sum := u.Summary()
		s.logger.Debug("scanned", "file", name, "commands", sum.Commands,
			"blocks", sum.Blocks, "positional", sum.Positional, "failures", len(sum.Failures))
	}
	return u
}

// ScanFile scans one file. A file that cannot be read yields empty usage.
func (s *Scanner) ScanFile(path string) *FileUsage {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("read failed", "file", path, "error", err)
		return NewFileUsage()
	}
	return s.ScanContent(string(data), path)
}

// ScanDirectory scans every eligible file below dir. Files without usage
// or failures are left out. A missing directory yields no results.
func (s *Scanner) ScanDirectory(ctx context.Context, dir string) (map[string]*FileUsage, error) {
	results := map[string]*FileUsage{}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return results, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("walk failed", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && s.excluded(path) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.ShouldScan(path) {
			return nil
		}
		if u := s.ScanFile(path); !u.Empty() || len(u.Failures) > 0 {
			results[path] = u
		}
		return nil
	})
	return results, err
}

// ScanDirectories scans several roots into one result map.
func (s *Scanner) ScanDirectories(ctx context.Context, dirs ...string) (map[string]*FileUsage, error) {
	results := map[string]*FileUsage{}
	for _, dir := range dirs {
		found, err := s.ScanDirectory(ctx, dir)
		if err != nil {
			return results, err
		}
		for path, u := range found {
			results[path] = u
		}
	}
	return results, nil
}
