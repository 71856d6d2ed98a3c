// Package cache memoises parse results by a digest of the script source.
//
// Hosts typically parse the same handful of scripts many times, once per
// element carrying them. A hit returns a deep copy so callers may rewrite
// the tree freely without affecting later hits.
package cache

import (
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/opal-lang/hyperscript/core/astfmt"
	"github.com/opal-lang/hyperscript/runtime/parser"
)

// DefaultMaxEntries bounds a cache created without WithMaxEntries.
const DefaultMaxEntries = 512

// Parser is a concurrency-safe parse cache.
type Parser struct {
	mu      sync.Mutex
	entries map[string]*parser.ParseResult
	max     int
	opts    []parser.ParserOpt
	logger  *slog.Logger

	hits, misses int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxEntries bounds the number of cached results.
func WithMaxEntries(n int) Option {
	return func(p *Parser) { p.max = n }
}

// WithParserOptions passes options to every underlying parse.
func WithParserOptions(opts ...parser.ParserOpt) Option {
	return func(p *Parser) { p.opts = append(p.opts, opts...) }
}

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// New creates an empty cache.
func New(opts ...Option) *Parser {
	p := &Parser{
		entries: make(map[string]*parser.ParseResult),
		max:     DefaultMaxEntries,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.max < 1 {
		p.max = 1
	}
	return p
}

// Parse returns the parse result for source, parsing it only on a miss.
// Failed parses are cached too.
func (p *Parser) Parse(source string) *parser.ParseResult {
	key := astfmt.SourceDigest(source)

	p.mu.Lock()
	if res, ok := p.entries[key]; ok {
		p.hits++
		p.mu.Unlock()
		return clone(res)
	}
	p.misses++
	p.mu.Unlock()

	res := parser.Parse(source, p.opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	// Simple eviction: drop everything once full.
	if len(p.entries) >= p.max {
		p.logger.Debug("parse cache full, clearing", "entries", len(p.entries))
		clear(p.entries)
	}
	p.entries[key] = res
	return clone(res)
}

// Stats reports hits and misses since creation or the last Reset.
type Stats struct {
	Hits    int
	Misses  int
	Entries int
}

func (p *Parser) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Hits: p.hits, Misses: p.misses, Entries: len(p.entries)}
}

// Reset empties the cache and its counters.
func (p *Parser) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.entries)
	p.hits, p.misses = 0, 0
}

func clone(res *parser.ParseResult) *parser.ParseResult {
	cp := *res
	cp.Node = res.Node.Clone()
	cp.Tokens = slices.Clone(res.Tokens)
	cp.DebugEvents = slices.Clone(res.DebugEvents)
	if res.Error != nil {
		e := *res.Error
		cp.Error = &e
	}
	if res.Telemetry != nil {
		t := *res.Telemetry
		cp.Telemetry = &t
	}
	return &cp
}
