package scanner

import (
	"maps"
	"slices"
)

// ParseFailure is a script the parser rejected.
type ParseFailure struct {
	Script  string `json:"script" yaml:"script"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
	Message string `json:"message" yaml:"message"`
}

// FileUsage is what one file, or one script, uses.
type FileUsage struct {
	Commands   map[string]bool
	Blocks     map[string]bool
	Positional bool
	Scripts    int
	Failures   []ParseFailure
}

// NewFileUsage returns an empty usage.
func NewFileUsage() *FileUsage {
	return &FileUsage{Commands: map[string]bool{}, Blocks: map[string]bool{}}
}

// Empty reports whether nothing was detected. Parse failures alone do not
// count as usage.
func (u *FileUsage) Empty() bool {
	return len(u.Commands) == 0 && len(u.Blocks) == 0 && !u.Positional
}

// Merge adds other's usage to u.
func (u *FileUsage) Merge(other *FileUsage) {
	maps.Copy(u.Commands, other.Commands)
	maps.Copy(u.Blocks, other.Blocks)
	u.Positional = u.Positional || other.Positional
	u.Scripts += other.Scripts
	u.Failures = append(u.Failures, other.Failures...)
}

// Summary is the serializable form of a usage.
type Summary struct {
	Commands   []string       `json:"commands" yaml:"commands"`
	Blocks     []string       `json:"blocks" yaml:"blocks"`
	Positional bool           `json:"positional" yaml:"positional"`
	Scripts    int            `json:"scripts" yaml:"scripts"`
	Failures   []ParseFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	FileCount  int            `json:"file_count,omitempty" yaml:"file_count,omitempty"`
}

func (u *FileUsage) Summary() Summary {
	return Summary{
		Commands:   sortedKeys(u.Commands),
		Blocks:     sortedKeys(u.Blocks),
		Positional: u.Positional,
		Scripts:    u.Scripts,
		Failures:   u.Failures,
	}
}

// Aggregate is usage across many files.
type Aggregate struct {
	FileUsage
	Files map[string]*FileUsage
}

// Combine merges per-file results.
func Combine(results map[string]*FileUsage) *Aggregate {
	agg := &Aggregate{FileUsage: *NewFileUsage(), Files: results}
	for _, path := range slices.Sorted(maps.Keys(results)) {
		agg.Merge(results[path])
	}
	return agg
}

func (a *Aggregate) Summary() Summary {
	s := a.FileUsage.Summary()
	s.FileCount = len(a.Files)
	return s
}

func sortedKeys(m map[string]bool) []string {
	keys := slices.Sorted(maps.Keys(m))
	if keys == nil {
		keys = []string{}
	}
	return keys
}
