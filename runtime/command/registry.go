package command

import (
	"fmt"
	"slices"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/hyperscript/core/invariant"
)

// Registry maps command names to implementations.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd under its metadata name. Names are unique.
func (r *Registry) Register(cmd Command) error {
	invariant.NotNil(cmd, "command")
	name := cmd.Metadata().Name
	invariant.Precondition(name != "", "command metadata must carry a name")

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	r.commands[name] = cmd
	return nil
}

// MustRegister registers cmds and panics on a duplicate.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Replace registers cmd, overriding any command of the same name.
func (r *Registry) Replace(cmd Command) {
	invariant.NotNil(cmd, "command")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd.Metadata().Name] = cmd
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names lists registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Metadata lists every command's metadata ordered by name.
func (r *Registry) Metadata() []Metadata {
	names := r.Names()
	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		if cmd, ok := r.Lookup(name); ok {
			out = append(out, cmd.Metadata())
		}
	}
	return out
}

// maxTypoDistance bounds edit-distance suggestions.
const maxTypoDistance = 2

// Suggest returns the registered name closest to name, or "" when nothing
// is close. Subsequence matches rank first, then small edit distances.
func (r *Registry) Suggest(name string) string {
	names := r.Names()
	if len(names) == 0 || name == "" {
		return ""
	}

	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int { return a.Distance - b.Distance })
		return ranks[0].Target
	}

	best, bestDist := "", maxTypoDistance+1
	for _, candidate := range names {
		if d := fuzzy.LevenshteinDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
