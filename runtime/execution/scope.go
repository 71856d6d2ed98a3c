package execution

import (
	"slices"
	"strings"
)

// Scope is a variable store. Locals are a MapScope; globals are any
// implementation the host owns, such as the stores in runtime/store.
type Scope interface {
	Get(name string) (any, bool)
	Set(name string, value any) error
	Delete(name string) error
	Names() []string
}

// MapScope is an unsynchronized Scope. It belongs to one invocation.
type MapScope map[string]any

// NewMapScope returns an empty scope.
func NewMapScope() MapScope { return MapScope{} }

func (s MapScope) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

func (s MapScope) Set(name string, value any) error {
	s[name] = value
	return nil
}

func (s MapScope) Delete(name string) error {
	delete(s, name)
	return nil
}

func (s MapScope) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Qualifier says where a variable reference must resolve.
type Qualifier int

const (
	// Unqualified names resolve locals first, then globals.
	Unqualified Qualifier = iota
	// Local names (":x") resolve in locals only.
	Local
	// Global names ("$x") resolve in globals only.
	Global
)

// SplitName strips a scope sigil from a variable reference.
func SplitName(ref string) (string, Qualifier) {
	switch {
	case strings.HasPrefix(ref, ":") && len(ref) > 1:
		return ref[1:], Local
	case strings.HasPrefix(ref, "$") && len(ref) > 1:
		return ref[1:], Global
	}
	return ref, Unqualified
}
