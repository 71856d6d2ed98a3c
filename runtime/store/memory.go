// Package store provides global variable scopes. Globals outlive a single
// invocation and may be shared between handlers running on different
// goroutines, so every store here synchronizes itself.
package store

import (
	"slices"
	"sync"
)

// Memory is an in-process global scope. It lives as long as the value
// holding it, typically one page or session.
type Memory struct {
	mu   sync.RWMutex
	vars map[string]any
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{vars: map[string]any{}}
}

func (m *Memory) Get(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[name]
	return v, ok
}

func (m *Memory) Set(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[name] = value
	return nil
}

func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vars, name)
	return nil
}

func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
