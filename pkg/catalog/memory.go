package catalog

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory catalog guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

var _ Catalog = (*Memory)(nil)

// NewMemory creates an empty catalog.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

// AddTable validates and registers a table, replacing any entry of the same name.
func (m *Memory) AddTable(t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[t.Name] = t
	return nil
}

// AddView registers a view, replacing any entry of the same name. The query
// is not compiled here; see binder.Compiler.DefineView for a checked variant.
func (m *Memory) AddView(v *View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[v.Name] = v
	return nil
}

// Remove deletes an entry and reports whether it existed.
func (m *Memory) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[name]
	delete(m.entries, name)
	return ok
}

// Lookup implements Catalog.
func (m *Memory) Lookup(name string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[name]
	return e, ok
}

// Names returns all entry names, sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.entries))
}

// Entries returns all entries sorted by name.
func (m *Memory) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for _, name := range slices.Sorted(maps.Keys(m.entries)) {
		out = append(out, m.entries[name])
	}
	return out
}

// DatasetTables returns the names under "dataset.", sorted, with the
// dataset prefix removed.
func (m *Memory) DatasetTables(dataset string) []string {
	prefix := dataset + "."
	var out []string
	for _, name := range m.Names() {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			out = append(out, rest)
		}
	}
	return out
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Replace swaps in the entries of other, atomically for readers.
func (m *Memory) Replace(other *Memory) {
	other.mu.RLock()
	entries := maps.Clone(other.entries)
	other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
}
