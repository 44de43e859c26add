package query

import (
	"sort"
	"sync"

	"github.com/vegasq/sheetql/table"
)

// TempStore is the session-scoped map of materialized relations written by
// CREATE TABLE ... AS and read by later FROM clauses. It is safe for
// concurrent sessions: one writer, many readers.
type TempStore struct {
	mu     sync.RWMutex
	tables map[string]*table.Relation
}

// NewTempStore returns an empty store.
func NewTempStore() *TempStore {
	return &TempStore{tables: make(map[string]*table.Relation)}
}

// Put stores rel under name, overwriting any existing entry.
func (s *TempStore) Put(name string, rel *table.Relation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = rel
}

// Get returns the relation stored under name.
func (s *TempStore) Get(name string) (*table.Relation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.tables[name]
	return rel, ok
}

// List returns the stored names in sorted order.
func (s *TempStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Drop removes name and reports whether it existed.
func (s *TempStore) Drop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tables[name]
	delete(s.tables, name)
	return ok
}

// Clear removes every stored relation.
func (s *TempStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*table.Relation)
}

// Len returns the number of stored relations.
func (s *TempStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}
