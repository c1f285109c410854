// Package memory is an in-process TableWriter used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	ports "budgetcal/internal/sheets"
)

var _ ports.TableWriter = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	tables map[string]ports.Table
	writes int
}

func New() *Store {
	return &Store{tables: make(map[string]ports.Table)}
}

func (s *Store) WriteTable(_ context.Context, name string, t ports.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = t
	s.writes++
	return nil
}

// Table returns the last table written under name.
func (s *Store) Table(name string) (ports.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	return t, ok
}

// Writes counts WriteTable calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
