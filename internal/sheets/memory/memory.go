// Package memory is an in-process spreadsheet exporter used when no Google
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"finance/internal/core"
	ports "finance/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	rows   []core.Transaction
	totals []core.MonthTotals
	writes int
}

var _ ports.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the transaction and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, t)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) ExportedIDs(context.Context) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[int64]bool, len(s.rows))
	for _, t := range s.rows {
		ids[t.ID] = true
	}
	return ids, nil
}

func (s *Store) WriteMonthlyTotals(_ context.Context, totals []core.MonthTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totals = slices.Clone(totals)
	s.writes++
	return nil
}

// Rows returns a copy of the appended transactions in append order.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows)
}

// Totals returns the last written monthly totals and how many times they were written.
func (s *Store) Totals() ([]core.MonthTotals, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.totals), s.writes
}
