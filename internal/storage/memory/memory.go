// Package memory is an in-process transaction store used by the memory
// backend and by tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"finance/internal/core"
)

type Store struct {
	mu     sync.Mutex
	items  []core.Transaction
	nextID int64
	now    func() time.Time
}

func New() *Store {
	return &Store{nextID: 1, now: time.Now}
}

// Save validates the draft, assigns an ID and stores it.
func (s *Store) Save(_ context.Context, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := core.Transaction{
		ID:          s.nextID,
		Date:        d.Date,
		Description: d.Description,
		Value:       d.Value,
		Type:        d.Type,
		CreatedAt:   s.now().UTC(),
	}
	s.nextID++
	s.items = append(s.items, t)
	return t, nil
}

// Seed stores records verbatim, bypassing validation. IDs of zero are assigned.
func (s *Store) Seed(txs ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		if t.ID == 0 {
			t.ID = s.nextID
		}
		if t.ID >= s.nextID {
			s.nextID = t.ID + 1
		}
		s.items = append(s.items, t)
	}
}

// Find returns a copy of the matching records ordered by date, then ID.
func (s *Store) Find(_ context.Context, f core.Filter, o core.Order) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b core.Transaction) int {
		c := a.Date.Compare(b.Date)
		if c == 0 {
			c = cmpID(a.ID, b.ID)
		}
		if o == core.DateDesc {
			return -c
		}
		return c
	})
	return out, nil
}

// Get retrieves a single transaction by ID
func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cmpID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
