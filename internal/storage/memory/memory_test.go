package memory

import (
	"context"
	"errors"
	"testing"

	"finance/internal/core"
)

func TestMemoryStoreSaveAndFind(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Save(ctx, core.Draft{Date: core.NewDate(2025, 6, 20), Description: "b", Value: core.MoneyFromInt(200), Type: core.Credit})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, err := s.Save(ctx, core.Draft{Date: core.NewDate(2025, 6, 15), Description: "a", Value: core.MoneyFromInt(50), Type: core.Debit})
	if err != nil || first.ID != 2 {
		t.Fatalf("unexpected save: %+v err=%v", first, err)
	}
	if _, err := s.Save(ctx, core.Draft{Date: core.NewDate(2025, 6, 15), Description: "", Value: core.MoneyFromInt(1), Type: core.Debit}); err == nil {
		t.Fatalf("expected validation error")
	}

	asc, _ := s.Find(ctx, core.AllTransactions(), core.DateAsc)
	if len(asc) != 2 || asc[0].Description != "a" {
		t.Fatalf("unexpected asc: %+v", asc)
	}
	desc, _ := s.Find(ctx, core.AllTransactions(), core.DateDesc)
	if desc[0].Description != "b" {
		t.Fatalf("unexpected desc: %+v", desc)
	}
	july, _ := s.Find(ctx, core.InPeriod(2025, 7), core.DateAsc)
	if len(july) != 0 {
		t.Fatalf("expected no july rows, got %d", len(july))
	}

	// Returned slices are copies.
	asc[0].Description = "mutated"
	again, _ := s.Find(ctx, core.AllTransactions(), core.DateAsc)
	if again[0].Description != "a" {
		t.Fatalf("store mutated through returned slice")
	}
}

func TestMemoryStoreSeedAndGet(t *testing.T) {
	s := New()
	s.Seed(core.Transaction{ID: 10, Date: core.NewDate(2025, 2, 30), Description: "bad", Value: core.MoneyFromInt(1), Type: core.Credit})
	got, err := s.Get(context.Background(), 10)
	if err != nil || got.Description != "bad" {
		t.Fatalf("Get: %+v %v", got, err)
	}
	saved, _ := s.Save(context.Background(), core.Draft{Date: core.NewDate(2025, 2, 1), Description: "ok", Value: core.MoneyFromInt(1), Type: core.Credit})
	if saved.ID != 11 {
		t.Fatalf("expected id after seeded one, got %d", saved.ID)
	}
	if _, err := s.Get(context.Background(), 99); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
