package cache

import (
	"testing"
	"time"

	"finance/internal/core"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %d, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d, want 0", c.Size())
	}
}

func TestAggregateCache_Invalidate(t *testing.T) {
	c := NewAggregateCache(4, time.Minute)
	gen := c.Generation()
	c.SetMonthly(gen, []core.MonthTotals{{Year: 2025, Month: 6}})
	c.SetPeriod(gen, 2025, 6, core.PeriodTotals{Period: core.MonthKey{Year: 2025, Month: 6}})

	if _, ok := c.Monthly(); !ok {
		t.Fatal("monthly totals not cached")
	}
	if _, ok := c.Period(2025, 6); !ok {
		t.Fatal("period totals not cached")
	}
	if _, ok := c.Period(2025, 7); ok {
		t.Fatal("unexpected hit for uncached period")
	}

	c.Invalidate()
	if _, ok := c.Monthly(); ok {
		t.Error("monthly totals survived invalidation")
	}
	if _, ok := c.Period(2025, 6); ok {
		t.Error("period totals survived invalidation")
	}
}

func TestAggregateCache_DropsResultsFromBeforeInvalidate(t *testing.T) {
	c := NewAggregateCache(4, time.Minute)
	gen := c.Generation()
	c.Invalidate()

	if c.SetMonthly(gen, []core.MonthTotals{{Year: 2025, Month: 6}}) {
		t.Error("SetMonthly accepted a result from an older generation")
	}
	if c.SetPeriod(gen, 2025, 6, core.PeriodTotals{}) {
		t.Error("SetPeriod accepted a result from an older generation")
	}
	if _, ok := c.Monthly(); ok {
		t.Error("monthly totals cached from an older generation")
	}
	if _, ok := c.Period(2025, 6); ok {
		t.Error("period totals cached from an older generation")
	}

	if !c.SetMonthly(c.Generation(), nil) {
		t.Error("SetMonthly rejected the current generation")
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager(nil)
	m.Register(NewAggregateCache(1, time.Minute))
	m.Stop()

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
}
