package cache

import (
	"fmt"
	"sync"
	"time"

	"finance/internal/core"
	"finance/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic expiry sweeps over registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	m.started = false
	close(m.stopCleanup)
	<-m.cleanupDone
}

// AggregateCache memoizes the two derived views computed from the full
// transaction set. Any write must call Invalidate.
//
// Readers take a Generation before loading from the store and pass it to the
// setters; a result computed before an invalidation is dropped.
type AggregateCache struct {
	mu      sync.Mutex
	gen     uint64
	monthly *LRUCache[[]core.MonthTotals]
	period  *LRUCache[core.PeriodTotals]
}

const monthlyKey = "monthly"

func NewAggregateCache(maxPeriods int, ttl time.Duration) *AggregateCache {
	return &AggregateCache{
		monthly: NewLRUCache[[]core.MonthTotals](1, ttl),
		period:  NewLRUCache[core.PeriodTotals](maxPeriods, ttl),
	}
}

func periodKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Generation identifies the current contents; it changes on every Invalidate.
func (c *AggregateCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *AggregateCache) Monthly() ([]core.MonthTotals, bool) {
	return c.monthly.Get(monthlyKey)
}

// SetMonthly stores totals computed at generation gen. It reports false and
// stores nothing when an invalidation happened since.
func (c *AggregateCache) SetMonthly(gen uint64, totals []core.MonthTotals) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.monthly.Set(monthlyKey, totals)
	return true
}

func (c *AggregateCache) Period(year, month int) (core.PeriodTotals, bool) {
	return c.period.Get(periodKey(year, month))
}

// SetPeriod is the per-period counterpart of SetMonthly.
func (c *AggregateCache) SetPeriod(gen uint64, year, month int, totals core.PeriodTotals) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.period.Set(periodKey(year, month), totals)
	return true
}

// Invalidate drops every memoized aggregate.
func (c *AggregateCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.monthly.Purge()
	c.period.Purge()
}

// CleanExpired implements Cleaner.
func (c *AggregateCache) CleanExpired() int {
	return c.monthly.CleanExpired() + c.period.CleanExpired()
}
