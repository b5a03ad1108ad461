package services

import (
	"context"
	"errors"
	"fmt"

	"finance/internal/cache"
	"finance/internal/core"
	"finance/internal/log"
)

// TransactionStore persists transactions. Implementations must be safe for
// concurrent use.
type TransactionStore interface {
	Save(ctx context.Context, d core.Draft) (core.Transaction, error)
	Find(ctx context.Context, f core.Filter, o core.Order) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
}

// Publisher announces stored transactions to downstream consumers.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
}

// TransactionService is the only entry point to the store for the API and
// the sync worker. Every aggregate it returns comes from internal/core.
type TransactionService struct {
	store     TransactionStore
	publisher Publisher
	cache     *cache.AggregateCache
	logger    *log.Logger
	events    *log.StructuredLogger
}

// Option configures optional collaborators of the service.
type Option func(*TransactionService)

// WithPublisher enables transaction.created events.
func WithPublisher(p Publisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

// WithCache memoizes period and monthly totals.
func WithCache(c *cache.AggregateCache) Option {
	return func(s *TransactionService) { s.cache = c }
}

func NewTransactionService(store TransactionStore, logger *log.Logger, opts ...Option) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &TransactionService{
		store:  store,
		logger: logger.WithComponent(log.ComponentTransaction),
		events: log.NewStructuredLogger(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and normalizes c, then persists it. A validation failure
// returns *core.ValidationError and leaves the store untouched.
func (s *TransactionService) Create(ctx context.Context, c core.Candidate) (core.Transaction, error) {
	draft, err := c.Normalize()
	if err != nil {
		s.logger.InfoContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpCreate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		return core.Transaction{}, err
	}

	t, err := s.store.Save(ctx, draft)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.events.LogTransactionCreated(ctx, t)

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping transaction event")
		return t, nil
	}
	if err := s.publisher.PublishTransactionCreated(ctx, t); err != nil {
		// The transaction is stored; sync lag is acceptable.
		s.events.LogError(ctx, "Failed to publish transaction event", err,
			log.ComponentAMQP, log.OpSync, log.NewFields().WithTransaction(t))
	}
	return t, nil
}

// ListAll returns every transaction, newest date first.
func (s *TransactionService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.Find(ctx, core.AllTransactions(), core.DateDesc)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Get loads one transaction; the error wraps core.ErrNotFound when absent.
func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// TotalsByPeriod returns the transactions of year/month in ascending date
// order with their totals.
func (s *TransactionService) TotalsByPeriod(ctx context.Context, year, month int) (core.PeriodTotals, error) {
	if err := core.ValidatePeriod(year, month); err != nil {
		return core.PeriodTotals{}, err
	}
	var gen uint64
	if s.cache != nil {
		if pt, ok := s.cache.Period(year, month); ok {
			return pt, nil
		}
		gen = s.cache.Generation()
	}

	filter := core.InPeriod(year, month)
	found, err := s.store.Find(ctx, filter, core.DateAsc)
	if err != nil {
		return core.PeriodTotals{}, fmt.Errorf("find transactions for %04d-%02d: %w", year, month, err)
	}

	// The store filters on the stored text; re-check with the shared key
	// derivation so unreadable dates never reach the totals.
	txs := make([]core.Transaction, 0, len(found))
	for _, t := range found {
		if filter.Matches(t) {
			txs = append(txs, t)
			continue
		}
		s.events.LogAnomaly(ctx, log.OpPeriodTotals, core.Anomaly{
			TransactionID: t.ID,
			Date:          t.Date,
			Reason:        "date has no month key",
		})
	}

	pt := core.PeriodTotals{
		Transactions: txs,
		Totals:       core.ComputeTotals(txs),
		Period:       core.MonthKey{Year: year, Month: month},
	}
	if s.cache != nil {
		s.cache.SetPeriod(gen, year, month, pt)
	}
	return pt, nil
}

// MonthlyTotals returns one entry per month that has transactions, newest
// month first. Records with malformed dates are logged and skipped.
func (s *TransactionService) MonthlyTotals(ctx context.Context) ([]core.MonthTotals, error) {
	var gen uint64
	if s.cache != nil {
		if mt, ok := s.cache.Monthly(); ok {
			return mt, nil
		}
		gen = s.cache.Generation()
	}

	txs, err := s.store.Find(ctx, core.AllTransactions(), core.DateAsc)
	if err != nil {
		return nil, fmt.Errorf("load transactions for monthly totals: %w", err)
	}

	groups, anomalies := core.GroupAndTotalAll(txs)
	for _, a := range anomalies {
		s.events.LogAnomaly(ctx, log.OpMonthlyTotals, a)
	}

	totals := make([]core.MonthTotals, 0, len(groups))
	for _, g := range groups {
		totals = append(totals, g.MonthTotals())
	}
	if s.cache != nil {
		s.cache.SetMonthly(gen, totals)
	}
	return totals, nil
}

// Ping reports whether the store is reachable, for stores that can tell.
func (s *TransactionService) Ping(ctx context.Context) error {
	p, ok := s.store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// IsNotFound reports whether err means the transaction does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
