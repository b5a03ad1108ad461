package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/sheets"
)

// TransactionSource is the read side of the transaction service.
type TransactionSource interface {
	Get(ctx context.Context, id int64) (core.Transaction, error)
	ListAll(ctx context.Context) ([]core.Transaction, error)
	MonthlyTotals(ctx context.Context) ([]core.MonthTotals, error)
}

// SyncWorker mirrors stored transactions and their monthly totals into a
// spreadsheet. Events drive the normal path; a periodic reconcile recovers
// from lost messages or worker downtime.
type SyncWorker struct {
	source   TransactionSource
	exporter sheets.Exporter
	logger   *log.Logger
	events   *log.StructuredLogger

	// serializes exports so concurrent events do not race on ExportedIDs
	exportMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(source TransactionSource, exporter sheets.Exporter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		source:   source,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		events:   log.NewStructuredLogger(logger),
	}
}

// HandleTransactionCreated exports one transaction and refreshes the totals
// sheet. A transaction that no longer exists is acknowledged and skipped.
func (w *SyncWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	w.logger.InfoContext(ctx, "Processing transaction created message",
		"id", msg.ID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month)

	t, err := w.source.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction not found, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	exported, err := w.exporter.ExportedIDs(ctx)
	if err != nil {
		return fmt.Errorf("read exported ids: %w", err)
	}
	if exported[t.ID] {
		w.logger.InfoContext(ctx, "Transaction already exported", "id", t.ID)
	} else if err := w.export(ctx, t); err != nil {
		return err
	}

	return w.refreshTotals(ctx)
}

// Reconcile exports every stored transaction missing from the sheet, oldest
// first, then rewrites the totals.
func (w *SyncWorker) Reconcile(ctx context.Context) error {
	txs, err := w.source.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	exported, err := w.exporter.ExportedIDs(ctx)
	if err != nil {
		return fmt.Errorf("read exported ids: %w", err)
	}

	synced, failed := 0, 0
	// ListAll is newest first.
	for i := len(txs) - 1; i >= 0; i-- {
		t := txs[i]
		if exported[t.ID] {
			continue
		}
		if err := w.export(ctx, t); err != nil {
			w.events.LogError(ctx, "Failed to export transaction", err, log.ComponentWorker, log.OpSync,
				log.NewFields().WithTransaction(t))
			failed++
			continue
		}
		synced++
	}

	if synced > 0 || failed > 0 {
		w.logger.InfoContext(ctx, "Reconcile completed",
			"total", len(txs),
			"synced", synced,
			"errors", failed)
	}
	if err := w.refreshTotals(ctx); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("reconcile: %d transactions failed to export", failed)
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, t core.Transaction) error {
	ref, err := w.exporter.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append transaction %d: %w", t.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported transaction",
		append(log.NewFields().WithTransaction(t).ToSlice(), "sheets_ref", ref)...)
	return nil
}

func (w *SyncWorker) refreshTotals(ctx context.Context) error {
	totals, err := w.source.MonthlyTotals(ctx)
	if err != nil {
		return fmt.Errorf("compute monthly totals: %w", err)
	}
	if err := w.exporter.WriteMonthlyTotals(ctx, totals); err != nil {
		return fmt.Errorf("write monthly totals: %w", err)
	}
	w.logger.DebugContext(ctx, "Monthly totals written", log.FieldCount, len(totals))
	return nil
}

// Start runs Reconcile immediately and then every interval until Stop or
// ctx is done. Returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context, interval time.Duration) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, interval, stopCh, doneCh)

	w.logger.InfoContext(ctx, "Reconcile loop started", "interval", interval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Reconcile loop stopped")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Reconcile loop stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.reconcileLogged(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcileLogged(ctx)
		}
	}
}

func (w *SyncWorker) reconcileLogged(ctx context.Context) {
	if err := w.Reconcile(ctx); err != nil {
		w.events.LogError(ctx, "Reconcile failed", err, log.ComponentWorker, log.OpSync, nil)
	}
}
