package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/services"
	sheetsmem "finance/internal/sheets/memory"
	"finance/internal/storage/memory"
)

type failingExporter struct {
	*sheetsmem.Store
	err error
}

func (f failingExporter) Append(context.Context, core.Transaction) (string, error) {
	return "", f.err
}

func newService(t *testing.T, candidates ...core.Candidate) (*services.TransactionService, []core.Transaction) {
	t.Helper()
	svc := services.NewTransactionService(memory.New(), nil)
	var created []core.Transaction
	for _, c := range candidates {
		tx, err := svc.Create(context.Background(), c)
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, tx)
	}
	return svc, created
}

func TestHandleTransactionCreated(t *testing.T) {
	svc, created := newService(t,
		core.Candidate{Date: "15/06/2025", Description: "groceries", Value: "50", Type: "Debit"},
		core.Candidate{Date: "20/06/2025", Description: "refund", Value: "200", Type: "Credit"},
	)
	exporter := sheetsmem.New()
	w := NewSyncWorker(svc, exporter, nil)
	ctx := context.Background()

	msg := amqp.NewTransactionCreatedMessage(created[1])
	if err := w.HandleTransactionCreated(ctx, msg); err != nil {
		t.Fatal(err)
	}
	// redelivery must not duplicate the row
	if err := w.HandleTransactionCreated(ctx, msg); err != nil {
		t.Fatal(err)
	}

	rows := exporter.Rows()
	if len(rows) != 1 || rows[0].ID != created[1].ID {
		t.Fatalf("rows = %+v", rows)
	}
	totals, writes := exporter.Totals()
	if writes != 2 || len(totals) != 1 || !totals[0].Balance.Equal(core.MoneyFromInt(150).Decimal) {
		t.Errorf("totals = %+v after %d writes", totals, writes)
	}
}

func TestHandleTransactionCreatedMissing(t *testing.T) {
	svc, _ := newService(t)
	exporter := sheetsmem.New()
	w := NewSyncWorker(svc, exporter, nil)

	if err := w.HandleTransactionCreated(context.Background(), &amqp.TransactionCreatedMessage{ID: 404}); err != nil {
		t.Fatalf("missing transaction should be dropped, got %v", err)
	}
	if _, writes := exporter.Totals(); writes != 0 {
		t.Errorf("totals written for a dropped message")
	}
}

func TestHandleTransactionCreatedAppendFailure(t *testing.T) {
	svc, created := newService(t, core.Candidate{Date: "01/01/2025", Description: "x", Value: "1", Type: "Debit"})
	boom := errors.New("quota exceeded")
	w := NewSyncWorker(svc, failingExporter{Store: sheetsmem.New(), err: boom}, nil)

	err := w.HandleTransactionCreated(context.Background(), amqp.NewTransactionCreatedMessage(created[0]))
	if !errors.Is(err, boom) {
		t.Fatalf("expected append error, got %v", err)
	}
}

func TestReconcileExportsMissingOldestFirst(t *testing.T) {
	svc, created := newService(t,
		core.Candidate{Date: "03/03/2025", Description: "march", Value: "3", Type: "Debit"},
		core.Candidate{Date: "01/01/2025", Description: "january", Value: "1", Type: "Credit"},
		core.Candidate{Date: "02/02/2025", Description: "february", Value: "2", Type: "Credit"},
	)
	exporter := sheetsmem.New()
	exporter.Append(context.Background(), created[2])
	w := NewSyncWorker(svc, exporter, nil)

	if err := w.Reconcile(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows := exporter.Rows()
	if len(rows) != 3 || rows[1].Description != "january" || rows[2].Description != "march" {
		t.Fatalf("rows = %+v", rows)
	}
	if totals, _ := exporter.Totals(); len(totals) != 3 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestStartStop(t *testing.T) {
	svc, _ := newService(t, core.Candidate{Date: "01/01/2025", Description: "x", Value: "1", Type: "Debit"})
	exporter := sheetsmem.New()
	w := NewSyncWorker(svc, exporter, nil)
	ctx := context.Background()

	if err := w.Start(ctx, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx, time.Hour); err == nil {
		t.Error("expected error when starting twice")
	}
	if !w.IsRunning() {
		t.Error("worker should be running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if w.IsRunning() {
		t.Error("worker should be stopped")
	}
	// the initial reconcile ran before the loop exited
	if len(exporter.Rows()) != 1 {
		t.Errorf("rows = %+v", exporter.Rows())
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("second stop: %v", err)
	}
}
