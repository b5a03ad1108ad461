package http

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/presentation"
)

var templateFuncs = template.FuncMap{
	"typeClass": func(t core.TransactionType) string {
		return strings.ToLower(string(t))
	},
}

type ledgerPage struct {
	Ledger     presentation.Ledger
	Months     []presentation.MonthOption
	Today      string
	Mismatches []presentation.Bucket
}

// handleLedger renders every month of the years present, reconciled against
// the service's monthly totals. Both reads must succeed for the page to render.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	month, err := presentation.ParseMonthFilter(r.URL.Query().Get("month"))
	if err != nil {
		logger.WarnContext(r.Context(), "Invalid month filter, showing all months", log.FieldError, err.Error())
		month = 0
	}

	var (
		txs    []core.Transaction
		totals []core.MonthTotals
	)
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.api.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.api.MonthlyTotals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.events.LogError(r.Context(), "Ledger data load failed", err, log.ComponentPresenter, log.OpRender, nil)
		http.Error(w, "Unable to load transactions", http.StatusInternalServerError)
		return
	}

	now := s.now()
	ledger := presentation.Group(txs, now).Reconcile(totals).FilterMonth(month)
	for _, a := range ledger.Anomalies {
		s.events.LogAnomaly(r.Context(), log.OpGroup, a)
	}
	mismatches := ledger.Mismatches()
	for _, b := range mismatches {
		logger.WarnContext(r.Context(), "Ledger totals differ from service totals",
			log.FieldYear, b.Key.Year,
			log.FieldMonth, b.Key.Month,
			"client_balance", b.ClientTotals.Balance.String(),
			"service_balance", b.Totals.Balance.String())
	}

	data := ledgerPage{
		Ledger:     ledger,
		Months:     presentation.MonthOptions(month),
		Today:      core.DateOf(now).WireString(),
		Mismatches: mismatches,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "ledger.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Ledger template execution failed",
			log.FieldError, err.Error(),
			log.FieldOperation, log.OpRender)
		http.Error(w, "Unable to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
