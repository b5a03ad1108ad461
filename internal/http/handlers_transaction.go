package http

import (
	"errors"
	"net/http"

	"finance/internal/core"
	"finance/internal/log"
)

// handleCreateTransaction stores a transaction from a JSON or form body.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Unreadable transaction body",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeValidation)
		BadRequestError(msgInvalidData).
			FieldErrors([]core.FieldError{{Field: "body", Message: "Body must be a JSON object or form-encoded fields."}}).
			Write(w)
		return
	}

	created, err := s.api.Create(ctx, parser.Candidate())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}

	NewResponse().
		Status(http.StatusCreated).
		Message(msgCreated).
		Data(created).
		TriggerTransactionCreated(created).
		Write(w)
}

// handleListTransactions returns every transaction, newest first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	txs, err := s.api.ListAll(ctx)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().Message(msgListed).Data(txs).Total(len(txs)).Write(w)
}

// handlePeriodTotals returns one month's transactions and totals.
func (s *Server) handlePeriodTotals(w http.ResponseWriter, r *http.Request) {
	year, month, err := parsePeriodVars(r)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Invalid period parameters",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypePeriod)
		BadRequestError(msgInvalidPeriod).Write(w)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	pt, err := s.api.TotalsByPeriod(ctx, year, month)
	if err != nil {
		s.writeError(w, r, log.OpPeriodTotals, err)
		return
	}
	if pt.Transactions == nil {
		pt.Transactions = []core.Transaction{}
	}
	NewResponse().Message(msgPeriodListed).Data(pt).Write(w)
}

// handleMonthlyTotals returns one summary per month with transactions.
func (s *Server) handleMonthlyTotals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	totals, err := s.api.MonthlyTotals(ctx)
	if err != nil {
		s.writeError(w, r, log.OpMonthlyTotals, err)
		return
	}
	if totals == nil {
		totals = []core.MonthTotals{}
	}
	NewResponse().Message(msgMonthlyTotals).Data(totals).Write(w)
}

// writeError maps service errors to responses. Anything that is not a
// client error is logged and answered with a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr   *core.ValidationError
		perr   *core.InvalidPeriodError
		ctx    = r.Context()
		logger = log.FromContext(ctx)
	)
	switch {
	case errors.As(err, &verr):
		ValidationFailed(verr).Write(w)
	case errors.As(err, &perr):
		logger.WarnContext(ctx, "Invalid period requested",
			log.FieldYear, perr.Year,
			log.FieldMonth, perr.Month,
			log.FieldErrorType, log.ErrorTypePeriod)
		BadRequestError(msgInvalidPeriod).Write(w)
	default:
		s.events.LogError(ctx, "Transaction request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		InternalServerError().Write(w)
	}
}
