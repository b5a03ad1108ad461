// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Every API
// response uses the same envelope and may carry HX-Trigger events for the
// ledger page.

package http

import (
	"encoding/json"
	"net/http"

	"finance/internal/core"
)

const (
	msgCreated        = "Transaction created successfully"
	msgListed         = "Transactions listed successfully"
	msgPeriodListed   = "Transactions for the period listed successfully"
	msgMonthlyTotals  = "Monthly summary retrieved successfully"
	msgInvalidData    = "Invalid data"
	msgInvalidPeriod  = "Invalid period. Year must be between 1900-2100 and month between 1-12"
	msgInternalError  = "Internal server error"
	msgNotFound       = "Resource not found"
	msgRateLimited    = "Rate limit exceeded. Please try again later."
	msgMethodNotAllow = "Method not allowed"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Total   *int              `json:"total,omitempty"`
	Errors  []core.FieldError `json:"errors,omitempty"`
}

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.envelope.Message = msg
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.envelope.Data = data
	return b
}

// Total sets the total field; only list responses carry it.
func (b *ResponseBuilder) Total(n int) *ResponseBuilder {
	b.envelope.Total = &n
	return b
}

func (b *ResponseBuilder) FieldErrors(errs []core.FieldError) *ResponseBuilder {
	b.envelope.Errors = errs
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerTransactionCreated adds the transaction:created trigger so the
// ledger page reloads the month the transaction landed in.
func (b *ResponseBuilder) TriggerTransactionCreated(t core.Transaction) *ResponseBuilder {
	return b.Trigger("transaction:created", map[string]any{
		"id":    t.ID,
		"year":  t.Date.Year,
		"month": t.Date.Month,
	})
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response. An envelope that cannot be encoded turns
// into a bare 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	body, err := json.Marshal(b.envelope)
	if err != nil {
		http.Error(w, `{"message":"`+msgInternalError+`"}`, http.StatusInternalServerError)
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorResponse creates an error response carrying only a message.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Message(message)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, msgInternalError)
}

func NotFoundError() *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, msgNotFound)
}

// ValidationFailed creates the 400 response listing every field problem.
func ValidationFailed(verr *core.ValidationError) *ResponseBuilder {
	return BadRequestError(msgInvalidData).FieldErrors(verr.Fields)
}
