package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/services"
	"finance/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, api TransactionAPI, opts Options) *Server {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	srv := NewServer(":0", api, log.Discard(), opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newServiceServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := services.NewTransactionService(store, log.Discard())
	return newTestServer(t, svc, Options{}), store
}

func do(t *testing.T, srv *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Total   *int              `json:"total"`
	Errors  []core.FieldError `json:"errors"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("body is not an envelope: %v\n%s", err, rr.Body.String())
	}
	return env
}

func postJSON(t *testing.T, srv *Server, date, desc string, value any, typ string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"date": date, "description": desc, "value": value, "type": typ})
	if err != nil {
		t.Fatal(err)
	}
	return do(t, srv, http.MethodPost, "/transaction", "application/json", string(body))
}

func TestCreateAndList(t *testing.T) {
	srv, _ := newServiceServer(t)

	rr := postJSON(t, srv, "15/06/2025", "Test", 100, "Credit")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Message != msgCreated {
		t.Errorf("message = %q", env.Message)
	}
	var created struct {
		ID          int64  `json:"id"`
		Date        string `json:"date"`
		Description string `json:"description"`
		Value       json.Number
		Type        string `json:"type"`
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.Date != "2025-06-15" || created.Description != "Test" || created.Value.String() != "100" || created.Type != "Credit" {
		t.Errorf("created = %+v", created)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), "transaction:created") {
		t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	// Form-encoded bodies are accepted too.
	rr = do(t, srv, http.MethodPost, "/transaction", "application/x-www-form-urlencoded",
		"date=01%2F07%2F2025&description=Rent&value=50&type=debit")
	if rr.Code != http.StatusCreated {
		t.Fatalf("form create status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/transaction", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	env = decodeEnvelope(t, rr)
	if env.Total == nil || *env.Total != 2 {
		t.Fatalf("total = %v", env.Total)
	}
	var list []core.Transaction
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if list[0].Description != "Rent" || list[1].Description != "Test" {
		t.Errorf("list not newest first: %+v", list)
	}
}

func TestListEmpty(t *testing.T) {
	srv, _ := newServiceServer(t)
	rr := do(t, srv, http.MethodGet, "/transaction", "", "")
	if got := strings.TrimSpace(rr.Body.String()); got != `{"message":"Transactions listed successfully","data":[],"total":0}` {
		t.Errorf("body = %s", got)
	}
}

func TestCreateValidation(t *testing.T) {
	srv, store := newServiceServer(t)

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name:       "every field invalid",
			body:       `{"date":"2025-06-15","description":"  ","value":-5,"type":"Transfer"}`,
			wantFields: []string{"date", "description", "value", "type"},
		},
		{
			name:       "impossible calendar date",
			body:       `{"date":"31/02/2025","description":"x","value":1,"type":"Debit"}`,
			wantFields: []string{"date"},
		},
		{
			name:       "zero value",
			body:       `{"date":"01/02/2025","description":"x","value":"0","type":"Debit"}`,
			wantFields: []string{"value"},
		},
		{
			name:       "malformed json",
			body:       `{"date":`,
			wantFields: []string{"body"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/transaction", "application/json", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
			}
			env := decodeEnvelope(t, rr)
			if env.Message != msgInvalidData {
				t.Errorf("message = %q", env.Message)
			}
			var got []string
			for _, fe := range env.Errors {
				got = append(got, fe.Field)
				if fe.Message == "" {
					t.Errorf("field %s has no message", fe.Field)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("fields = %v, want %v", got, tt.wantFields)
			}
		})
	}

	txs, _ := store.Find(context.Background(), core.AllTransactions(), core.DateAsc)
	if len(txs) != 0 {
		t.Fatalf("invalid input was stored: %+v", txs)
	}
}

func TestPeriodTotals(t *testing.T) {
	srv, _ := newServiceServer(t)
	postJSON(t, srv, "15/01/2024", "Salary", 200, "Credit")
	postJSON(t, srv, "20/01/2024", "Groceries", 50, "Debit")
	postJSON(t, srv, "01/02/2024", "Bonus", "10.5", "Credit")

	rr := do(t, srv, http.MethodGet, "/transaction/2024/1", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	var pt core.PeriodTotals
	if err := json.Unmarshal(env.Data, &pt); err != nil {
		t.Fatal(err)
	}
	if len(pt.Transactions) != 2 || pt.Transactions[0].Description != "Salary" {
		t.Errorf("transactions = %+v", pt.Transactions)
	}
	if pt.Totals.Credits.String() != "200" || pt.Totals.Debits.String() != "50" || pt.Totals.Balance.String() != "150" {
		t.Errorf("totals = %+v", pt.Totals)
	}
	if pt.Period != (core.MonthKey{Year: 2024, Month: 1}) {
		t.Errorf("period = %+v", pt.Period)
	}

	rr = do(t, srv, http.MethodGet, "/transaction/2030/12", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"transactions":[]`) {
		t.Errorf("empty period: %d %s", rr.Code, rr.Body.String())
	}
}

func TestPeriodTotalsInvalid(t *testing.T) {
	srv, _ := newServiceServer(t)

	for _, path := range []string{
		"/transaction/1899/5",
		"/transaction/2101/1",
		"/transaction/2025/13",
		"/transaction/2025/0",
		"/transaction/abc/6",
		"/transaction/2025/june",
	} {
		t.Run(path, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, path, "", "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if env := decodeEnvelope(t, rr); env.Message != msgInvalidPeriod {
				t.Errorf("message = %q", env.Message)
			}
		})
	}
}

func TestMonthlyTotals(t *testing.T) {
	srv, store := newServiceServer(t)
	postJSON(t, srv, "15/01/2024", "Salary", 200, "Credit")
	postJSON(t, srv, "20/01/2024", "Groceries", 50, "Debit")
	postJSON(t, srv, "03/03/2024", "Book", "12.30", "Debit")
	store.Seed(core.Transaction{ID: 99, Date: core.Date{Year: 2024, Month: 13, Day: 1}, Description: "bad", Value: core.MoneyFromInt(1), Type: core.Credit})

	rr := do(t, srv, http.MethodGet, "/transaction/monthly/totals", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Message != msgMonthlyTotals {
		t.Errorf("message = %q", env.Message)
	}
	var totals []core.MonthTotals
	if err := json.Unmarshal(env.Data, &totals); err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 {
		t.Fatalf("got %d months, want 2: %+v", len(totals), totals)
	}
	var jan core.MonthTotals
	for _, mt := range totals {
		if mt.Year == 2024 && mt.Month == 1 {
			jan = mt
		}
	}
	if jan.Credits.String() != "200" || jan.Debits.String() != "50" || jan.Balance.String() != "150" {
		t.Errorf("January = %+v", jan)
	}
}

type failingAPI struct{ err error }

func (f failingAPI) Create(context.Context, core.Candidate) (core.Transaction, error) {
	return core.Transaction{}, f.err
}
func (f failingAPI) ListAll(context.Context) ([]core.Transaction, error) { return nil, f.err }
func (f failingAPI) TotalsByPeriod(context.Context, int, int) (core.PeriodTotals, error) {
	return core.PeriodTotals{}, f.err
}
func (f failingAPI) MonthlyTotals(context.Context) ([]core.MonthTotals, error) { return nil, f.err }
func (f failingAPI) Ping(context.Context) error                                { return f.err }

func TestStoreFailuresAreGeneric(t *testing.T) {
	srv := newTestServer(t, failingAPI{err: errors.New("disk I/O error at /var/lib/finance.db")}, Options{})

	requests := []struct{ method, path, body string }{
		{http.MethodPost, "/transaction", `{"date":"15/06/2025","description":"x","value":1,"type":"Debit"}`},
		{http.MethodGet, "/transaction", ""},
		{http.MethodGet, "/transaction/2025/6", ""},
		{http.MethodGet, "/transaction/monthly/totals", ""},
	}
	for _, rq := range requests {
		rr := do(t, srv, rq.method, rq.path, "application/json", rq.body)
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d", rq.method, rq.path, rr.Code)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != `{"message":"Internal server error"}` {
			t.Errorf("%s %s body = %s", rq.method, rq.path, got)
		}
	}

	rr := do(t, srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusInternalServerError || strings.Contains(rr.Body.String(), "<table") {
		t.Errorf("ledger on failure: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d", rr.Code)
	}
}

func TestLedgerPage(t *testing.T) {
	srv, store := newServiceServer(t)
	postJSON(t, srv, "15/06/2025", "Salary <b>", 1500, "Credit")
	postJSON(t, srv, "20/06/2025", "Rent", "700.5", "Debit")
	postJSON(t, srv, "02/03/2024", "Old bill", 10, "Debit")
	store.Seed(core.Transaction{ID: 50, Date: core.Date{Year: 2025, Month: 2, Day: 30}, Description: "broken", Value: core.MoneyFromInt(5), Type: core.Debit})

	rr := do(t, srv, http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"June 2025", "December 2025", "January 2024", "March 2024",
		"15/06/2025", "1500.00", "700.50", "799.50",
		"Salary &lt;b&gt;",
		"1 transaction(s) with unreadable dates",
		`value="20/06/2025"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("ledger page missing %q", want)
		}
	}
	if strings.Contains(body, "differ from the server summary") {
		t.Error("unexpected totals mismatch")
	}
	if !strings.Contains(body, `<details class="month empty" id="month-2025-12">`) {
		t.Error("placeholder month should render as a collapsed details element")
	}
	if !strings.Contains(body, `<details class="month" id="month-2025-06">`) {
		t.Error("month with transactions should render collapsed")
	}
	if strings.Contains(body, "<details open") || strings.Contains(body, `" open>`) {
		t.Error("months should be collapsed by default")
	}
	if strings.Index(body, "December 2025") > strings.Index(body, "January 2024") {
		t.Error("months should be listed newest first")
	}
	if ct := rr.Header().Get("Content-Security-Policy"); ct == "" {
		t.Error("missing security headers")
	}

	rr = do(t, srv, http.MethodGet, "/?month=06", "", "")
	body = rr.Body.String()
	if !strings.Contains(body, "June 2025") || !strings.Contains(body, "June 2024") || strings.Contains(body, "March 2024") {
		t.Errorf("month filter not applied")
	}

	rr = do(t, srv, http.MethodGet, "/?month=13", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "March 2024") {
		t.Errorf("invalid filter should fall back to all months")
	}
}

func TestHealthAndRouting(t *testing.T) {
	srv, _ := newServiceServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/static/app.css"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}

	rr := do(t, srv, http.MethodGet, "/nope", "", "")
	if rr.Code != http.StatusNotFound || decodeEnvelope(t, rr).Message != msgNotFound {
		t.Errorf("unknown route: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodDelete, "/transaction", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /transaction status = %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newServiceServer(t)
	req := httptest.NewRequest(http.MethodGet, "/transaction", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("same-origin server sent Access-Control-Allow-Origin %q", got)
	}

	srv = newTestServer(t, services.NewTransactionService(memory.New(), log.Discard()), Options{CORSAllowedOrigins: []string{"https://app.example"}})
	req = httptest.NewRequest(http.MethodOptions, "/transaction", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("preflight: status %d, headers %v", rr.Code, rr.Header())
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("preflight should still carry security headers")
	}
}

func TestCreateRateLimited(t *testing.T) {
	srv := newTestServer(t, services.NewTransactionService(memory.New(), log.Discard()), Options{RateLimitPerMinute: 2})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = postJSON(t, srv, "15/06/2025", "x", 1, "Debit")
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third create status = %d, want 429", last.Code)
	}
	if decodeEnvelope(t, last).Message != msgRateLimited {
		t.Errorf("message = %q", last.Body.String())
	}

	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/transaction", "", ""); rr.Code != http.StatusOK {
		t.Errorf("list status = %d", rr.Code)
	}
}
