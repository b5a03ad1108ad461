package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"finance/internal/core"
)

func TestRequestBodyParser_Candidate(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		want        core.Candidate
		wantJSON    bool
	}{
		{
			name:        "json with numeric value",
			body:        `{"date":"15/06/2025","description":"Salary","value":1500.25,"type":"Credit"}`,
			contentType: "application/json",
			want:        core.Candidate{Date: "15/06/2025", Description: "Salary", Value: "1500.25", Type: "Credit"},
			wantJSON:    true,
		},
		{
			name:        "json with string value",
			body:        `{"date":"01/01/2024","description":"  Rent ","value":"800","type":"debit"}`,
			contentType: "application/json",
			want:        core.Candidate{Date: "01/01/2024", Description: "Rent", Value: "800", Type: "debit"},
			wantJSON:    true,
		},
		{
			name:     "json sniffed without content type",
			body:     `{"value":0.1}`,
			want:     core.Candidate{Value: "0.1"},
			wantJSON: true,
		},
		{
			name:        "form encoded",
			body:        "date=15%2F06%2F2025&description=Coffee&value=2.50&type=Debit",
			contentType: "application/x-www-form-urlencoded",
			want:        core.Candidate{Date: "15/06/2025", Description: "Coffee", Value: "2.50", Type: "Debit"},
		},
		{
			name:        "control characters stripped",
			body:        "description=Lunch%00%07",
			contentType: "application/x-www-form-urlencoded",
			want:        core.Candidate{Description: "Lunch"},
		},
		{
			name:        "null and missing fields are empty",
			body:        `{"date":null}`,
			contentType: "application/json",
			want:        core.Candidate{},
			wantJSON:    true,
		},
		{
			name: "empty body",
			want: core.Candidate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/transaction", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			p := NewRequestBodyParser(httptest.NewRecorder(), req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Candidate(); got != tt.want {
				t.Errorf("Candidate() = %+v, want %+v", got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
		})
	}
}

func TestRequestBodyParser_Malformed(t *testing.T) {
	for _, body := range []string{`{"date":`, `{"a":1}{`, strings.Repeat("x", maxBodyBytes+1)} {
		req := httptest.NewRequest(http.MethodPost, "/transaction", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		p := NewRequestBodyParser(httptest.NewRecorder(), req)
		if err := p.Parse(); !errors.Is(err, errMalformedBody) {
			t.Errorf("Parse(%.20q) error = %v, want errMalformedBody", body, err)
		}
	}
}

func TestParsePeriodVars(t *testing.T) {
	tests := []struct {
		year, month string
		wantY       int
		wantM       int
		wantErr     bool
	}{
		{"2025", "6", 2025, 6, false},
		{"2025", "06", 2025, 6, false},
		{"1899", "13", 1899, 13, false},
		{"abc", "6", 0, 0, true},
		{"2025", "june", 0, 0, true},
	}
	for _, tt := range tests {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"year": tt.year, "month": tt.month})
		y, m, err := parsePeriodVars(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePeriodVars(%s, %s) error = %v", tt.year, tt.month, err)
			continue
		}
		if y != tt.wantY || m != tt.wantM {
			t.Errorf("parsePeriodVars(%s, %s) = %d, %d", tt.year, tt.month, y, m)
		}
	}
}
