package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{name: "disabled", method: http.MethodGet, origin: "https://app.example", wantStatus: http.StatusTeapot},
		{name: "allowed origin", origins: []string{"https://app.example"}, method: http.MethodGet, origin: "https://app.example", wantStatus: http.StatusTeapot, wantOrigin: "https://app.example"},
		{name: "other origin", origins: []string{"https://app.example"}, method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusTeapot},
		{name: "wildcard", origins: []string{"*"}, method: http.MethodPost, origin: "https://any.example", wantStatus: http.StatusTeapot, wantOrigin: "*"},
		{name: "preflight", origins: []string{"https://app.example"}, method: http.MethodOptions, origin: "https://app.example", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "https://app.example"},
		{name: "preflight from other origin", origins: []string{"https://app.example"}, method: http.MethodOptions, origin: "https://evil.example", preflight: true, wantStatus: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCORSMiddleware(DefaultCORSConfig(tt.origins)).Middleware(next)
			req := httptest.NewRequest(tt.method, "/transaction", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.preflight && tt.wantOrigin != "" && rr.Header().Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", rr.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
