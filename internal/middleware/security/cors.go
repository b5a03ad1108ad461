package security

import (
	"net/http"
	"slices"
	"strings"
)

// CORSConfig lists the browser origins allowed to call the API from another
// site. An empty list keeps the API same-origin: no CORS headers are sent.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         string
}

func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         "600",
	}
}

type CORSMiddleware struct {
	config CORSConfig
	any    bool
}

func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{
		config: config,
		any:    slices.Contains(config.AllowedOrigins, "*"),
	}
}

func (cm *CORSMiddleware) allowed(origin string) bool {
	return origin != "" && (cm.any || slices.Contains(cm.config.AllowedOrigins, origin))
}

// Middleware adds CORS headers for allowed origins and answers their
// preflight requests with 204.
func (cm *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	if len(cm.config.AllowedOrigins) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !cm.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if cm.any {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, HX-Trigger")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", strings.Join(cm.config.AllowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(cm.config.AllowedHeaders, ", "))
			if cm.config.MaxAge != "" {
				h.Set("Access-Control-Max-Age", cm.config.MaxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
