package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	appweb "finance/web"
)

// TransactionAPI is what the handlers need from the transaction service.
type TransactionAPI interface {
	Create(ctx context.Context, c core.Candidate) (core.Transaction, error)
	ListAll(ctx context.Context) ([]core.Transaction, error)
	TotalsByPeriod(ctx context.Context, year, month int) (core.PeriodTotals, error)
	MonthlyTotals(ctx context.Context) ([]core.MonthTotals, error)
	Ping(ctx context.Context) error
}

// Options tunes the server. Zero values select the defaults.
type Options struct {
	RateLimitPerMinute int
	// CORSAllowedOrigins enables cross-origin API calls from these origins.
	CORSAllowedOrigins []string
	// RequestTimeout bounds every store read issued by a handler.
	RequestTimeout time.Duration
	// Now is the clock used for the ledger key space.
	Now func() time.Time
}

// Server wraps http.Server with the transaction routes and the ledger page.
type Server struct {
	http.Server

	api       TransactionAPI
	templates *template.Template
	logger    *log.Logger
	events    *log.StructuredLogger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	cors     *security.CORSMiddleware

	requestTimeout time.Duration
	now            func() time.Time
	started        time.Time
	shutdownOnce   sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, api TransactionAPI, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	events := log.NewStructuredLogger(logger)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		api:            api,
		logger:         logger,
		events:         events,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:       security.NewDetector(),
		cors:           security.NewCORSMiddleware(security.DefaultCORSConfig(opts.CORSAllowedOrigins)),
		requestTimeout: opts.RequestTimeout,
		now:            opts.Now,
		started:        time.Now(),
	}
	s.tracer = trace.NewMiddleware(events, s.detector.ExtractClientIP)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Handler = s.middleware(s.routes())
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError().Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, msgMethodNotAllow).Write(w)
	})

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleLedger).Methods(http.MethodGet)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
	})
	r.Handle("/transaction", limited(http.HandlerFunc(s.handleCreateTransaction))).Methods(http.MethodPost)
	r.HandleFunc("/transaction", s.handleListTransactions).Methods(http.MethodGet)
	// Registered before the period route so "monthly" is never read as a year.
	r.HandleFunc("/transaction/monthly/totals", s.handleMonthlyTotals).Methods(http.MethodGet)
	r.HandleFunc("/transaction/{year}/{month}", s.handlePeriodTotals).Methods(http.MethodGet)

	return r
}

// middleware wraps the router so that unmatched routes are traced, logged and
// get security headers too.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	h := headers.Middleware(s.cors.Middleware(next))
	h = s.flagSuspicious(h)
	h = s.tracer.Logging(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(s.logger)(h)
	return s.tracer.RequestID(h)
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTimeout bounds store reads issued on behalf of a request.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.requestTimeout)
}
