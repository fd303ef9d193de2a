// Package http exposes ledgers, reports and charts over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"klarity/internal/insight"
	"klarity/internal/log"
	"klarity/internal/middleware/ratelimit"
	"klarity/internal/middleware/security"
	"klarity/internal/middleware/trace"
	"klarity/internal/report"
	"klarity/internal/session"
)

// Options tunes a Server. Zero values pick defaults.
type Options struct {
	// TopN is how many categories reports rank when the query has no top.
	TopN int
	// Location decides which calendar day "today" is when the query
	// does not name one.
	Location        *time.Location
	RateLimit       ratelimit.Config
	BlockSuspicious bool
	// Advisor answers insight requests; nil disables POST .../insight.
	Advisor *insight.Advisor
	// History keeps generated suggestions; nil disables the history
	// endpoints and skips saving.
	History *insight.History
	Now     func() time.Time
}

type Server struct {
	http.Server
	sessions *session.Manager
	advisor  *insight.Advisor
	history  *insight.History
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger

	defaultTop int
	loc        *time.Location
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, sessions *session.Manager, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.TopN <= 0 {
		opts.TopN = report.DefaultTopN
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}

	s := &Server{
		sessions:   sessions,
		advisor:    opts.Advisor,
		history:    opts.History,
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(),
		logger:     logger,
		defaultTop: opts.TopN,
		loc:        opts.Location,
		now:        opts.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(opts.BlockSuspicious)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	const user = "/api/users/{uid}"
	mux.HandleFunc("GET "+user+"/report", s.handleReport)
	mux.HandleFunc("POST "+user+"/refresh", s.handleRefresh)

	mux.HandleFunc("GET "+user+"/transactions", s.handleListTransactions)
	mux.HandleFunc("POST "+user+"/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PATCH "+user+"/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE "+user+"/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET "+user+"/categories", s.handleListCategories)
	mux.HandleFunc("POST "+user+"/categories", s.handleCreateCategory)
	mux.HandleFunc("POST "+user+"/categories/defaults", s.handleDefaultCategories)
	mux.HandleFunc("PATCH "+user+"/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE "+user+"/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("GET "+user+"/charts/{chart}", s.handleChart)

	mux.HandleFunc("GET "+user+"/insight/prompt", s.handleInsightPrompt)
	mux.HandleFunc("POST "+user+"/insight", s.handleInsight)
	mux.HandleFunc("GET "+user+"/insight/history", s.handleListSuggestions)
	mux.HandleFunc("DELETE "+user+"/insight/history/{ts}", s.handleDeleteSuggestion)

	return mux
}

// middleware orders the request pipeline, outermost first.
func (s *Server) middleware(blockSuspicious bool) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		s.tracer.Middleware,
		log.Middleware(s.logger),
		log.RequestIDMiddleware(trace.FromRequest),
		s.detector.Middleware(s.logger, blockSuspicious),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
		}),
	}
	return func(h http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics is a point-in-time view of request counters.
type Metrics struct {
	Requests      trace.Metrics
	RateLimit     ratelimit.Metrics
	Security      security.DetectionMetrics
	CachedLedgers int
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Requests:      s.tracer.GetMetrics(),
		RateLimit:     s.limiter.GetMetrics(),
		Security:      s.detector.GetMetrics(),
		CachedLedgers: s.sessions.Cache().Size(),
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
