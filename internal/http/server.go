// Package http serves the ledger contract over JSON on top of a Store.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/log"
	"bearbudget/internal/middleware/ratelimit"
	"bearbudget/internal/middleware/security"
	"bearbudget/internal/middleware/trace"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	// RateLimitPerMinute bounds writes per client. Zero uses the default.
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	store   ledger.Store
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	logs    *log.StructuredLogger
	started time.Time

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, store ledger.Store, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	detector := security.NewDetector()
	rlCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	s := &Server{
		store:   store,
		limiter: ratelimit.NewLimiter(rlCfg),
		tracer:  trace.NewMiddleware(detector.ExtractClientIP),
		logs:    log.NewStructuredLogger(logger),
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /transactions", s.handleListTransactions)
	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /cards", s.handleListCards)
	mux.HandleFunc("DELETE /cards/{name}", s.handleDeleteAccount(store.DeleteCard))
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("GET /summary", s.handleSummary)

	mux.HandleFunc("GET /accounts", s.handleAccounts)
	mux.HandleFunc("POST /banks", s.handleCreateAccount(core.KindBank))
	mux.HandleFunc("POST /debts", s.handleCreateAccount(core.KindDebt))
	mux.HandleFunc("DELETE /banks/{name}", s.handleDeleteAccount(store.DeleteBank))
	mux.HandleFunc("DELETE /debts/{name}", s.handleDeleteAccount(store.DeleteDebt))
	mux.HandleFunc("POST /accounts/{name}/adjust", s.handleAdjust)
	mux.HandleFunc("POST /transfer", s.handleTransfer)

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	h = detector.Middleware(h)
	h = otelhttp.NewHandler(h, "ledger")

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Metrics returns the request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the limiter and drains the HTTP server once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
