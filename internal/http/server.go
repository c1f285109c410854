// Package http serves the ledger as a JSON API.
//
// Handlers only translate between HTTP and the ledger service; every
// computation goes through services.LedgerService so the API, the CLI and
// the workers project the same entries the same way.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetcal/internal/log"
	"budgetcal/internal/middleware/ratelimit"
	"budgetcal/internal/middleware/security"
	"budgetcal/internal/middleware/trace"
	"budgetcal/internal/services"
	"budgetcal/internal/storage"
)

type Options struct {
	Addr   string
	Ledger *services.LedgerService
	// Pinger backs /readyz. Nil means always ready.
	Pinger             storage.Pinger
	ReminderLeadDays   int
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger           *services.LedgerService
	pinger           storage.Pinger
	validate         *Validator
	limiter          *ratelimit.Limiter
	reminderLeadDays int
	logger           *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.TrustedProxies == nil {
		opts.TrustedProxies = security.DefaultTrustedProxies
	}
	resolver, err := security.NewIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		ledger:           opts.Ledger,
		pinger:           opts.Pinger,
		validate:         NewValidator(),
		limiter:          ratelimit.NewLimiter(limitCfg),
		reminderLeadDays: opts.ReminderLeadDays,
		logger:           opts.Logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(resolver.ClientIP, s.handleRateLimited)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = log.Middleware(opts.Logger, trace.FromRequest, resolver.ClientIP)(handler)
	handler = trace.RequestID(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/entries", s.handleGetEntries)
	mux.HandleFunc("PUT /api/entries", s.handlePutEntries)
	mux.HandleFunc("POST /api/entries/import", s.handleImportEntries)
	mux.HandleFunc("GET /api/rollover", s.handleGetRollover)
	mux.HandleFunc("PUT /api/rollover", s.handlePutRollover)

	mux.HandleFunc("GET /api/projection", s.handleProjection)
	mux.HandleFunc("GET /api/projection/xlsx", s.handleProjectionXLSX)
	mux.HandleFunc("GET /api/weeks/snapshot", s.handleWeeklySnapshot)
	mux.HandleFunc("GET /api/months/{month}", s.handleMonth)
	mux.HandleFunc("GET /api/score", s.handleScore)
	mux.HandleFunc("GET /api/score/history", s.handleScoreHistory)

	mux.HandleFunc("POST /api/instances/{id}/reorder", s.handleReorder)
	mux.HandleFunc("POST /api/instances/{id}/paid", s.handleSetPaid)
	mux.HandleFunc("DELETE /api/instances/{id}/exception", s.handleClearException)

	mux.HandleFunc("GET /api/bundle", s.handleGetBundle)
	mux.HandleFunc("POST /api/bundle", s.handlePostBundle)
	mux.HandleFunc("GET /api/reminders", s.handleReminders)
	mux.HandleFunc("POST /api/exports", s.handleRequestExport)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded")
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, retry later").Write(w)
}
