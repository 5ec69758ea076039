package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"gofinances/internal/aggregator"
	"gofinances/internal/auth"
	"gofinances/internal/core"
	"gofinances/internal/log"
	"gofinances/internal/middleware/ratelimit"
	"gofinances/internal/middleware/security"
	"gofinances/internal/middleware/trace"
	"gofinances/internal/services"
)

// TransactionService is what the handlers need from services.TransactionService.
type TransactionService interface {
	Register(ctx context.Context, userID string, in services.RegisterInput) (core.Transaction, error)
	Dashboard(ctx context.Context, userID string) (services.DashboardView, error)
	Resume(ctx context.Context, userID string, year, month int) (services.ResumeView, error)
	Transactions(ctx context.Context, userID string) ([]core.Transaction, error)
	MonthReport(ctx context.Context, userID string, year, month int) (services.ResumeView, []core.Transaction, error)
	Catalog() core.Catalog
	Aggregator() *aggregator.Aggregator
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config wires the server's collaborators.
type Config struct {
	Addr              string
	Service           TransactionService
	Tokens            *auth.TokenService
	Logger            *log.Logger
	RequestsPerMinute int
	TrustedProxies    []string
	Readiness         []ReadinessCheck
	Now               func() time.Time
}

type Server struct {
	http.Server
	svc       TransactionService
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	readiness []ReadinessCheck
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ips, err := security.NewIPExtractor(cfg.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:       cfg.Service,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		tracer:    trace.NewMiddleware(logger, ips.ClientIP),
		readiness: cfg.Readiness,
		now:       now,
	}

	requireAuth := auth.RequireAuth(cfg.Tokens, s.handleUnauthorized)
	api := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /api/dashboard", api(s.handleDashboard))
	mux.Handle("GET /api/resume", api(s.handleResume))
	mux.Handle("GET /api/resume/export.xlsx", api(s.handleExport))
	mux.Handle("GET /api/transactions", api(s.handleListTransactions))
	mux.Handle("POST /api/transactions", api(s.handleCreateTransaction))

	var h http.Handler = mux
	h = s.limiter.Middleware(ips.ClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
