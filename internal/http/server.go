package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"painel/internal/core"
	applog "painel/internal/log"
	"painel/internal/middleware/ratelimit"
	"painel/internal/middleware/security"
	"painel/internal/middleware/trace"
	"painel/internal/pipeline"
	"painel/internal/services"
)

// DashboardService is what the handlers need from the services layer.
type DashboardService interface {
	BaseParams(ctx context.Context) pipeline.Params
	Dashboard(ctx context.Context, params pipeline.Params) (pipeline.Dashboard, error)
	Refresh(ctx context.Context, reason string) services.RefreshResult
	Settings(ctx context.Context) (core.Settings, error)
	SaveSettings(ctx context.Context, s core.Settings) error
	Ready(ctx context.Context) error
	Backend() string
}

var _ DashboardService = (*services.DashboardService)(nil)

type Server struct {
	http.Server
	svc      DashboardService
	logger   *applog.Logger
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// ServerOptions tunes the middleware; the zero value uses the defaults.
type ServerOptions struct {
	Logger    *applog.Logger
	RateLimit ratelimit.Config
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc DashboardService, opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		svc:      svc,
		logger:   logger,
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
	}

	limited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/months", s.handleMonths)
	mux.HandleFunc("GET /api/focus", s.handleFocus)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("PUT /api/settings", limited(http.HandlerFunc(s.handlePutSettings)))
	mux.Handle("POST /api/refresh", limited(http.HandlerFunc(s.handleRefresh)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(detector.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
