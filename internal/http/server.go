// Package http is the JSON API in front of the finance services. Identity
// comes from the fronting auth proxy as headers; every request is traced,
// rate limited and gated by the maintenance switch.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"contas/internal/cache"
	"contas/internal/config"
	"contas/internal/core"
	applog "contas/internal/log"
	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/security"
	"contas/internal/middleware/trace"
	"contas/internal/services"
	"contas/internal/state"
)

// Reader is the storage read surface the handlers need. Mutations go
// through the services; reads come straight from the repository.
type Reader interface {
	ListTransactions(ctx context.Context, ownerIDs []string) ([]core.Transaction, error)
	ListPlans(ctx context.Context, ownerIDs []string) ([]core.RecurringPlan, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
}

// Server wires services, storage reads and the snapshot hub into HTTP
// handlers.
type Server struct {
	cfg       *config.Config
	finance   *services.FinanceService
	admin     *services.AdminService
	users     *services.UserService
	reader    Reader
	hub       state.Subscriber
	summaries *cache.SummaryCache

	limiter  *ratelimit.Limiter
	resolver *security.ClientIPResolver
	tracer   *trace.Middleware
	headers  *security.HeadersMiddleware
	logger   *applog.Logger

	httpServer *http.Server
}

// Options carries the server's collaborators.
type Options struct {
	Config    *config.Config
	Finance   *services.FinanceService
	Admin     *services.AdminService
	Users     *services.UserService
	Reader    Reader
	Hub       state.Subscriber
	Summaries *cache.SummaryCache
	Logger    *applog.Logger
}

func NewServer(opts Options) *Server {
	resolver := security.NewClientIPResolver()
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		cfg:       opts.Config,
		finance:   opts.Finance,
		admin:     opts.Admin,
		users:     opts.Users,
		reader:    opts.Reader,
		hub:       opts.Hub,
		summaries: opts.Summaries,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		resolver:  resolver,
		tracer:    trace.NewMiddleware(resolver.ClientIP),
		headers:   security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		logger:    logger.WithComponent(applog.ComponentHTTP),
	}

	s.httpServer = &http.Server{
		Addr:              ":" + opts.Config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler builds the full routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/me", s.handleMe)
	api.HandleFunc("POST /api/partner", s.handleLinkPartner)

	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/events", s.handleEvents)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleEditTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/plans", s.handleListPlans)
	api.HandleFunc("POST /api/plans", s.handleCreatePlan)
	api.HandleFunc("DELETE /api/plans/{id}", s.handleDeletePlan)
	api.HandleFunc("POST /api/plans/{id}/pay", s.handlePayInstallment)

	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/categories", s.handleCreateCategory)
	api.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	api.HandleFunc("GET /api/notifications", s.handleListNotifications)
	api.HandleFunc("GET /api/maintenance", s.handleMaintenanceStatus)

	api.HandleFunc("PUT /api/admin/maintenance", s.handleSetMaintenance)
	api.HandleFunc("POST /api/admin/notifications", s.handleBroadcast)
	api.HandleFunc("DELETE /api/admin/notifications/{id}", s.handleDeleteNotification)

	// Identity and the maintenance gate wrap the API only; the probes
	// stay open for the orchestrator.
	var apiHandler http.Handler = api
	apiHandler = s.withMaintenanceGate(apiHandler)
	apiHandler = s.withIdentity(apiHandler)
	apiHandler = s.limiter.Middleware(s.resolver.ClientIP, nil)(apiHandler)
	mux.Handle("/api/", apiHandler)

	var h http.Handler = mux
	h = s.headers.Middleware(h)
	h = applog.ComponentMiddleware(applog.ComponentHTTP)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	return h
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Readiness means storage answers. The cheapest probe that touches
	// the database is the maintenance flag.
	if _, err := s.admin.MaintenanceMode(r.Context()); err != nil {
		respondError(w, r, fmt.Errorf("storage not ready: %w", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
