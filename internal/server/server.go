package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/auth"
	"github.com/hongminglow/lending-console/internal/config"
	"github.com/hongminglow/lending-console/internal/console"
	"github.com/hongminglow/lending-console/internal/http/handlers"
	"github.com/hongminglow/lending-console/internal/middleware"
	"github.com/hongminglow/lending-console/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// BackendRoutes builds the lending API router. Everything lives under /api;
// reads need a valid token and mutations need the admin role.
func BackendRoutes(cfg config.Config, store storage.Store, limiter *middleware.RateLimiter, deps map[string]handlers.Pinger, log logrus.FieldLogger) http.Handler {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	r := chi.NewRouter()
	r.Use(middleware.Metrics("backend"))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), deps).Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		var limit func(http.Handler) http.Handler
		if limiter != nil {
			limit = limiter.Handler
		}
		handlers.NewAuthHandler(store, tokens, limit, log).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(tokens, log))
			admin := r.With(middleware.RequireAdmin)

			handlers.NewCustomerHandler(store, log).Register(r, admin)
			handlers.NewLoanHandler(store, log).Register(r, admin)
			handlers.NewTransactionHandler(store, log).Register(r)
		})
	})
	return r
}

// ConsoleRoutes builds the console router.
func ConsoleRoutes(cfg config.ConsoleConfig, workspaces *console.Workspaces, deps map[string]handlers.Pinger, log logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Metrics("console"))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), deps).Register(r)
	r.Handle("/metrics", promhttp.Handler())

	console.NewHandler(workspaces, cfg.SecureCookie, log).Register(r)
	return r
}

// New wraps handler in an http.Server listening on addr.
func New(addr string, handler http.Handler) *Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
