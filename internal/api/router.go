// Package api provides the HTTP API for the migration control gateway.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/govmigrate/govmigrate/internal/api/handler"
	"github.com/govmigrate/govmigrate/internal/api/middleware"
	"github.com/govmigrate/govmigrate/internal/auth"
	"github.com/govmigrate/govmigrate/internal/flags"
	"github.com/govmigrate/govmigrate/internal/health"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	TokenService *auth.TokenService
	Store        *flags.Store
	Monitor      *health.Monitor
	Registry     *health.Registry
	Alerts       *health.AlertManager
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "govmigrate-gateway"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Monitor)
	flagsHandler := handler.NewFlagsHandler(cfg.Store)
	statusHandler := handler.NewStatusHandler(cfg.Monitor, cfg.Registry)
	alertsHandler := handler.NewAlertsHandler(cfg.Alerts)

	authMiddleware := middleware.Auth(cfg.TokenService)

	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)         // 100 req/min
	expensiveRateLimit := middleware.RateLimitByOperator(middleware.ExpensiveRateLimit) // 30 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Flag state and components (authenticated reads)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			r.Get("/flags", flagsHandler.GetFlags)
			r.Get("/phase", flagsHandler.GetPhase)
			r.Get("/components", flagsHandler.ListComponents)
			r.Get("/status", statusHandler.GetStatus)

			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertsHandler.ListAlerts)
				r.Route("/{alertId}", func(r chi.Router) {
					r.Get("/", alertsHandler.GetAlert)
					r.With(middleware.RequireWriter).Post("/ack", alertsHandler.AcknowledgeAlert)
					r.With(middleware.RequireWriter).Post("/resolve", alertsHandler.ResolveAlert)
				})
			})
		})

		// Mutating migration operations (operator role required)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireWriter)
			r.Use(expensiveRateLimit)

			r.Put("/flags/{key}", flagsHandler.UpdateFlag)
			r.Put("/phase", flagsHandler.UpdatePhase)
			r.Post("/rollback", flagsHandler.TriggerRollback)
			r.Post("/status/check", statusHandler.CheckNow)
			r.Put("/status/mode", statusHandler.UpdateMode)
		})
	})

	return r
}
