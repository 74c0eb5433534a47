package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rgpulse/landing-leads/internal/http/handlers"
	httpmiddleware "github.com/rgpulse/landing-leads/internal/http/middleware"
	"github.com/rgpulse/landing-leads/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Sessions           *handlers.SessionHandler
	Events             *handlers.EventsHandler
	Leads              *handlers.LeadsHandler
	Checkout           *handlers.CheckoutHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// LeadsLimiter throttles lead submissions per client IP (optional).
	LeadsLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Checkout != nil {
		r.Get("/checkout", cfg.Checkout.Redirect)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Sessions != nil {
			api.Post("/sessions", cfg.Sessions.Capture)
			api.Get("/sessions/{sessionID}", cfg.Sessions.Get)
		}
		if cfg.Events != nil {
			api.Post("/events", cfg.Events.Collect)
		}
		if cfg.Leads != nil {
			api.Route("/leads", func(lr chi.Router) {
				submit := lr
				if cfg.LeadsLimiter != nil {
					submit = lr.With(httpmiddleware.RateLimit(cfg.LeadsLimiter))
				}
				submit.Post("/", cfg.Leads.Submit)
				lr.Post("/validate", cfg.Leads.Validate)
				lr.Post("/draft", cfg.Leads.Draft)
			})
		}
	})

	return r
}
