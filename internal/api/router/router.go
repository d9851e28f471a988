package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/scheduled-pros/internal/bookingapi"
	httpmiddleware "github.com/wolfman30/scheduled-pros/internal/http/middleware"
	"github.com/wolfman30/scheduled-pros/internal/leads"
	"github.com/wolfman30/scheduled-pros/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	BookingHandler  *bookingapi.Handler
	QuotesHandler   *leads.Handler
	AttemptsHandler *bookingapi.AttemptsHandler
	CatalogAdmin    *bookingapi.CatalogAdminHandler
	MetricsHandler  http.Handler
	RateLimiter     *httpmiddleware.RateLimiter

	CORSAllowedOrigins []string
	OperatorJWTSecret  string

	// HealthChecks are run by /health; any failure reports 503.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
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

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.BookingHandler != nil {
			public.Get("/v1/share/{token}", cfg.BookingHandler.SharedConfirmation)
		}
	})

	// Tenant-scoped booking routes
	r.Route("/v1/clients/{clientID}", func(tenant chi.Router) {
		tenant.Use(requireClientID)
		if cfg.RateLimiter != nil {
			tenant.Use(cfg.RateLimiter.Middleware)
		}

		if cfg.BookingHandler != nil {
			cfg.BookingHandler.Routes(tenant)
		}
		if cfg.QuotesHandler != nil {
			tenant.Post("/quotes", cfg.QuotesHandler.CreateQuote)
		}
		if cfg.OperatorJWTSecret != "" {
			tenant.Group(func(operator chi.Router) {
				operator.Use(httpmiddleware.OperatorJWT(cfg.OperatorJWTSecret))
				if cfg.AttemptsHandler != nil {
					operator.Get("/attempts", cfg.AttemptsHandler.List)
				}
				if cfg.CatalogAdmin != nil {
					operator.Delete("/catalog/cache", cfg.CatalogAdmin.Invalidate)
				}
			})
		}
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[name] = err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
