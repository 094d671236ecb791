// Package router assembles the HTTP surface: public booking endpoints,
// health and metrics, and JWT-guarded admin routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/radiancemd/spa-scheduler/internal/http/handlers"
	httpmiddleware "github.com/radiancemd/spa-scheduler/internal/http/middleware"
	"github.com/radiancemd/spa-scheduler/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Scheduling         *handlers.SchedulingHandler
	Admin              *handlers.AdminHandler
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests per second and burst for the booking endpoints. Zero rate
	// disables limiting.
	BookingRateLimit float64
	BookingBurst     int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Get("/availability", cfg.Scheduling.Availability)

	r.Route("/appointments", func(r chi.Router) {
		if cfg.BookingRateLimit > 0 {
			r.Use(httpmiddleware.RateLimit(cfg.BookingRateLimit, cfg.BookingBurst))
		}
		r.Post("/", cfg.Scheduling.Book)
		r.Post("/custom", cfg.Scheduling.BookCustom)
		r.Get("/", cfg.Scheduling.ListByPhone)
		r.Delete("/{eventID}", cfg.Scheduling.Cancel)
		r.Post("/{eventID}/complete", cfg.Scheduling.Complete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		r.Post("/reconcile", cfg.Admin.Reconcile)
		r.Get("/messages", cfg.Admin.Messages)
	})

	return r
}
