package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jkindrix/draftwise/internal/metrics"
	"github.com/jkindrix/draftwise/internal/middleware"
)

// RouterConfig holds the handlers and middleware dependencies of the HTTP API.
type RouterConfig struct {
	Sessions    *SessionHandler
	Stream      *StreamHandler
	Schedules   *ScheduleHandler
	Generations *GenerationHandler
	Health      *HealthHandler
	LogLevel    *LogLevelHandler

	// Optional.
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter

	Logger *zap.Logger
}

// NewRouter builds the HTTP API. Health checks and metrics sit outside the rate
// limiter; API routes carry the owner identity.
func NewRouter(cfg RouterConfig) http.Handler {
	correlation := middleware.NewRequestCorrelation(cfg.Logger)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(correlation.Middleware)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base := BaseHandler{logger: cfg.Logger}
		base.WriteError(w, r, errRouteNotFound)
	})

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(r)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	if cfg.LogLevel != nil {
		r.Handle("/admin/log-level", cfg.LogLevel)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter))
		}
		r.Use(middleware.Owner)

		// The stream is long-lived and must not be compressed.
		if cfg.Stream != nil {
			cfg.Stream.RegisterRoutes(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))
			if cfg.Sessions != nil {
				cfg.Sessions.RegisterRoutes(r)
			}
			if cfg.Schedules != nil {
				cfg.Schedules.RegisterRoutes(r)
			}
			if cfg.Generations != nil {
				cfg.Generations.RegisterRoutes(r)
			}
		})
	})

	return r
}
