package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/V4T54L/visitor-insight/internal/adapter/api/handler"
	"github.com/V4T54L/visitor-insight/internal/adapter/api/middleware"
	"github.com/V4T54L/visitor-insight/internal/adapter/metrics"
	"github.com/V4T54L/visitor-insight/internal/pkg/config"
)

const greeting = "Hello Delivery Hero!"

// NewRouter creates and configures the main HTTP router for the insight service.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.InsightMetrics,
	lookup handler.InsightLookup,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))

	var validator middleware.KeyValidator
	if len(cfg.APIKeys) > 0 {
		validator = middleware.StaticKeys(cfg.APIKeys)
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	// Routes
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(greeting))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	insightHandler := handler.NewInsightHandler(lookup, logger, m)
	r.With(
		middleware.RateLimit(limiter, m, logger),
		middleware.Auth(validator, logger),
	).Method(http.MethodPost, "/api", insightHandler)

	return r
}
