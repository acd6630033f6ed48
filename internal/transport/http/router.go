// Package httptransport composes the feature handlers into one chi router
// with the shared middleware chain.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	eventHandler "festreg/internal/event/handler"
	identityHandler "festreg/internal/identity/handler"
	"festreg/internal/platform/metrics"
	"festreg/internal/platform/middleware"
	registrationHandler "festreg/internal/registration/handler"
	teamHandler "festreg/internal/team/handler"
	"festreg/pkg/platform/httputil"
	"festreg/pkg/platform/middleware/metadata"
	"festreg/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	Identity      *identityHandler.Handler
	Events        *eventHandler.Handler
	Teams         *teamHandler.Handler
	Registrations *registrationHandler.Handler
}

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Tokens         middleware.TokenValidator
	AdminToken     string
	RequestTimeout time.Duration
	// Checks are run by /ready, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(cfg Config, h Handlers) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, cfg.Metrics))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readiness(cfg.Checks, logger))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		h.Identity.RegisterPublic(r)
		h.Events.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.Tokens, logger))
			h.Identity.Register(r)
			h.Teams.Register(r)
			h.Registrations.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(cfg.AdminToken, logger))
			h.Identity.RegisterAdmin(r)
			h.Events.RegisterAdmin(r)
			h.Registrations.RegisterAdmin(r)
		})
	})
	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				result[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
