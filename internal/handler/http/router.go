package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Upendra-HQ/professional-backend-code/pkg/health"
	"github.com/Upendra-HQ/professional-backend-code/pkg/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	Cookies     CookieConfig
	// AuthRateLimit applies per client IP to login, register and refresh.
	AuthRateLimit middleware.RateLimitConfig
	// PprofAllowedCIDRs enables /debug/pprof for the listed networks.
	// Empty disables it.
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all routes registered. ctx bounds
// the rate limiter's background cleanup.
func NewRouter(
	ctx context.Context,
	sessions SessionAuthority,
	accounts AccountService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	if len(cfg.PprofAllowedCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	authHandler := NewAuthHandler(sessions, cfg.Cookies, logger)
	userHandler := NewUserHandler(accounts, logger)
	authenticate := Authenticator(sessions, logger)
	throttle := middleware.RateLimit(ctx, cfg.AuthRateLimit, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.NoStore)

		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(throttle)

			r.Post("/register", userHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.Refresh)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Get("/current-user", userHandler.CurrentUser)
			r.Patch("/update-account", userHandler.UpdateAccount)
			r.Patch("/avatar", userHandler.UpdateAvatar)
			r.Patch("/cover-image", userHandler.UpdateCoverImage)
			r.Get("/c/{username}", userHandler.ChannelProfile)
			r.Post("/c/{username}/subscription", userHandler.ToggleSubscription)
			r.Get("/history", userHandler.WatchHistory)
		})
	})

	return r
}
