package web

import (
	"log/slog"
	"net/http"

	"github.com/tasknest/auth-service/internal/config"
	"github.com/tasknest/auth-service/internal/token"
	"github.com/tasknest/auth-service/internal/web/handler"
	"github.com/tasknest/auth-service/internal/web/middleware"
)

// NewHandler assembles the route table and the middleware chain around it.
func NewHandler(
	cfg *config.Config,
	logger *slog.Logger,
	issuer *token.Issuer,
	rateLimiter middleware.RateLimiter,
	authHandler handler.AuthHandler,
	healthHandler handler.HealthHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.HandleFunc("GET /health/live", healthHandler.HandleLiveness)
	mux.HandleFunc("GET /health/ready", healthHandler.HandleReadiness)

	// Credential endpoints carry a per-IP limit against guessing attacks.
	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		credentialLimit := middleware.RateLimit{
			Requests: cfg.RateLimit.AuthRequests,
			Window:   cfg.RateLimit.Window,
			KeyFunc:  middleware.KeyByIP,
		}
		limited = middleware.RateLimitMiddleware(rateLimiter, credentialLimit, logger)
	}

	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(authHandler.HandleLogin)))
	mux.HandleFunc("POST /api/auth/refresh", authHandler.HandleRefresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)

	authenticated := middleware.Authenticate(issuer, logger)
	mux.Handle("POST /api/auth/logout-all", authenticated(http.HandlerFunc(authHandler.HandleLogoutAll)))

	var h http.Handler = mux
	h = middleware.TimeoutMiddleware(cfg.Server.RequestTimeout, logger)(h)

	return h
}
