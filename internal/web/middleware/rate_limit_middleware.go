package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/tasknest/auth-service/internal/errors"
	"github.com/tasknest/auth-service/internal/web/response"
)

// RateLimit defines rate limiting parameters for an endpoint group
type RateLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  KeyFunction
}

// KeyFunction derives the rate limiting key from the request
type KeyFunction func(r *http.Request) string

// KeyByIP keys limits on the client IP address
var KeyByIP KeyFunction = func(r *http.Request) string {
	return GetClientIP(r)
}

// GetClientIP extracts the real client IP from the request
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}

	return r.RemoteAddr
}

// RateLimitMiddleware enforces the given limit per key. Limiter failures do
// not block the request.
func RateLimitMiddleware(rateLimiter RateLimiter, limit RateLimit, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := limit.KeyFunc(r)
			if key == "" {
				key = "unknown"
			}

			allowed, err := rateLimiter.Allow(r.Context(), key, limit.Requests, limit.Window)
			if err != nil {
				logger.WarnContext(r.Context(), "Rate limiter error", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				remaining, _ := rateLimiter.GetRemaining(r.Context(), key, limit.Requests, limit.Window)

				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				w.Header().Set("X-RateLimit-Window", limit.Window.String())

				response.ErrorResponse(w, apperrors.RateLimitedError("Rate limit exceeded", nil), logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
