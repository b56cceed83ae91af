package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/tasknest/auth-service/internal/errors"
	"github.com/tasknest/auth-service/internal/identity"
	"github.com/tasknest/auth-service/internal/token"
	"github.com/tasknest/auth-service/internal/web/response"
)

type claimsContextKey struct{}

// ContextWithClaims attaches verified access-token claims to the context.
func ContextWithClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return claims, ok
}

// Authenticate extracts the bearer token, verifies it, and attaches the
// decoded claims to the request context. Verification is purely local;
// no store is consulted.
func Authenticate(issuer *token.Issuer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || bearer == "" {
				response.ErrorResponse(w, apperrors.NoTokenError("No token provided", nil), logger)
				return
			}

			claims, err := issuer.Verify(bearer)
			if err != nil {
				logger.WarnContext(r.Context(), "Access token rejected", "error", err)
				response.ErrorResponse(w, apperrors.UnauthorizedError("Unauthorized", err), logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set. It must run after Authenticate.
func RequireRole(logger *slog.Logger, roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.ErrorResponse(w, apperrors.UnauthorizedError("Unauthorized", nil), logger)
				return
			}

			for _, role := range roles {
				if identity.Role(claims.Role) == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.WarnContext(r.Context(), "Role rejected",
				"role", claims.Role,
				"path", r.URL.Path)
			response.ErrorResponse(w, apperrors.ForbiddenError("Access denied: insufficient permissions", nil), logger)
		})
	}
}
