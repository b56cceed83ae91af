package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds every store call made below it by deadlining the
// request context. A timed-out request fails closed with 408.
func TimeoutMiddleware(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			var panicErr any

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicErr = p
					}
					close(done)
				}()

				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-done:
				if panicErr != nil {
					logger.ErrorContext(ctx, "Request panic recovered",
						slog.Any("panic", panicErr),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method))
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			case <-ctx.Done():
				logger.WarnContext(ctx, "Request timeout",
					slog.Duration("timeout", timeout),
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method))

				if ctx.Err() == context.DeadlineExceeded {
					http.Error(w, "Request timeout", http.StatusRequestTimeout)
				}
			}
		})
	}
}
