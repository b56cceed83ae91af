package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasknest/auth-service/internal/health"
	"github.com/tasknest/auth-service/internal/web/response"
)

type HealthHandler struct {
	Checker health.Checker
	Logger  *slog.Logger
}

func NewHealthHandler(checker health.Checker, logger *slog.Logger) HealthHandler {
	return HealthHandler{
		Checker: checker,
		Logger:  logger,
	}
}

// HandleHealth reports overall health including dependency probes.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Checker.CheckHealth(ctx)
	writeHealthStatus(w, status)
}

// HandleLiveness reports process liveness only, never dependency state.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	status := h.Checker.CheckLiveness(r.Context())
	writeHealthStatus(w, status)
}

// HandleReadiness reports whether the service can take authenticated traffic.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Checker.CheckReadiness(ctx)
	writeHealthStatus(w, status)
}

func writeHealthStatus(w http.ResponseWriter, status health.Status) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	httpStatus := http.StatusOK
	if status.Status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	response.JSONResponse(w, httpStatus, status)
}
