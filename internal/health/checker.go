package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/tasknest/auth-service/internal/cache"
	"github.com/tasknest/auth-service/internal/database"
)

// Checker probes the credential store and session store.
type Checker struct {
	DB     *database.Database
	Cache  *cache.Service
	Logger *slog.Logger
}

func NewChecker(db *database.Database, cacheService *cache.Service, logger *slog.Logger) Checker {
	return Checker{
		DB:     db,
		Cache:  cacheService,
		Logger: logger,
	}
}

// Status represents overall health information
type Status struct {
	Status     string               `json:"status"`
	Timestamp  string               `json:"timestamp"`
	Components map[string]Component `json:"components,omitempty"`
}

// Component represents individual component health
type Component struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Latency  time.Duration `json:"latency_ms"`
	Critical bool          `json:"critical"`
}

// CheckHealth probes every dependency.
func (h *Checker) CheckHealth(ctx context.Context) Status {
	components := map[string]Component{
		"database": h.checkDatabase(ctx),
		"redis":    h.checkRedis(ctx),
	}

	overall := "healthy"
	for _, component := range components {
		if component.Status == "unhealthy" && component.Critical {
			overall = "unhealthy"
			break
		}
	}

	return Status{
		Status:     overall,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
}

// CheckLiveness only verifies the process is responsive.
func (h *Checker) CheckLiveness(ctx context.Context) Status {
	return Status{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// CheckReadiness verifies the service can serve authenticated traffic. Both
// stores are critical: without Redis no session can be verified or revoked.
func (h *Checker) CheckReadiness(ctx context.Context) Status {
	return h.CheckHealth(ctx)
}

func (h *Checker) checkDatabase(ctx context.Context) Component {
	start := time.Now()

	if h.DB == nil || h.DB.Pool == nil {
		return Component{
			Status:   "unhealthy",
			Message:  "database not configured",
			Critical: true,
		}
	}

	var result int
	err := h.DB.QueryRow(ctx, "SELECT 1").Scan(&result)
	latency := time.Since(start)

	if err != nil {
		h.Logger.Error("Database health check failed", "error", err, "latency", latency)
		return Component{
			Status:   "unhealthy",
			Message:  "database connection failed",
			Latency:  latency,
			Critical: true,
		}
	}

	return Component{
		Status:   "healthy",
		Latency:  latency,
		Critical: true,
	}
}

func (h *Checker) checkRedis(ctx context.Context) Component {
	start := time.Now()

	if h.Cache == nil {
		return Component{
			Status:   "unhealthy",
			Message:  "session store not configured",
			Critical: true,
		}
	}

	err := h.Cache.Health(ctx)
	latency := time.Since(start)

	if err != nil {
		h.Logger.Error("Redis health check failed", "error", err, "latency", latency)
		return Component{
			Status:   "unhealthy",
			Message:  "session store connection failed",
			Latency:  latency,
			Critical: true,
		}
	}

	return Component{
		Status:   "healthy",
		Latency:  latency,
		Critical: true,
	}
}
