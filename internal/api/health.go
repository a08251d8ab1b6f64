package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/boothsim/internal/store"
	"github.com/go-chi/chi/v5"
)

// GeneratorHealth is implemented by generators that can report liveness.
type GeneratorHealth interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo      store.Repository
	generator GeneratorHealth
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. generator may be nil.
func NewHealthHandler(repo store.Repository, generator GeneratorHealth) *HealthHandler {
	return &HealthHandler{repo: repo, generator: generator, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies. A failing
// generator degrades the report but keeps 200, since replies fall back.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]any{"status": "healthy", "checks": checks}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "unhealthy"
		checks["store"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	if h.generator != nil {
		if err := h.generator.Health(ctx); err != nil {
			slog.Warn("Generator health check failed", "error", err)
			checks["generator"] = "unreachable"
			if statusCode == http.StatusOK {
				status["status"] = "degraded"
			}
		} else {
			checks["generator"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}
