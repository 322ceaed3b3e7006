package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// DependencyCheck pings a backing service
type DependencyCheck func(ctx context.Context) error

type HealthHandler struct {
	logger *slog.Logger
	checks map[string]DependencyCheck
}

type healthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func NewHealthHandler(logger *slog.Logger, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		checks: checks,
	}
}

// HandleHealth reports service health. Any failing dependency degrades the
// overall status and flips the response to 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().Format(time.RFC3339),
		Dependencies: make(map[string]string),
	}

	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Dependency health check failed", "dependency", name, "error", err)
			response.Dependencies[name] = "unhealthy"
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Dependencies[name] = "healthy"
	}

	writeJSON(w, h.logger, status, response)
}
