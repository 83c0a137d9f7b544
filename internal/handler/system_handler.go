package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

type SystemHandler struct {
	environment string
	version     string
	checks      map[string]HealthChecker
}

func NewSystemHandler(environment string, version string, checks map[string]HealthChecker) *SystemHandler {
	return &SystemHandler{environment: environment, version: version, checks: checks}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	dependencies := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			dependencies[name] = "unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		dependencies[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":       status,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"environment":  h.environment,
		"version":      h.version,
		"dependencies": dependencies,
	})
}

func (h *SystemHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (h *SystemHandler) Demo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Intervi API"})
}

func (h *SystemHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"message": "Route not found: " + r.Method + " " + r.URL.Path,
		"code":    "NOT_FOUND",
	})
}

func (h *SystemHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"message": "Method not allowed",
		"code":    "METHOD_NOT_ALLOWED",
	})
}
