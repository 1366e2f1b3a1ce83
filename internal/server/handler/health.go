package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger verifies one dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process liveness and dependency status.
type HealthHandler struct {
	version string
	deps    map[string]Pinger
}

// NewHealthHandler creates a HealthHandler. deps maps a dependency name to
// its pinger; nil pingers are skipped.
func NewHealthHandler(version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, deps: deps}
}

// HealthCheck handles GET /api/health. Dependency failures degrade the
// report but keep the status 200: the process itself is alive.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
		} else {
			checks[name] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"deps":    checks,
	})
}
