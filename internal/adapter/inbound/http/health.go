package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// ToolCounter reports how many tools are registered.
type ToolCounter interface {
	Len() int
}

// HealthChecker verifies component health.
type HealthChecker struct {
	tools    ToolCounter
	authMode string
	upstream string
	version  string
}

// NewHealthChecker creates a HealthChecker. tools may be nil.
func NewHealthChecker(tools ToolCounter, authMode, upstream, version string) *HealthChecker {
	return &HealthChecker{
		tools:    tools,
		authMode: authMode,
		upstream: upstream,
		version:  version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	// An empty catalogue means the gateway cannot serve anything.
	if h.tools == nil || h.tools.Len() == 0 {
		checks["tools"] = "none registered"
		healthy = false
	} else {
		checks["tools"] = fmt.Sprintf("ok: %d registered", h.tools.Len())
	}

	if h.authMode != "" {
		checks["auth"] = h.authMode
	} else {
		checks["auth"] = "not configured"
		healthy = false
	}

	if h.upstream != "" {
		checks["upstream"] = h.upstream
	} else {
		checks["upstream"] = "request origin"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable) // 503
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}

// healthHandler returns an HTTP handler that responds with 200 OK for health checks.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}
