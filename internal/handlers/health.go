package handlers

import (
	"context"
	"net/http"
	"os"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Region    string           `json:"region,omitempty"`
	Instance  string           `json:"instance,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// Check user directory
	if h.dir != nil {
		dirStart := time.Now()
		if err := h.dir.Ping(ctx); err != nil {
			checks["directory"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["directory"] = Check{Status: "pass", Latency: time.Since(dirStart).String()}
		}
	} else {
		checks["directory"] = Check{Status: "fail", Message: "not configured"}
		allHealthy = false
	}

	// Check archive (optional, message mirror runs without it)
	if h.arc != nil {
		arcStart := time.Now()
		if err := h.arc.Ping(ctx); err != nil {
			checks["archive"] = Check{Status: "fail", Message: "connection failed"}
			allHealthy = false
		} else {
			checks["archive"] = Check{Status: "pass", Latency: time.Since(arcStart).String()}
		}
	} else {
		checks["archive"] = Check{Status: "pass", Message: "disabled"}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    status,
		Version:   version,
		Region:    os.Getenv("FLY_REGION"),
		Instance:  os.Getenv("FLY_ALLOC_ID"),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	h.JSON(w, statusCode, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "chat-realtime",
		Version: version,
	})
}
