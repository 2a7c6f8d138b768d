package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"chronolookup-api/internal/service"
	"chronolookup-api/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// ReadyCheck reports whether one dependency can serve requests.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	service    string
	version    string
	checks     []ReadyCheck
	maintainer *service.CacheMaintainer
	sessions   *service.SessionRegistry
}

// New creates a new handler.
func New(serviceName, version string, maintainer *service.CacheMaintainer, sessions *service.SessionRegistry, checks ...ReadyCheck) *Handler {
	return &Handler{
		service:    serviceName,
		version:    version,
		checks:     checks,
		maintainer: maintainer,
		sessions:   sessions,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := []Check{
		{Name: "api", Status: "ok"},
	}
	for _, c := range h.checks {
		check := Check{Name: c.Name, Status: "ok"}
		if err := c.Check(ctx); err != nil {
			check.Status = "error"
			check.Error = err.Error()
		}
		checks = append(checks, check)
	}

	allReady := true
	for _, check := range checks {
		if check.Status != "ok" {
			allReady = false
			break
		}
	}

	resp := ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, resp)
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	CacheEntries int     `json:"cache_entries"`
	Sessions     int     `json:"sessions"`
	MemoryMB     float64 `json:"memory_mb"`
}

// StatusResponse represents the liveness summary.
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	checks := StatusChecks{MemoryMB: float64(int(memoryMB*100)) / 100}
	if h.maintainer != nil {
		for _, s := range h.maintainer.Stats() {
			checks.CacheEntries += s.Total
		}
	}
	if h.sessions != nil {
		checks.Sessions = h.sessions.Len()
	}

	resp := StatusResponse{
		Service:       h.service,
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		Checks:        checks,
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
