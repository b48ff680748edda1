package handlers

import (
	"context"
	"net/http"
	"time"

	"users-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Pinger is anything the health checks can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests
type HealthHandler struct {
	version  string
	timeout  time.Duration
	services map[string]Pinger
}

// NewHealthHandler creates a new health handler probing the given services.
// Nil entries are skipped.
func NewHealthHandler(version string, services map[string]Pinger) *HealthHandler {
	checked := make(map[string]Pinger, len(services))
	for name, p := range services {
		if p != nil {
			checked[name] = p
		}
	}
	return &HealthHandler{
		version:  version,
		timeout:  2 * time.Second,
		services: checked,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

func (h *HealthHandler) probe(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	healthy := true
	statuses := make(map[string]string, len(h.services))
	for name, p := range h.services {
		if err := p.Ping(ctx); err != nil {
			logger.Warn("Health check for %s failed: %v", name, err)
			statuses[name] = "unhealthy"
			healthy = false
			continue
		}
		statuses[name] = "healthy"
	}
	return statuses, healthy
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services, healthy := h.probe(c.Request.Context())

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
		Services:  services,
	}

	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, response)
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	_, ready := h.probe(c.Request.Context())

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"ready":     ready,
		"timestamp": time.Now(),
	})
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alive":     true,
		"timestamp": time.Now(),
	})
}
