package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/erp/ordersync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

const defaultCheckTimeout = 3 * time.Second

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	version   string
	startedAt time.Time
	checks    []HealthCheck
	timeout   time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startedAt: time.Now(),
		checks:    checks,
		timeout:   defaultCheckTimeout,
	}
}

// Routes returns the health route group
func (h *HealthHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("health", "/health").
		GET("", h.Live).
		GET("/ready", h.Ready)
}

// Live reports that the process is serving
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready runs every dependency check and answers 503 when any fails
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
	)
	for _, check := range h.checks {
		wg.Add(1)
		go func(check HealthCheck) {
			defer wg.Done()
			status := "ok"
			if err := check.Check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[check.Name] = status
			if status != "ok" {
				healthy = false
			}
		}(check)
	}
	wg.Wait()

	code, status := http.StatusOK, "ready"
	if !healthy {
		code, status = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}
