package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"go.uber.org/zap"
)

// HealthCheck probes one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Health reports the status of every registered dependency
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			logger.Log.Warn("Health check failed", zap.String("dependency", check.Name), zap.Error(err))
			checks[check.Name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[check.Name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    overall,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
