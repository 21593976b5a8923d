package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware collects HTTP metrics for Prometheus. Paths are labelled
// by route template so ids never become label values.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		m.HTTPActiveConnections.WithLabelValues(method).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method).Dec()

		startTime := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		// Numeric status keeps status=~"5.." style queries working
		status := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(startTime).Seconds())

		if size := c.Request.ContentLength; size > 0 {
			m.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if size := c.Writer.Size(); size > 0 {
			m.HTTPResponseSize.WithLabelValues(method, path, status).Observe(float64(size))
		}
	}
}
