package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
)

// WindowCounter is the slice of cache.RedisClient the rate limiter needs
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimitMiddleware is a fixed-window limiter keyed by client IP and
// shared across instances through Redis. When Redis fails the request is
// rejected with 503 so a broken limiter never opens the API up.
func RedisRateLimitMiddleware(counter WindowCounter, maxRequests int, window time.Duration) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := counter.IncrWindow(ctx, key, window)
		if err != nil {
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(clientIP),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, apierrors.ServiceUnavailable("rate limiter"))
			return
		}

		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			metrics.Get().RateLimitExceededTotal.WithLabelValues(c.Request.Method).Inc()
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(clientIP),
				zap.Int("max_requests", maxRequests),
				zap.Int64("current_requests", count),
			)
			c.Header("Retry-After", retryAfter)
			util.RespondWithAPIError(c, apierrors.RateLimited(""))
			return
		}

		c.Next()
	}
}
