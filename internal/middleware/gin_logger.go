package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
)

// GinLoggerMiddleware logs every HTTP request with structured fields.
// 5xx responses log at error, 4xx at warn and everything else at info.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			logger.WithStatus(statusCode),
			logger.WithIP(c.ClientIP()),
			logger.WithDuration(time.Since(startTime)),
			zap.Int("response_size", c.Writer.Size()),
			zap.String("user_agent", c.Request.UserAgent()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if requestID := RequestID(c); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}
		if userID := c.GetString(util.ContextUserID); userID != "" {
			fields = append(fields, logger.WithUserID(userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case statusCode >= 500:
			logger.Log.Error("HTTP request", fields...)
		case statusCode >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
