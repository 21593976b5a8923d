package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id in both directions
	RequestIDHeader = "X-Request-ID"
	// ContextRequestID is the gin context key for the request id
	ContextRequestID = "request_id"

	maxRequestIDLen = 128
)

// RequestIDMiddleware adds a unique request ID to each request.
// A client-supplied X-Request-ID is reused when it is a sane length.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.New().String()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// RequestID returns the id set by RequestIDMiddleware, or ""
func RequestID(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
