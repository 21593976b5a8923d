package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request using otelgin
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// SpanEnrichmentMiddleware must run after TracingMiddleware. It tags the
// server span with the request id, the authenticated user and any handler
// errors while the span is still open.
func SpanEnrichmentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := RequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("http.request_id", requestID))
		}
		if userID := c.GetString(util.ContextUserID); userID != "" {
			span.SetAttributes(attribute.String("user.id", userID))
		}
		for _, ginErr := range c.Errors {
			span.RecordError(ginErr.Err)
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
