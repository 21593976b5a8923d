package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"go.uber.org/zap"
)

// Envelope is the body shape of every API response
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// RespondOK sends a 200 envelope wrapping data
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// RespondCreated sends a 201 envelope wrapping data
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// RespondList sends data plus list metadata (total, limit, offset, unreadCount...)
// as sibling keys of "data".
func RespondList(c *gin.Context, data any, meta gin.H) {
	body := gin.H{"success": true, "data": data}
	for k, v := range meta {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondMessage sends a success envelope with only a message
func RespondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

// RespondWithAPIError sends a structured API error response
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("path", c.FullPath()),
			zap.Int("status", apiErr.Status),
		)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Debug("API error",
			zap.String("code", string(apiErr.Code)),
			zap.String("message", apiErr.Message),
			zap.String("field", apiErr.Field),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, Envelope{
		Success: false,
		Error:   apiErr.Message,
		Code:    string(apiErr.Code),
		Field:   apiErr.Field,
	})
}

// RespondError maps a service error onto the taxonomy and responds.
// Internal detail is logged here and never sent to the client.
func RespondError(c *gin.Context, err error) {
	apiErr := errors.FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.ErrorWithFields("request failed", err,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
		)
	}
	RespondWithAPIError(c, apiErr)
}

// RespondUnauthorized sends a 401 Unauthorized response
func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

// RespondNotFound sends a 404 Not Found response
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

// RespondBadRequest sends a 400 Bad Request response
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

// RespondValidationError sends a 400 with the offending field
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

// RespondInternalError sends a 500 Internal Server Error response
func RespondInternalError(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InternalError(message))
}
