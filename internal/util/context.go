package util

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/models"
)

// Context keys set by the auth middleware
const (
	ContextUser     = "user"
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it responds with 401 and returns false.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, ok := OptionalUser(c)
	if !ok {
		RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}

// OptionalUser returns the authenticated user when there is one, without responding
func OptionalUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// SetUser stores the authenticated user and its id/username under the context keys
func SetUser(c *gin.Context, user *models.User) {
	c.Set(ContextUser, user)
	c.Set(ContextUserID, user.ID)
	c.Set(ContextUsername, user.Username)
}
