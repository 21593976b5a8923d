package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/auth"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
)

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user on the context.
func RequireAuth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "No token provided")
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Rejected bearer token", logger.WithIP(c.ClientIP()), zap.Error(err))
			util.RespondUnauthorized(c, "Invalid or expired token")
			return
		}

		util.SetUser(c, user)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// otherwise carries on anonymously.
func OptionalAuth(verifier auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := verifier.Verify(c.Request.Context(), token); err == nil {
				util.SetUser(c, user)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
