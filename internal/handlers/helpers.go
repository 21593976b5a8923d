package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// bindJSON decodes the request body into dst and responds 400 when the
// body is not valid JSON for it.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return false
	}
	return true
}

// page reads limit and offset query parameters
func page(c *gin.Context, def, max int) (int, int) {
	return util.ClampLimit(c.Query("limit"), def, max), util.ParseOffset(c.Query("offset"))
}
