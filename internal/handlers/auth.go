package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/auth"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// Signup creates an account
// POST /api/v1/auth/signup
func (h *Handlers) Signup(c *gin.Context) {
	var req auth.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, resp)
}

// Login accepts a username or email with a password
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, resp)
}

// VerifyToken confirms the bearer token; the auth middleware already did the work
// GET /api/v1/auth/verify
func (h *Handlers) VerifyToken(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	util.RespondOK(c, gin.H{"valid": true, "user": user})
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	util.RespondOK(c, user)
}
