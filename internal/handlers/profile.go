package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/profiles"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// GetProfile returns a user's public profile
// GET /api/v1/profile/:username
func (h *Handlers) GetProfile(c *gin.Context) {
	var viewerID string
	if viewer, ok := util.OptionalUser(c); ok {
		viewerID = viewer.ID
	}

	view, err := h.profiles.GetProfile(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, view)
}

// UpdateProfile edits the caller's own profile
// PUT /api/v1/profile
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req profiles.UpdateInput
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.profiles.UpdateProfile(c.Request.Context(), user, req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, view)
}

// GetUserPosts lists posts by one user
// GET /api/v1/profile/:username/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	limit, offset := page(c, feed.DefaultLimit, feed.MaxLimit)

	posts, err := h.profiles.ListUserPosts(c.Request.Context(), c.Param("username"), limit, offset)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondList(c, posts, gin.H{"count": len(posts), "limit": limit, "offset": offset})
}

// GetServices lists a user's services
// GET /api/v1/profile/:username/services
func (h *Handlers) GetServices(c *gin.Context) {
	services, err := h.profiles.ListServices(c.Request.Context(), c.Param("username"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, services)
}

// AddService adds a service to the caller's profile
// POST /api/v1/profile/services
func (h *Handlers) AddService(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req profiles.ServiceInput
	if !bindJSON(c, &req) {
		return
	}

	svc, err := h.profiles.AddService(c.Request.Context(), user, req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, svc)
}

// UpdateService edits one of the caller's services
// PUT /api/v1/profile/services/:id
func (h *Handlers) UpdateService(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req profiles.ServiceInput
	if !bindJSON(c, &req) {
		return
	}

	svc, err := h.profiles.UpdateService(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, svc)
}

// DeleteService removes one of the caller's services
// DELETE /api/v1/profile/services/:id
func (h *Handlers) DeleteService(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.profiles.DeleteService(c.Request.Context(), user, c.Param("id")); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondMessage(c, "Service deleted")
}

// ToggleFollow follows the user, or unfollows when already following
// POST /api/v1/profile/:username/follow
func (h *Handlers) ToggleFollow(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	following, followers, err := h.profiles.ToggleFollow(c.Request.Context(), user, c.Param("username"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"following": following, "followers": followers})
}
