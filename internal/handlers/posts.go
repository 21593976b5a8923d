package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/engagement"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// ListPosts returns a page of the feed
// GET /api/v1/posts?category=&limit=&offset=
func (h *Handlers) ListPosts(c *gin.Context) {
	limit, offset := page(c, feed.DefaultLimit, feed.MaxLimit)
	category := c.Query("category")

	posts, err := h.feed.ListPosts(c.Request.Context(), feed.Filter{
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	util.RespondList(c, posts, gin.H{
		"count":  len(posts),
		"limit":  limit,
		"offset": offset,
	})
}

// CreatePost publishes a post for the authenticated user
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req engagement.CreatePostInput
	if !bindJSON(c, &req) {
		return
	}

	post, err := h.engagement.CreatePost(c.Request.Context(), user, req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, post)
}

// GetPost returns one post
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.feed.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, post)
}

// DeletePost removes a post owned by the caller
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.engagement.DeletePost(c.Request.Context(), c.Param("id"), user); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondMessage(c, "Post deleted")
}

// ToggleLike likes the post, or unlikes it when already liked
// PUT /api/v1/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	post, liked, err := h.engagement.ToggleLike(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondList(c, post, gin.H{"liked": liked})
}

// RatePost records the caller's star rating
// PUT /api/v1/posts/:id/rate
func (h *Handlers) RatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Rating *float64 `json:"rating"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Rating == nil {
		util.RespondValidationError(c, "rating", "rating is required")
		return
	}

	post, err := h.engagement.RatePost(c.Request.Context(), c.Param("id"), user, *req.Rating)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, post)
}

// AddComment comments on a post
// POST /api/v1/posts/:id/comment
func (h *Handlers) AddComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		CommentText string `json:"commentText"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.engagement.AddComment(c.Request.Context(), c.Param("id"), user, req.CommentText)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, comment)
}

// GetComments lists a post's active comments oldest-first
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	comments, err := h.engagement.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, comments)
}
