package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/notifications"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// recipient is the caller's username, or "" for anonymous callers who only
// see broadcasts.
func recipient(c *gin.Context) string {
	if user, ok := util.OptionalUser(c); ok {
		return user.Username
	}
	return ""
}

// GetNotifications lists notifications visible to the caller
// GET /api/v1/notifications?type=&unread=&limit=&offset=
func (h *Handlers) GetNotifications(c *gin.Context) {
	limit, offset := page(c, notifications.DefaultLimit, notifications.MaxLimit)

	result, err := h.notifications.List(c.Request.Context(), notifications.Filter{
		RecipientUsername: recipient(c),
		Type:              c.Query("type"),
		Unread:            util.ParseBool(c.Query("unread")),
		Limit:             limit,
		Offset:            offset,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}

	util.RespondList(c, result.Items, gin.H{
		"unreadCount": result.UnreadCount,
		"count":       len(result.Items),
		"limit":       limit,
		"offset":      offset,
	})
}

// GetNotification returns one notification
// GET /api/v1/notifications/:id
func (h *Handlers) GetNotification(c *gin.Context) {
	view, err := h.notifications.Get(c.Request.Context(), c.Param("id"), recipient(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, view)
}

// MarkNotificationRead marks one notification as read
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	view, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), user.Username)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, view)
}

// MarkAllNotificationsRead marks every visible notification as read
// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), user.Username)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"updated": updated})
}

// DeleteNotification removes one notification
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), user.Username); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondMessage(c, "Notification deleted")
}
