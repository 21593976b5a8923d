package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/bizfeed/backend/internal/messaging"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

// ListConversations returns the caller's conversations, most recent first
// GET /api/v1/messages/conversations
func (h *Handlers) ListConversations(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	convs, err := h.messaging.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondList(c, convs, gin.H{"count": len(convs)})
}

// GetConversationWith returns the conversation with another user, or null
// GET /api/v1/messages/conversation/:userRef
func (h *Handlers) GetConversationWith(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	conv, err := h.messaging.GetConversationWith(c.Request.Context(), user.ID, c.Param("userRef"))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	// data is null when the two users have never exchanged a message
	util.RespondList(c, conv, nil)
}

// GetUnreadCount sums the caller's unread counters
// GET /api/v1/messages/unread/count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	count, err := h.messaging.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"unreadCount": count})
}

// SendMessage sends a direct message
// POST /api/v1/messages/send
func (h *Handlers) SendMessage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req messaging.SendInput
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messaging.Send(c.Request.Context(), user, req)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, msg)
}

// GetMessages returns a conversation's messages and acknowledges them
// GET /api/v1/messages/:conversationId?limit=
func (h *Handlers) GetMessages(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	limit := util.ClampLimit(c.Query("limit"), messaging.DefaultLimit, messaging.MaxLimit)
	msgs, err := h.messaging.GetMessages(c.Request.Context(), c.Param("conversationId"), user.ID, limit)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondList(c, msgs, gin.H{"count": len(msgs), "limit": limit})
}
