package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoot mounts the unversioned routes: health, metrics and media
// streaming.
func (h *Handlers) RegisterRoot(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/images/:id", h.ServeImage)
	r.GET("/videos/:id", h.ServeVideo)
}

// RegisterAPI mounts the versioned API on group. requireAuth rejects
// anonymous callers; optionalAuth only identifies them.
func (h *Handlers) RegisterAPI(api gin.IRouter, requireAuth, optionalAuth gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/login", h.Login)
		authGroup.GET("/verify", requireAuth, h.VerifyToken)
		authGroup.GET("/me", requireAuth, h.Me)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", h.ListPosts)
		posts.POST("", requireAuth, h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.DELETE("/:id", requireAuth, h.DeletePost)
		posts.PUT("/:id/like", requireAuth, h.ToggleLike)
		posts.PUT("/:id/rate", requireAuth, h.RatePost)
		posts.POST("/:id/comment", requireAuth, h.AddComment)
		posts.GET("/:id/comments", h.GetComments)
	}

	notifs := api.Group("/notifications")
	{
		notifs.GET("", optionalAuth, h.GetNotifications)
		notifs.PUT("/read-all", requireAuth, h.MarkAllNotificationsRead)
		notifs.GET("/:id", optionalAuth, h.GetNotification)
		notifs.PUT("/:id/read", requireAuth, h.MarkNotificationRead)
		notifs.DELETE("/:id", requireAuth, h.DeleteNotification)
	}

	messages := api.Group("/messages", requireAuth)
	{
		messages.GET("/conversations", h.ListConversations)
		messages.GET("/conversation/:userRef", h.GetConversationWith)
		messages.GET("/unread/count", h.GetUnreadCount)
		messages.POST("/send", h.SendMessage)
		messages.GET("/:conversationId", h.GetMessages)
	}

	profile := api.Group("/profile")
	{
		profile.PUT("", requireAuth, h.UpdateProfile)
		profile.POST("/services", requireAuth, h.AddService)
		profile.PUT("/services/:id", requireAuth, h.UpdateService)
		profile.DELETE("/services/:id", requireAuth, h.DeleteService)
		profile.GET("/:username", optionalAuth, h.GetProfile)
		profile.GET("/:username/posts", h.GetUserPosts)
		profile.GET("/:username/services", h.GetServices)
		profile.POST("/:username/follow", requireAuth, h.ToggleFollow)
	}

	providers := api.Group("/providers")
	{
		providers.GET("", h.ListProviders)
		providers.GET("/:id", h.GetProvider)
		providers.POST("", requireAuth, h.CreateProvider)
	}

	api.GET("/categories", h.ListCategories)
	api.POST("/upload", requireAuth, h.Upload)
}
