package handlers

import (
	"github.com/zfogg/bizfeed/backend/internal/auth"
	"github.com/zfogg/bizfeed/backend/internal/directory"
	"github.com/zfogg/bizfeed/backend/internal/engagement"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/messaging"
	"github.com/zfogg/bizfeed/backend/internal/notifications"
	"github.com/zfogg/bizfeed/backend/internal/profiles"
	"github.com/zfogg/bizfeed/backend/internal/storage"
)

// Services are the domain services the HTTP layer fronts
type Services struct {
	Auth          auth.AuthServiceInterface
	Feed          *feed.Assembler
	Engagement    *engagement.Service
	Notifications *notifications.Service
	Messaging     *messaging.Service
	Profiles      *profiles.Service
	Directory     *directory.Service
	Media         *storage.MediaService
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          auth.AuthServiceInterface
	feed          *feed.Assembler
	engagement    *engagement.Service
	notifications *notifications.Service
	messaging     *messaging.Service
	profiles      *profiles.Service
	directory     *directory.Service
	media         *storage.MediaService
	checks        []HealthCheck
}

// NewHandlers creates a new handlers instance
func NewHandlers(s Services) *Handlers {
	return &Handlers{
		auth:          s.Auth,
		feed:          s.Feed,
		engagement:    s.Engagement,
		notifications: s.Notifications,
		messaging:     s.Messaging,
		profiles:      s.Profiles,
		directory:     s.Directory,
		media:         s.Media,
	}
}

// AddHealthCheck registers a dependency reported by GET /health
func (h *Handlers) AddHealthCheck(check HealthCheck) {
	h.checks = append(h.checks, check)
}
