// Package backend provides the BizFeed API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Signup, login and JWT verification
// - internal/feed: Post feed assembly
// - internal/engagement: Likes, ratings and comments
// - internal/notifications: Notification storage and dispatch
// - internal/messaging: Direct conversations and messages
// - internal/profiles: Business profiles, services and follows
// - internal/directory: Service provider directory and categories
// - internal/storage: Media storage (database, S3, MinIO)
// - internal/database: Database connection and migrations
// - internal/middleware: HTTP middleware (auth, rate limiting, metrics, tracing)
// - internal/queue: Worker pool and Kafka transport
// - internal/seed: Development data seeding

// See the individual package documentation for detailed API reference.
package backend
