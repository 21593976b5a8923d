package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/zfogg/bizfeed/backend/internal/auth"
	"github.com/zfogg/bizfeed/backend/internal/cache"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/database"
	"github.com/zfogg/bizfeed/backend/internal/directory"
	"github.com/zfogg/bizfeed/backend/internal/engagement"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/handlers"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/messaging"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/middleware"
	"github.com/zfogg/bizfeed/backend/internal/notifications"
	"github.com/zfogg/bizfeed/backend/internal/profiles"
	"github.com/zfogg/bizfeed/backend/internal/queue"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/storage"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== BizFeed server starting ===",
		zap.String("environment", cfg.Server.Environment),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("dispatch", cfg.Notifications.Dispatch),
	)

	ctx := context.Background()
	metrics.Initialize()

	tp, err := telemetry.InitTracer(ctx, cfg.Telemetry, cfg.Server.Environment)
	if err != nil {
		logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	var plugins []gorm.Plugin
	if tp != nil {
		plugins = append(plugins, telemetry.GORMTracingPlugin())
	}

	// Initialize database
	if err := database.Initialize(cfg.Database, cfg.IsDevelopment(), plugins...); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}
	db := database.DB

	// Redis backs the category cache and the rate limiter; both are skipped
	// without it.
	var redisClient *cache.RedisClient
	var categoryCache directory.Cache
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		categoryCache = redisClient
	} else {
		logger.Log.Info("Redis not configured, caching and rate limiting disabled")
	}

	objects, err := storage.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	notificationService := notifications.NewService(db)

	var dispatcher notifications.Dispatcher
	switch cfg.Notifications.Dispatch {
	case "async":
		pool := queue.NewPool("notifications", cfg.Notifications.Workers, 256)
		pool.Start()
		defer pool.Stop()
		dispatcher = notifications.NewAsyncDispatcher(notificationService, pool)
	case "kafka":
		producer := queue.NewProducer(cfg.Notifications.KafkaBrokers, cfg.Notifications.KafkaTopic, notifications.PublishFailed)
		defer producer.Close()
		dispatcher = notifications.NewKafkaDispatcher(producer)
	default:
		dispatcher = notifications.NewDirectDispatcher(notificationService)
	}
	notifier := notifications.NewNotifier(dispatcher, users, posts)

	authService := auth.NewService(users, []byte(cfg.Auth.JWTSecret), cfg.Auth.JWTExpiry)
	assembler := feed.NewAssembler(db)

	h := handlers.NewHandlers(handlers.Services{
		Auth:          authService,
		Feed:          assembler,
		Engagement:    engagement.NewService(db, posts, assembler, notifier),
		Notifications: notificationService,
		Messaging:     messaging.NewService(db, users, notifier),
		Profiles:      profiles.NewService(db, users, posts, assembler, notifier),
		Directory:     directory.NewService(db, categoryCache),
		Media:         storage.NewMediaService(db, objects, cfg.Storage.MaxUploadMB<<20),
	})
	h.AddHealthCheck(handlers.HealthCheck{Name: "database", Check: database.Health})
	if redisClient != nil {
		h.AddHealthCheck(handlers.HealthCheck{Name: "redis", Check: redisClient.Ping})
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if tp != nil {
		r.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName))
		r.Use(middleware.SpanEnrichmentMiddleware())
	}

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 || (len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	r.Use(cors.New(corsConfig))

	// Media bytes are already compressed and need byte ranges intact
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/images/", "/videos/"})))

	h.RegisterRoot(r)

	api := r.Group("/api/v1")
	if redisClient != nil {
		api.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow))
	}
	h.RegisterAPI(api, middleware.RequireAuth(authService), middleware.OptionalAuth(authService))

	port := strings.TrimPrefix(cfg.Server.Port, ":")
	if port == "" {
		port = "8787"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("BizFeed backend listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}
