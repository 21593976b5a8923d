package database

import (
	"context"
	"fmt"
	"time"

	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// DSN builds the postgres connection string from config
func DSN(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

// Initialize creates and configures the database connection and installs
// any plugins (tracing) on it.
func Initialize(cfg config.DatabaseConfig, verbose bool, plugins ...gorm.Plugin) error {
	gormLog := gormlogger.Default.LogMode(gormlogger.Warn)
	if verbose {
		gormLog = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormLog,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, plugin := range plugins {
		if err := db.Use(plugin); err != nil {
			return fmt.Errorf("failed to install %s: %w", plugin.Name(), err)
		}
	}

	DB = db
	logger.Log.Info("Database connected", zap.String("host", cfg.Host), zap.String("name", cfg.Name))

	return nil
}

// Migrate runs auto-migration against the global connection
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB runs auto-migration and index creation on any gorm handle.
// The schema is dialect-neutral so tests can migrate SQLite with it.
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes adds the composite indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",

		// Feed: newest active posts, optionally by category
		"CREATE INDEX IF NOT EXISTS idx_posts_active_created ON posts (is_active, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_posts_category_created ON posts (category, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_comments_post_created ON comments (post_id, created_at)",

		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_created ON notifications (recipient_username, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread ON notifications (recipient_username, is_read)",

		"CREATE INDEX IF NOT EXISTS idx_messages_conversation_created ON messages (conversation_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages (recipient_id, is_read)",

		"CREATE INDEX IF NOT EXISTS idx_service_providers_rating ON service_providers (rating DESC, review_count DESC)",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
