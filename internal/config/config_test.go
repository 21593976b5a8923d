package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Server.Port)
	assert.Equal(t, 168*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, "database", cfg.Storage.Driver)
	assert.Equal(t, "direct", cfg.Notifications.Dispatch)
	assert.Equal(t, 4, cfg.Notifications.Workers)
	assert.Equal(t, int64(50), cfg.Storage.MaxUploadMB)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development gets a fallback secret")
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("NOTIFICATION_DISPATCH", "kafka")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.JWTExpiry)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Notifications.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:        ServerConfig{Environment: "production"},
			Auth:          AuthConfig{JWTSecret: "x", JWTExpiry: time.Hour},
			Storage:       StorageConfig{Driver: "database", MaxUploadMB: 10},
			Notifications: NotificationConfig{Dispatch: "direct"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("production requires secret", func(t *testing.T) {
		cfg := base()
		cfg.Auth.JWTSecret = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("s3 requires bucket", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Driver = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("kafka requires brokers", func(t *testing.T) {
		cfg := base()
		cfg.Notifications.Dispatch = "kafka"
		assert.Error(t, cfg.Validate())
	})

	t.Run("async needs nothing extra", func(t *testing.T) {
		cfg := base()
		cfg.Notifications.Dispatch = "async"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Driver = "ftp"
		assert.Error(t, cfg.Validate())
	})
}
