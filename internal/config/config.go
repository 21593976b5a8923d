package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bizfeed backend
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Notifications NotificationConfig
	Telemetry     TelemetryConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	CORSOrigins []string
}

// DatabaseConfig holds either a full URL or discrete connection parts.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

// RedisConfig is optional; an empty Host disables caching and rate limiting.
type RedisConfig struct {
	Host              string
	Port              string
	Password          string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Storage drivers
const (
	StorageDatabase = "database"
	StorageS3       = "s3"
	StorageMinio    = "minio"
)

type StorageConfig struct {
	Driver         string // database | s3 | minio
	AWSRegion      string
	AWSBucket      string
	CDNBaseURL     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadMB    int64
}

type NotificationConfig struct {
	Dispatch     string // direct | async | kafka
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	Workers      int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SamplingRate float64
	ServiceName  string
}

// Enabled reports whether a Redis host was configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port for the Redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "" || c.Server.Environment == "development"
}

// Load reads configuration from the environment and an optional config.yaml.
// Environment variables win over file values; defaults fill the rest.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bizfeed")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("PORT"),
			Environment: v.GetString("ENVIRONMENT"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			JWTExpiry: v.GetDuration("JWT_EXPIRES_IN"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Redis: RedisConfig{
			Host:              v.GetString("REDIS_HOST"),
			Port:              v.GetString("REDIS_PORT"),
			Password:          v.GetString("REDIS_PASSWORD"),
			RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Storage: StorageConfig{
			Driver:         strings.ToLower(v.GetString("STORAGE_DRIVER")),
			AWSRegion:      v.GetString("AWS_REGION"),
			AWSBucket:      v.GetString("AWS_BUCKET"),
			CDNBaseURL:     v.GetString("CDN_BASE_URL"),
			MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
			MinioBucket:    v.GetString("MINIO_BUCKET"),
			MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
			MaxUploadMB:    v.GetInt64("MAX_UPLOAD_MB"),
		},
		Notifications: NotificationConfig{
			Dispatch:     strings.ToLower(v.GetString("NOTIFICATION_DISPATCH")),
			KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
			KafkaTopic:   v.GetString("KAFKA_NOTIFICATION_TOPIC"),
			KafkaGroupID: v.GetString("KAFKA_GROUP_ID"),
			Workers:      v.GetInt("NOTIFICATION_WORKERS"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8787")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "bizfeed")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRES_IN", "168h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "server.log")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_REQUESTS", 300)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("STORAGE_DRIVER", "database")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("MINIO_BUCKET", "bizfeed-media")
	v.SetDefault("MAX_UPLOAD_MB", 50)
	v.SetDefault("NOTIFICATION_DISPATCH", "direct")
	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "bizfeed.notifications")
	v.SetDefault("KAFKA_GROUP_ID", "bizfeed-notifier")
	v.SetDefault("NOTIFICATION_WORKERS", 4)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL_SAMPLING_RATE", 0.1)
	v.SetDefault("OTEL_SERVICE_NAME", "bizfeed-backend")
}

// Validate fails fast on settings the server cannot run without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Auth.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}

	switch c.Storage.Driver {
	case StorageDatabase:
	case StorageS3:
		if c.Storage.AWSBucket == "" {
			return errors.New("AWS_BUCKET is required for the s3 storage driver")
		}
	case StorageMinio:
		if c.Storage.MinioEndpoint == "" {
			return errors.New("MINIO_ENDPOINT is required for the minio storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Notifications.Dispatch {
	case "direct", "async":
	case "kafka":
		if len(c.Notifications.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for kafka notification dispatch")
		}
	default:
		return fmt.Errorf("unknown NOTIFICATION_DISPATCH %q", c.Notifications.Dispatch)
	}

	if c.Storage.MaxUploadMB <= 0 {
		c.Storage.MaxUploadMB = 50
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
