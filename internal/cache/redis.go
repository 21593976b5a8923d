// Package cache wraps the shared Redis client used for rate limiting and
// short-lived read caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/bizfeed/backend/internal/config"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings Redis
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.ErrorWithFields("Failed to connect to Redis", err)
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}

	logger.Log.Info("Redis client connected", zap.String("address", cfg.Addr()))
	return &RedisClient{client: client}, nil
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetJSON decodes key into dst. found is false on a miss.
func (rc *RedisClient) GetJSON(ctx context.Context, name, key string, dst interface{}) (bool, error) {
	raw, err := rc.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A corrupt entry behaves like a miss and gets overwritten
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return false, nil
	}
	metrics.Get().CacheHitsTotal.WithLabelValues(name).Inc()
	return true, nil
}

// SetJSON stores v under key for ttl
func (rc *RedisClient) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return rc.client.Set(ctx, key, raw, ttl).Err()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// IncrWindow counts a hit against key and returns the count within the
// current fixed window. The window starts with the first hit.
func (rc *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
