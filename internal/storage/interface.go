// Package storage keeps uploaded post media either as blobs in the database
// or as objects in S3-compatible storage.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zfogg/bizfeed/backend/internal/config"
)

// ObjectStore puts media bytes somewhere with a public URL
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	CheckBucketAccess(ctx context.Context) error
}

// Ensure both drivers implement ObjectStore
var (
	_ ObjectStore = (*S3Store)(nil)
	_ ObjectStore = (*MinioStore)(nil)
)

// NewObjectStore builds the store for cfg.Driver. The database driver keeps
// bytes in post_images/post_videos and has no object store, so it returns nil.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "", config.StorageDatabase:
		return nil, nil
	case config.StorageS3:
		store, err := NewS3Store(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageMinio:
		store, err := NewMinioStore(ctx, MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			BaseURL:   cfg.CDNBaseURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// MediaKey lays objects out as media/{yyyy}/{mm}/{userID}/{uuid}{ext}
func MediaKey(now time.Time, userID, ext string) string {
	return fmt.Sprintf("media/%d/%02d/%s/%s%s",
		now.Year(), now.Month(), userID, uuid.New().String(), strings.ToLower(ext))
}

// extensionFor prefers the uploaded filename's extension and falls back to
// one implied by the content type.
func extensionFor(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	switch strings.ToLower(contentType) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	default:
		return ""
	}
}

// getContentType returns the MIME type for a file extension
func getContentType(extension string) string {
	switch strings.ToLower(extension) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	default:
		return octetStream
	}
}

func publicURL(baseURL, key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), key)
}
