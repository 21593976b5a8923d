package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BaseURL   string
}

// MinioStore puts media objects in a MinIO (or any S3-compatible) bucket
type MinioStore struct {
	cfg    MinioConfig
	client *minio.Client
}

// NewMinioStore connects and makes sure the bucket exists
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.BaseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	s := &MinioStore{cfg: cfg, client: client}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: "public, max-age=31536000",
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}
	return publicURL(s.cfg.BaseURL, key), nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioStore) CheckBucketAccess(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("cannot access bucket %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.cfg.Bucket)
	}
	return nil
}
