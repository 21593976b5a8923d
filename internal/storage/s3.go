package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store puts media objects in an AWS S3 bucket
type S3Store struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

// NewS3Store loads the default AWS credential chain for region. baseURL is
// the CDN or bucket origin objects are served from.
func NewS3Store(ctx context.Context, region, bucket, baseURL string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		region:  region,
		baseURL: baseURL,
	}, nil
}

// Put uploads data under key and returns its public URL
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		// Keys are unique per upload so objects never change
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return publicURL(s.baseURL, key), nil
}

// Delete removes an object from S3
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (s *S3Store) CheckBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", s.bucket, err)
	}
	return nil
}
