package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Kind is the media family of an upload
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

const (
	defaultImageMime = "image/jpeg"
	defaultVideoMime = "video/mp4"
	octetStream      = "application/octet-stream"
)

var (
	ErrUnsupportedMedia = apierrors.ValidationError("media", "only image and video uploads are allowed")
	ErrEmptyUpload      = apierrors.ValidationError("media", "no file uploaded")
	ErrMediaNotFound    = apierrors.NotFound("media")
)

// Upload is one file received from a client
type Upload struct {
	UserID      string
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult describes a stored upload. URL is what a post references.
type UploadResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Kind     Kind   `json:"type"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Key      string `json:"key,omitempty"`
}

// Blob is a database-stored media file ready to serve
type Blob struct {
	Data      []byte
	MimeType  string
	CreatedAt time.Time
}

// MediaService stores uploads and serves database blobs
type MediaService struct {
	db      *gorm.DB
	objects ObjectStore
	maxSize int64
	now     func() time.Time
}

// NewMediaService stores bytes in objects, or in the database when objects
// is nil. maxSize is in bytes.
func NewMediaService(db *gorm.DB, objects ObjectStore, maxSize int64) *MediaService {
	return &MediaService{db: db, objects: objects, maxSize: maxSize, now: time.Now}
}

// MaxSize is the upload cap in bytes
func (s *MediaService) MaxSize() int64 {
	return s.maxSize
}

// KindOf classifies an upload. A missing or generic content type is
// resolved from the filename extension, then by sniffing data.
func KindOf(contentType, filename string, data []byte) (Kind, string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == octetStream {
		ct = getContentType(filepath.Ext(filename))
	}
	if ct == octetStream {
		ct = strings.SplitN(http.DetectContentType(data), ";", 2)[0]
	}
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage, ct, true
	case strings.HasPrefix(ct, "video/"):
		return KindVideo, ct, true
	default:
		return "", ct, false
	}
}

// Store saves an upload as an unattached post_images or post_videos row.
// A post claims it later through the returned URL.
func (s *MediaService) Store(ctx context.Context, up Upload) (*UploadResult, error) {
	if len(up.Data) == 0 {
		return nil, ErrEmptyUpload
	}
	if s.maxSize > 0 && int64(len(up.Data)) > s.maxSize {
		return nil, apierrors.TooLarge(fmt.Sprintf("file exceeds the %d MB upload limit", s.maxSize>>20))
	}
	kind, mime, ok := KindOf(up.ContentType, up.Filename, up.Data)
	if !ok {
		return nil, ErrUnsupportedMedia
	}

	result := &UploadResult{Kind: kind, MimeType: mime, Size: int64(len(up.Data))}

	var objectURL string
	if s.objects != nil {
		ext := extensionFor(up.Filename, mime)
		result.Key = MediaKey(s.now().UTC(), up.UserID, ext)
		url, err := s.objects.Put(ctx, result.Key, mime, up.Data)
		if err != nil {
			return nil, err
		}
		objectURL = url
	}

	var err error
	switch kind {
	case KindImage:
		row := &models.PostImage{UserID: up.UserID, MimeType: mime, FileSize: result.Size, ImageURL: objectURL}
		if objectURL == "" {
			row.ImageData = up.Data
		}
		err = s.db.WithContext(ctx).Create(row).Error
		result.ID = row.ID
	case KindVideo:
		row := &models.PostVideo{UserID: up.UserID, MimeType: mime, FileSize: result.Size, VideoURL: objectURL}
		if objectURL == "" {
			row.VideoData = up.Data
		}
		err = s.db.WithContext(ctx).Create(row).Error
		result.ID = row.ID
	}
	if err != nil {
		if result.Key != "" {
			if delErr := s.objects.Delete(ctx, result.Key); delErr != nil {
				logger.WarnWithFields("Failed to remove orphaned object", delErr, zap.String("key", result.Key))
			}
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}

	driver := "object_store"
	result.URL = objectURL
	if result.URL == "" {
		driver = "database"
		result.URL = ServingPath(kind, result.ID)
	}
	metrics.Get().MediaUploadsTotal.WithLabelValues(string(kind), driver).Inc()

	logger.Log.Info("Media uploaded",
		logger.WithUserID(up.UserID),
		zap.String("media_id", result.ID),
		zap.String("kind", string(kind)),
		zap.Int64("size", result.Size),
	)
	return result, nil
}

// ServingPath is the endpoint that streams a database blob
func ServingPath(kind Kind, id string) string {
	return fmt.Sprintf("/%ss/%s", kind, id)
}

// Blob loads a database-stored file. Rows that only hold an external URL
// are not served.
func (s *MediaService) Blob(ctx context.Context, kind Kind, id string) (*Blob, error) {
	var (
		data      []byte
		mime      string
		createdAt time.Time
		err       error
	)
	switch kind {
	case KindImage:
		var row models.PostImage
		err = s.db.WithContext(ctx).First(&row, "id = ?", id).Error
		data, mime, createdAt = row.ImageData, firstNonEmpty(row.MimeType, defaultImageMime), row.CreatedAt
	case KindVideo:
		var row models.PostVideo
		err = s.db.WithContext(ctx).First(&row, "id = ?", id).Error
		data, mime, createdAt = row.VideoData, firstNonEmpty(row.MimeType, defaultVideoMime), row.CreatedAt
	default:
		return nil, ErrMediaNotFound
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if len(data) == 0 {
		return nil, ErrMediaNotFound
	}
	return &Blob{Data: data, MimeType: mime, CreatedAt: createdAt}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
