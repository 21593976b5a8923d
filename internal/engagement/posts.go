package engagement

import (
	"context"
	"fmt"
	"strings"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	imagePathPrefix = "/images/"
	videoPathPrefix = "/videos/"
)

// CreatePostInput carries the fields of a new post. Image and video
// references of the form /images/{id} or /videos/{id} attach earlier
// uploads; anything else is stored as an external URL.
type CreatePostInput struct {
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Video       string   `json:"video"`
	Tags        []string `json:"tags"`
}

// CreatePost stores the post with its media and tags in one transaction
// and returns it as the feed renders it.
func (s *Service) CreatePost(ctx context.Context, actor *models.User, in CreatePostInput) (*feed.PostView, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, apierrors.ValidationError("description", "description is required")
	}

	images := compact(in.Images)
	video := strings.TrimSpace(in.Video)
	if len(images) == 0 && video == "" {
		return nil, apierrors.ValidationError("images", "at least one image or video is required")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "all"
	}

	post := &models.Post{
		UserID:   actor.ID,
		Caption:  description,
		Category: category,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		for _, ref := range images {
			if err := attachImage(tx, post.ID, actor.ID, ref); err != nil {
				return err
			}
		}
		if video != "" {
			if err := attachVideo(tx, post.ID, actor.ID, video); err != nil {
				return err
			}
		}

		for _, tag := range postTags(in.Tags, description) {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.PostTag{PostID: post.ID, Tag: tag}).Error
			if err != nil {
				return fmt.Errorf("tag post: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Post created",
		logger.WithPostID(post.ID),
		logger.WithUserID(actor.ID),
		zap.Int("images", len(images)),
		zap.Bool("video", video != ""),
	)

	return s.feed.GetPost(ctx, post.ID)
}

// attachImage links an uploaded image row or records an external URL.
// A reference to an unknown or already attached upload is skipped.
func attachImage(tx *gorm.DB, postID, userID, ref string) error {
	if id, ok := mediaID(ref, imagePathPrefix); ok {
		res := tx.Model(&models.PostImage{}).
			Where("id = ? AND post_id IS NULL", id).
			Update("post_id", postID)
		if res.Error != nil {
			return fmt.Errorf("attach image: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			logger.Log.Warn("Image reference not attachable", zap.String("image_id", id), logger.WithPostID(postID))
		}
		return nil
	}

	// Object-store uploads are claimed by URL
	res := tx.Model(&models.PostImage{}).
		Where("image_url = ? AND user_id = ? AND post_id IS NULL", ref, userID).
		Update("post_id", postID)
	if res.Error != nil {
		return fmt.Errorf("attach image url: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	pid := postID
	if err := tx.Create(&models.PostImage{PostID: &pid, UserID: userID, ImageURL: ref}).Error; err != nil {
		return fmt.Errorf("store image url: %w", err)
	}
	return nil
}

func attachVideo(tx *gorm.DB, postID, userID, ref string) error {
	if id, ok := mediaID(ref, videoPathPrefix); ok {
		res := tx.Model(&models.PostVideo{}).
			Where("id = ? AND post_id IS NULL", id).
			Update("post_id", postID)
		if res.Error != nil {
			return fmt.Errorf("attach video: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			logger.Log.Warn("Video reference not attachable", zap.String("video_id", id), logger.WithPostID(postID))
		}
		return nil
	}

	// Object-store uploads are claimed by URL
	res := tx.Model(&models.PostVideo{}).
		Where("video_url = ? AND user_id = ? AND post_id IS NULL", ref, userID).
		Update("post_id", postID)
	if res.Error != nil {
		return fmt.Errorf("attach video url: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	pid := postID
	if err := tx.Create(&models.PostVideo{PostID: &pid, UserID: userID, VideoURL: ref}).Error; err != nil {
		return fmt.Errorf("store video url: %w", err)
	}
	return nil
}

// mediaID extracts {id} from a serving path such as /images/{id} or
// /api/images/{id}. Absolute URLs to other hosts are not upload references.
func mediaID(ref, prefix string) (string, bool) {
	if strings.Contains(ref, "://") {
		return "", false
	}
	i := strings.LastIndex(ref, prefix)
	if i < 0 {
		return "", false
	}
	id := strings.Trim(ref[i+len(prefix):], "/")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// postTags merges explicit tags with #hashtags in the description,
// lowercased and unique.
func postTags(explicit []string, description string) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || len(tag) > 64 || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, tag := range explicit {
		add(tag)
	}
	for _, tag := range util.ExtractHashtags(description) {
		add(tag)
	}
	return tags
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
