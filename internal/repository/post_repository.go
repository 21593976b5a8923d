package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"gorm.io/gorm"
)

// PostRepository handles post rows and the post-scoped child tables.
// Post ids are always compared in their text form so legacy integer ids
// stored in child tables keep matching.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	// FindPostID returns the stored id matching ref exactly
	FindPostID(ctx context.Context, ref string) (string, error)
	// ResolvePostID returns the stored id for ref, trying it verbatim and
	// then its numeric form. Only comment paths accept the numeric form.
	ResolvePostID(ctx context.Context, ref string) (string, error)
	GetPostOwner(ctx context.Context, postID string) (*models.User, error)
	DeletePost(ctx context.Context, postID string) error
	CountPosts(ctx context.Context) (int64, error)
	CountPostsByUser(ctx context.Context, userID string) (int64, error)
	// RatingSummary averages every rating across the user's posts
	RatingSummary(ctx context.Context, userID string) (avg float64, count int64, err error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.UserID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("CAST(id AS TEXT) = ?", postID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	return &post, nil
}

func (r *postRepository) FindPostID(ctx context.Context, ref string) (string, error) {
	id, ok, err := r.lookupPostID(ctx, ref)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrPostNotFound
	}
	return id, nil
}

func (r *postRepository) ResolvePostID(ctx context.Context, ref string) (string, error) {
	candidates := []string{ref}
	if numeric := util.NumericPostID(ref); numeric != "" && numeric != ref {
		candidates = append(candidates, numeric)
	}

	for _, candidate := range candidates {
		id, ok, err := r.lookupPostID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return "", ErrPostNotFound
}

func (r *postRepository) lookupPostID(ctx context.Context, ref string) (string, bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("CAST(id AS TEXT) = ?", ref).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return "", false, fmt.Errorf("resolve post %q: %w", ref, err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func (r *postRepository) GetPostOwner(ctx context.Context, postID string) (*models.User, error) {
	var owner models.User
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN posts ON posts.user_id = users.id").
		Where("CAST(posts.id AS TEXT) = ?", postID).
		Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post owner: %w", err)
	}
	return &owner, nil
}

// DeletePost removes the post and every child row in one transaction
func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		children := []interface{}{
			&models.PostLike{},
			&models.PostRating{},
			&models.PostTag{},
			&models.Comment{},
			&models.PostImage{},
			&models.PostVideo{},
		}
		for _, child := range children {
			if err := tx.Where("CAST(post_id AS TEXT) = ?", postID).Delete(child).Error; err != nil {
				return fmt.Errorf("delete %T rows: %w", child, err)
			}
		}

		res := tx.Where("CAST(id AS TEXT) = ?", postID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

func (r *postRepository) CountPosts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *postRepository) CountPostsByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *postRepository) RatingSummary(ctx context.Context, userID string) (float64, int64, error) {
	var row struct {
		Avg   *float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Table("post_ratings pr").
		Select("AVG(pr.rating) AS avg, COUNT(*) AS count").
		Joins("JOIN posts p ON CAST(p.id AS TEXT) = CAST(pr.post_id AS TEXT)").
		Where("p.user_id = ? AND p.is_active = ?", userID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	if row.Avg == nil {
		return 0, row.Count, nil
	}
	return *row.Avg, row.Count, nil
}
