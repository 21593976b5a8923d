// Package engagement implements the post mutations: likes, ratings,
// comments and the post lifecycle. Every mutation returns state recomputed
// by the feed assembler and fires its notification best-effort.
package engagement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidRating = apierrors.ValidationError("rating", "rating must be between 0 and 5")
	ErrNotPostOwner  = apierrors.Forbidden("only the post owner can delete this post")
)

// Notifier is the set of events engagement emits
type Notifier interface {
	PostLiked(ctx context.Context, postID string, actor *models.User)
	PostRated(ctx context.Context, postID string, actor *models.User, rating float64)
	PostCommented(ctx context.Context, postID string, actor *models.User, text string)
	Mentioned(ctx context.Context, postID string, actor *models.User, usernames []string)
}

type Service struct {
	db       *gorm.DB
	posts    repository.PostRepository
	feed     *feed.Assembler
	notifier Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, posts repository.PostRepository, assembler *feed.Assembler, notifier Notifier) *Service {
	return &Service{
		db:       db,
		posts:    posts,
		feed:     assembler,
		notifier: notifier,
		now:      time.Now,
	}
}

// ToggleLike unlikes when the (post, user) row exists and likes otherwise.
// The returned flag is the caller's like state after the call.
func (s *Service) ToggleLike(ctx context.Context, postRef string, actor *models.User) (*feed.PostView, bool, error) {
	ctx, span := telemetry.TraceEngagement(ctx, "like", postRef, actor.ID)
	defer span.End()

	postID, err := s.posts.FindPostID(ctx, postRef)
	if err != nil {
		return nil, false, err
	}

	res := s.db.WithContext(ctx).
		Where("CAST(post_id AS TEXT) = ? AND user_id = ?", postID, actor.ID).
		Delete(&models.PostLike{})
	if res.Error != nil {
		return nil, false, fmt.Errorf("unlike post: %w", res.Error)
	}

	liked := res.RowsAffected == 0
	if liked {
		ins := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.PostLike{PostID: postID, UserID: actor.ID})
		if ins.Error != nil {
			return nil, false, fmt.Errorf("like post: %w", ins.Error)
		}
		// A concurrent like from the same user already inserted the row
		if ins.RowsAffected > 0 {
			metrics.Get().LikesToggledTotal.WithLabelValues("like").Inc()
			s.notifier.PostLiked(ctx, postID, actor)
		}
	} else {
		metrics.Get().LikesToggledTotal.WithLabelValues("unlike").Inc()
	}

	logger.Log.Debug("Like toggled",
		logger.WithPostID(postID),
		logger.WithUserID(actor.ID),
		zap.Bool("liked", liked),
	)

	post, err := s.feed.GetPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return post, liked, nil
}

// RatePost upserts the caller's rating. The returned post carries the
// recomputed average and count.
func (s *Service) RatePost(ctx context.Context, postRef string, actor *models.User, rating float64) (*feed.PostView, error) {
	ctx, span := telemetry.TraceEngagement(ctx, "rate", postRef, actor.ID)
	defer span.End()

	if math.IsNaN(rating) || rating < 0 || rating > 5 {
		return nil, ErrInvalidRating
	}

	postID, err := s.posts.FindPostID(ctx, postRef)
	if err != nil {
		return nil, err
	}

	row := &models.PostRating{PostID: postID, UserID: actor.ID, Rating: rating}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "updated_at"}),
		}).
		Create(row).Error
	if err != nil {
		return nil, fmt.Errorf("rate post: %w", err)
	}

	metrics.Get().RatingsSubmittedTotal.Inc()
	s.notifier.PostRated(ctx, postID, actor, rating)

	return s.feed.GetPost(ctx, postID)
}

// DeletePost removes a post owned by actor together with its child rows
func (s *Service) DeletePost(ctx context.Context, postRef string, actor *models.User) error {
	postID, err := s.posts.FindPostID(ctx, postRef)
	if err != nil {
		return err
	}
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actor.ID {
		return ErrNotPostOwner
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return err
		}
		return fmt.Errorf("delete post: %w", err)
	}

	logger.Log.Info("Post deleted", logger.WithPostID(postID), logger.WithUserID(actor.ID))
	return nil
}
