package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"gorm.io/gorm"
)

const maxCommentLength = 2000

// CommentView is a comment with its author resolved
type CommentView struct {
	ID           string    `json:"id"`
	PostID       string    `json:"postId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	ProfileImage string    `json:"profileImage"`
	Content      string    `json:"content"`
	CommentText  string    `json:"commentText"`
	Timestamp    string    `json:"timestamp"`
	CreatedAt    time.Time `json:"createdAt"`
}

type commentRow struct {
	ID           string
	PostID       string
	UserID       string
	Content      string
	CreatedAt    time.Time
	Username     *string
	ProfileImage *string
}

// AddComment stores an active comment on an existing post and notifies the
// post owner and any @mentioned users.
func (s *Service) AddComment(ctx context.Context, postRef string, actor *models.User, text string) (*CommentView, error) {
	ctx, span := telemetry.TraceEngagement(ctx, "comment", postRef, actor.ID)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierrors.ValidationError("commentText", "comment text is required")
	}
	if utf8.RuneCountInString(text) > maxCommentLength {
		return nil, apierrors.ValidationError("commentText", "comment is too long")
	}

	postID, err := s.posts.ResolvePostID(ctx, postRef)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{PostID: postID, UserID: actor.ID, Content: text}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	metrics.Get().CommentsCreatedTotal.Inc()

	s.notifier.PostCommented(ctx, postID, actor, text)
	if mentions := util.ExtractMentions(text); len(mentions) > 0 {
		s.notifier.Mentioned(ctx, postID, actor, mentions)
	}

	var row commentRow
	if err := s.commentQuery(ctx).Where("c.id = ?", comment.ID).Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}
	if row.ID == "" {
		return nil, apierrors.NotFound("comment")
	}
	view := s.toView(row)
	return &view, nil
}

// ListComments returns a post's active comments oldest-first. An unknown
// post has no comments.
func (s *Service) ListComments(ctx context.Context, postRef string) ([]CommentView, error) {
	postID, err := s.posts.ResolvePostID(ctx, postRef)
	if errors.Is(err, repository.ErrPostNotFound) {
		return []CommentView{}, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []commentRow
	err = s.commentQuery(ctx).
		Where("CAST(c.post_id AS TEXT) = ? AND c.is_active = ?", postID, true).
		Order("c.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	views := make([]CommentView, len(rows))
	for i, r := range rows {
		views[i] = s.toView(r)
	}
	return views, nil
}

func (s *Service) commentQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("comments c").
		Select("c.id, c.post_id, c.user_id, c.content, c.created_at, u.username, u.profile_image").
		Joins("LEFT JOIN users u ON u.id = c.user_id")
}

func (s *Service) toView(r commentRow) CommentView {
	username := "unknown"
	if r.Username != nil && *r.Username != "" {
		username = *r.Username
	}
	var image string
	if r.ProfileImage != nil {
		image = *r.ProfileImage
	}
	return CommentView{
		ID:           r.ID,
		PostID:       r.PostID,
		UserID:       r.UserID,
		Username:     username,
		ProfileImage: image,
		Content:      r.Content,
		CommentText:  r.Content,
		Timestamp:    util.RelativeTime(r.CreatedAt, s.now()),
		CreatedAt:    r.CreatedAt,
	}
}
