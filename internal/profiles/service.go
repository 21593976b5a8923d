// Package profiles serves the public profile of a user: business display
// fields, listed services, follow edges and aggregate stats.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/feed"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrServiceNotFound = apierrors.NotFound("service")
	ErrNotServiceOwner = apierrors.Forbidden("only the profile owner can change this service")
	ErrSelfFollow      = apierrors.ValidationError("username", "you cannot follow yourself")
)

// FollowNotifier is told about new follow edges
type FollowNotifier interface {
	Followed(ctx context.Context, follower, followee *models.User)
}

type Service struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	feed     *feed.Assembler
	notifier FollowNotifier
}

func NewService(db *gorm.DB, users repository.UserRepository, posts repository.PostRepository, assembler *feed.Assembler, notifier FollowNotifier) *Service {
	return &Service{db: db, users: users, posts: posts, feed: assembler, notifier: notifier}
}

// View is the merged user + profile document
type View struct {
	UserID           string        `json:"userId"`
	Username         string        `json:"username"`
	DisplayName      string        `json:"displayName"`
	BusinessName     string        `json:"businessName"`
	Tagline          string        `json:"tagline"`
	Description      string        `json:"description"`
	Website          string        `json:"website"`
	ProfileImage     *string       `json:"profileImage"`
	Posts            int64         `json:"posts"`
	Followers        int64         `json:"followers"`
	Following        int64         `json:"following"`
	Rating           float64       `json:"rating"`
	RatingCount      int64         `json:"ratingCount"`
	AccountType      string        `json:"accountType"`
	BusinessCategory *string       `json:"businessCategory"`
	Services         []ServiceView `json:"services"`
	IsFollowing      *bool         `json:"isFollowing,omitempty"`
}

type ServiceView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// UpdateInput changes only the non-nil fields
type UpdateInput struct {
	DisplayName  *string `json:"displayName"`
	BusinessName *string `json:"businessName"`
	Tagline      *string `json:"tagline"`
	Description  *string `json:"description"`
	Website      *string `json:"website"`
	ProfileImage *string `json:"profileImage"`
}

// ServiceInput describes one offering
type ServiceInput struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

// GetProfile loads the profile of username. viewerID, when set, fills IsFollowing.
func (s *Service) GetProfile(ctx context.Context, username, viewerID string) (*View, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, user, viewerID)
}

func (s *Service) build(ctx context.Context, user *models.User, viewerID string) (*View, error) {
	profile, err := s.findProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &models.Profile{}
	}

	postCount, err := s.posts.CountPostsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	followers, err := s.users.GetFollowerCount(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count followers: %w", err)
	}
	following, err := s.users.GetFollowingCount(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count following: %w", err)
	}
	rating, ratingCount, err := s.posts.RatingSummary(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}

	services, err := s.listServices(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	view := &View{
		UserID:       user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		BusinessName: firstNonEmpty(profile.BusinessName, user.DisplayName, user.Username),
		Tagline:      profile.Tagline,
		Description:  profile.Description,
		Website:      profile.Website,
		ProfileImage: optional(firstNonEmpty(profile.ProfileImage, user.ProfileImage)),
		Posts:        postCount,
		Followers:    followers,
		Following:    following,
		Rating:       rating,
		RatingCount:  ratingCount,
		AccountType:  firstNonEmpty(user.AccountType, models.AccountPersonal),
		Services:     services,
	}
	view.BusinessCategory = optional(user.BusinessCategory)

	if viewerID != "" && viewerID != user.ID {
		isFollowing, err := s.users.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			logger.WarnWithFields("Failed to check follow state", err, logger.WithUserID(viewerID))
		} else {
			view.IsFollowing = &isFollowing
		}
	}
	return view, nil
}

// UpdateProfile writes display fields, creating the profile row on first
// update. ProfileImage goes to both the user and the profile.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, in UpdateInput) (*View, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userUpdates := map[string]interface{}{}
		if in.DisplayName != nil {
			userUpdates["display_name"] = strings.TrimSpace(*in.DisplayName)
		}
		if in.ProfileImage != nil {
			userUpdates["profile_image"] = strings.TrimSpace(*in.ProfileImage)
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(userUpdates).Error; err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}

		profileUpdates := map[string]interface{}{}
		set := func(col string, v *string) {
			if v != nil {
				profileUpdates[col] = strings.TrimSpace(*v)
			}
		}
		set("business_name", in.BusinessName)
		set("tagline", in.Tagline)
		set("description", in.Description)
		set("website", in.Website)
		set("profile_image", in.ProfileImage)
		if len(profileUpdates) == 0 {
			return nil
		}

		profile, err := ensureProfile(tx, user)
		if err != nil {
			return err
		}
		return tx.Model(profile).Updates(profileUpdates).Error
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.users.GetUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Profile updated", logger.WithUserID(user.ID))
	return s.build(ctx, fresh, "")
}

// ListUserPosts returns the user's active posts as the feed renders them
func (s *Service) ListUserPosts(ctx context.Context, username string, limit, offset int) ([]feed.PostView, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.feed.ListPosts(ctx, feed.Filter{UserID: user.ID, Limit: limit, Offset: offset})
}

// ToggleFollow follows username, or unfollows when already following.
// It returns the new state and the followee's follower count.
func (s *Service) ToggleFollow(ctx context.Context, follower *models.User, username string) (bool, int64, error) {
	followee, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return false, 0, err
	}
	if followee.ID == follower.ID {
		return false, 0, ErrSelfFollow
	}

	following, err := s.users.IsFollowing(ctx, follower.ID, followee.ID)
	if err != nil {
		return false, 0, fmt.Errorf("check follow: %w", err)
	}

	if following {
		if err := s.users.DeleteFollow(ctx, follower.ID, followee.ID); err != nil {
			return false, 0, fmt.Errorf("unfollow: %w", err)
		}
	} else {
		if err := s.users.CreateFollow(ctx, follower.ID, followee.ID); err != nil {
			return false, 0, fmt.Errorf("follow: %w", err)
		}
		s.notifier.Followed(ctx, follower, followee)
	}

	count, err := s.users.GetFollowerCount(ctx, followee.ID)
	if err != nil {
		return false, 0, fmt.Errorf("count followers: %w", err)
	}

	logger.Log.Debug("Follow toggled",
		logger.WithUserID(follower.ID),
		zap.String("followee_id", followee.ID),
		zap.Bool("following", !following),
	)
	return !following, count, nil
}

func (s *Service) findProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

func ensureProfile(tx *gorm.DB, user *models.User) (*models.Profile, error) {
	profile := models.Profile{UserID: user.ID, Username: user.Username}
	if err := tx.Where("user_id = ?", user.ID).FirstOrCreate(&profile).Error; err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return &profile, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
