package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zfogg/bizfeed/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles all database operations for users and follows
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetUserByLogin matches an active user by username or email
	GetUserByLogin(ctx context.Context, identifier string) (*models.User, error)
	// ResolveUser tries ref as a username first and then as an id
	ResolveUser(ctx context.Context, ref string) (*models.User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)

	GetFollowerCount(ctx context.Context, userID string) (int64, error)
	GetFollowingCount(ctx context.Context, userID string) (int64, error)
	CreateFollow(ctx context.Context, followerID, followingID string) error
	DeleteFollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)

	GetTotalUserCount(ctx context.Context) (int64, error)
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) first(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrInvalidInput
	}
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = LOWER(?)", strings.TrimSpace(email))
}

// GetUserByUsername gets a user by username (case-insensitive)
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "LOWER(username) = LOWER(?)", strings.TrimSpace(username))
}

func (r *userRepository) GetUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	return r.first(ctx, "(LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)) AND is_active = ?",
		identifier, identifier, true)
}

func (r *userRepository) ResolveUser(ctx context.Context, ref string) (*models.User, error) {
	user, err := r.GetUserByUsername(ctx, ref)
	if err == nil || !errors.Is(err, ErrUserNotFound) {
		return user, err
	}
	return r.GetUser(ctx, ref)
}

func (r *userRepository) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

// GetFollowerCount gets follower count for a user
func (r *userRepository) GetFollowerCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetFollowingCount gets following count for a user
func (r *userRepository) GetFollowingCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CreateFollow creates a follow relationship; an existing edge is left alone
func (r *userRepository) CreateFollow(ctx context.Context, followerID, followingID string) error {
	follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error
}

// DeleteFollow deletes a follow relationship
func (r *userRepository) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
}

// IsFollowing checks if follower follows following
func (r *userRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) GetTotalUserCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, err
}
