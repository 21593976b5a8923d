package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"gorm.io/gorm"
)

// ListServices returns the offerings on username's profile, newest first
func (s *Service) ListServices(ctx context.Context, username string) ([]ServiceView, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.listServices(ctx, user.ID)
}

func (s *Service) listServices(ctx context.Context, userID string) ([]ServiceView, error) {
	var rows []models.ProfileService
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	views := make([]ServiceView, len(rows))
	for i, r := range rows {
		views[i] = toServiceView(&r)
	}
	return views, nil
}

// AddService lists a new offering, creating the profile row if needed
func (s *Service) AddService(ctx context.Context, user *models.User, in ServiceInput) (*ServiceView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var row models.ProfileService
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := ensureProfile(tx, user)
		if err != nil {
			return err
		}
		row = models.ProfileService{
			ProfileID:   profile.ID,
			UserID:      user.ID,
			Title:       strings.TrimSpace(in.Title),
			Price:       strings.TrimSpace(in.Price),
			Description: strings.TrimSpace(in.Description),
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add service: %w", err)
	}

	view := toServiceView(&row)
	return &view, nil
}

// UpdateService rewrites an offering owned by user
func (s *Service) UpdateService(ctx context.Context, user *models.User, id string, in ServiceInput) (*ServiceView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row, err := s.ownedService(ctx, user, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"title":       strings.TrimSpace(in.Title),
		"price":       strings.TrimSpace(in.Price),
		"description": strings.TrimSpace(in.Description),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}

	view := toServiceView(row)
	return &view, nil
}

// DeleteService removes an offering owned by user
func (s *Service) DeleteService(ctx context.Context, user *models.User, id string) error {
	row, err := s.ownedService(ctx, user, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(row).Error
}

func (s *Service) ownedService(ctx context.Context, user *models.User, id string) (*models.ProfileService, error) {
	var row models.ProfileService
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if row.UserID != user.ID {
		return nil, ErrNotServiceOwner
	}
	return &row, nil
}

func (in ServiceInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apierrors.ValidationError("title", "title is required")
	}
	return nil
}

func toServiceView(r *models.ProfileService) ServiceView {
	return ServiceView{
		ID:          r.ID,
		Title:       r.Title,
		Price:       r.Price,
		Description: r.Description,
	}
}
