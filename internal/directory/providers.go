// Package directory serves the browsable service-provider directory and the
// category list shared with the post feed.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	defaultProviderImage = "https://via.placeholder.com/400x300"
	unknownDistance      = "Unknown"
)

var ErrProviderNotFound = apierrors.NotFound("service provider")

// Location is a provider's coordinates
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ProviderView is the client shape of a provider
type ProviderView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Distance    string    `json:"distance"`
	Location    *Location `json:"location"`
	Services    []string  `json:"services"`
}

// ProviderFilter narrows List. Category "all" is the same as no category.
type ProviderFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}

type CreateProviderInput struct {
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Image       string    `json:"image"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Distance    string    `json:"distance"`
	Location    *Location `json:"location"`
	Services    []string  `json:"services"`
}

type Service struct {
	db    *gorm.DB
	cache Cache
}

// NewService builds the directory. cache may be nil.
func NewService(db *gorm.DB, cache Cache) *Service {
	return &Service{db: db, cache: cache}
}

// ListProviders returns providers best-rated first
func (s *Service) ListProviders(ctx context.Context, f ProviderFilter) ([]ProviderView, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := s.db.WithContext(ctx).Model(&models.Provider{})
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var rows []models.Provider
	err := q.Order("rating DESC").Order("review_count DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	views := make([]ProviderView, len(rows))
	for i := range rows {
		views[i] = toProviderView(&rows[i])
	}
	return views, nil
}

func (s *Service) GetProvider(ctx context.Context, id string) (*ProviderView, error) {
	var row models.Provider
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}
	view := toProviderView(&row)
	return &view, nil
}

// CreateProvider lists a new provider owned by userID
func (s *Service) CreateProvider(ctx context.Context, userID string, in CreateProviderInput) (*ProviderView, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" {
		return nil, apierrors.ValidationError("name", "name is required")
	}
	if category == "" {
		return nil, apierrors.ValidationError("category", "category is required")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, apierrors.ValidationError("rating", "rating must be between 0 and 5")
	}
	if in.ReviewCount < 0 {
		return nil, apierrors.ValidationError("reviewCount", "reviewCount cannot be negative")
	}

	row := &models.Provider{
		Name:        name,
		Category:    category,
		Image:       firstNonEmpty(strings.TrimSpace(in.Image), defaultProviderImage),
		Rating:      in.Rating,
		ReviewCount: in.ReviewCount,
		Distance:    firstNonEmpty(strings.TrimSpace(in.Distance), unknownDistance),
		Services:    compact(in.Services),
	}
	if userID != "" {
		row.UserID = &userID
	}
	if in.Location != nil {
		lat, lng := in.Location.Lat, in.Location.Lng
		row.LocationLat = &lat
		row.LocationLng = &lng
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}

	logger.Log.Info("Provider created",
		zap.String("provider_id", row.ID),
		zap.String("category", row.Category),
		logger.WithUserID(userID),
	)
	view := toProviderView(row)
	return &view, nil
}

func toProviderView(p *models.Provider) ProviderView {
	view := ProviderView{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Image:       firstNonEmpty(p.Image, defaultProviderImage),
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Distance:    p.Distance,
		Services:    p.Services,
	}
	if view.Services == nil {
		view.Services = []string{}
	}
	if p.LocationLat != nil && p.LocationLng != nil {
		view.Location = &Location{Lat: *p.LocationLat, Lng: *p.LocationLng}
		if view.Distance == "" || view.Distance == unknownDistance {
			view.Distance = "Nearby"
		}
	}
	if view.Distance == "" {
		view.Distance = unknownDistance
	}
	return view
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
