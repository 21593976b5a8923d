package directory

import (
	"context"
	"strconv"
	"time"

	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"go.uber.org/zap"
)

const (
	categoriesCacheKey = "directory:categories:v1"
	categoriesCacheTTL = 10 * time.Minute
)

// Cache is the slice of cache.RedisClient the category list needs
type Cache interface {
	GetJSON(ctx context.Context, name, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type CategoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// DefaultCategories is served when the categories table cannot be read
var DefaultCategories = []CategoryView{
	{ID: "all", Name: "All"},
	{ID: "carpenters", Name: "Carpenters"},
	{ID: "electricians", Name: "Electricians"},
	{ID: "plumbers", Name: "Plumbers"},
	{ID: "painters", Name: "Painters"},
	{ID: "landscapers", Name: "Landscapers"},
	{ID: "roofers", Name: "Roofers"},
}

// ListCategories returns categories ordered by id. Cache errors fall through
// to the database; a database error yields DefaultCategories, which are not
// cached.
func (s *Service) ListCategories(ctx context.Context) ([]CategoryView, error) {
	if s.cache != nil {
		var cached []CategoryView
		found, err := s.cache.GetJSON(ctx, "categories", categoriesCacheKey, &cached)
		if err != nil {
			logger.WarnWithFields("Category cache read failed", err)
		} else if found {
			return cached, nil
		}
	}

	var rows []models.Category
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		logger.WarnWithFields("Falling back to default categories", err)
		return DefaultCategories, nil
	}

	views := make([]CategoryView, len(rows))
	for i, r := range rows {
		views[i] = CategoryView{ID: strconv.FormatUint(uint64(r.ID), 10), Name: r.Name, Icon: r.Icon}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, categoriesCacheKey, views, categoriesCacheTTL); err != nil {
			logger.WarnWithFields("Category cache write failed", err)
		}
	}
	return views, nil
}

// CreateCategory adds a category and drops the cached list
func (s *Service) CreateCategory(ctx context.Context, name, icon string) (*CategoryView, error) {
	row := &models.Category{Name: name, Icon: icon}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	s.invalidateCategories(ctx)

	logger.Log.Info("Category created", zap.String("name", name))
	return &CategoryView{ID: strconv.FormatUint(uint64(row.ID), 10), Name: row.Name, Icon: row.Icon}, nil
}

func (s *Service) invalidateCategories(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, categoriesCacheKey); err != nil {
		logger.WarnWithFields("Category cache invalidation failed", err)
	}
}
