// Package feed assembles the public post view: base post rows enriched with
// media, tags and engagement counts computed from the child tables.
package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zfogg/bizfeed/backend/internal/logger"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/repository"
	"github.com/zfogg/bizfeed/backend/internal/telemetry"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter selects a page of posts. Empty Category or "all" means every category.
type Filter struct {
	Category string
	UserID   string
	Limit    int
	Offset   int
}

// PostView is the denormalized post shape served to clients. Every field is
// a scalar or a list of strings.
type PostView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	BusinessName    string    `json:"businessName"`
	IsPro           bool      `json:"isPro"`
	ProfileImage    string    `json:"profileImage"`
	Images          []string  `json:"images"`
	Videos          []string  `json:"videos"`
	Tags            []string  `json:"tags"`
	Rating          float64   `json:"rating"`
	RatingCount     int64     `json:"ratingCount"`
	Recommendations int64     `json:"recommendations"`
	Description     string    `json:"description"`
	Likes           int64     `json:"likes"`
	Comments        int64     `json:"comments"`
	Shares          int64     `json:"shares"`
	Timestamp       string    `json:"timestamp"`
	Category        string    `json:"category"`
	CreatedAt       time.Time `json:"createdAt"`
}

// baseRow is one post joined with its author
type baseRow struct {
	ID           string
	UserID       string
	Caption      *string
	Category     *string
	Rating       *float64
	SharesCount  *int64
	CreatedAt    time.Time
	Username     *string
	DisplayName  *string
	ProfileImage *string
	AccountType  *string
	BusinessName *string
}

// Assembler loads posts and enriches them
type Assembler struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAssembler creates a feed assembler over db
func NewAssembler(db *gorm.DB) *Assembler {
	return &Assembler{db: db, now: time.Now}
}

// ListPosts returns active posts newest-first, enriched
func (a *Assembler) ListPosts(ctx context.Context, f Filter) ([]PostView, error) {
	start := time.Now()
	defer func() {
		metrics.Get().FeedAssemblyDuration.Observe(time.Since(start).Seconds())
	}()

	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ctx, span := telemetry.TraceListPosts(ctx, f.Category, f.UserID, f.Limit, f.Offset)
	defer span.End()

	q := a.baseQuery(ctx).Where("p.is_active = ?", true)
	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		q = q.Where("LOWER(p.category) = LOWER(?)", c)
	}
	if f.UserID != "" {
		q = q.Where("p.user_id = ?", f.UserID)
	}

	var rows []baseRow
	err := q.Order("p.created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return a.enrich(ctx, rows), nil
}

// GetPost returns one post regardless of its active flag
func (a *Assembler) GetPost(ctx context.Context, postID string) (*PostView, error) {
	var rows []baseRow
	err := a.baseQuery(ctx).
		Where("CAST(p.id AS TEXT) = ?", postID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if len(rows) == 0 {
		return nil, repository.ErrPostNotFound
	}

	views := a.enrich(ctx, rows)
	return &views[0], nil
}

func (a *Assembler) baseQuery(ctx context.Context) *gorm.DB {
	return a.db.WithContext(ctx).
		Table("posts p").
		Select(`p.id, p.user_id, p.caption, p.category, p.rating, p.shares_count, p.created_at,
			u.username, u.display_name, u.profile_image, u.account_type,
			pr.business_name`).
		Joins("LEFT JOIN users u ON u.id = p.user_id").
		Joins("LEFT JOIN profiles pr ON pr.user_id = p.user_id")
}

func (a *Assembler) enrich(ctx context.Context, rows []baseRow) []PostView {
	if len(rows) == 0 {
		return []PostView{}
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	f := a.loadFacets(ctx, ids)
	now := a.now()

	views := make([]PostView, len(rows))
	for i, r := range rows {
		views[i] = a.shape(r, f, now)
	}
	return views
}

func (a *Assembler) shape(r baseRow, f *facets, now time.Time) PostView {
	username := firstNonEmpty(deref(r.Username), "unknown")
	view := PostView{
		ID:           r.ID,
		UserID:       r.UserID,
		Username:     username,
		BusinessName: firstNonEmpty(deref(r.BusinessName), deref(r.DisplayName), deref(r.Username), "Business"),
		IsPro:        deref(r.AccountType) == "business",
		ProfileImage: deref(r.ProfileImage),
		Images:       nonNil(f.images[r.ID]),
		Videos:       nonNil(f.videos[r.ID]),
		Tags:         nonNil(f.tags[r.ID]),
		Description:  deref(r.Caption),
		Likes:        f.likes[r.ID],
		Comments:     f.comments[r.ID],
		Timestamp:    util.RelativeTime(r.CreatedAt, now),
		Category:     firstNonEmpty(deref(r.Category), "all"),
		CreatedAt:    r.CreatedAt,
	}
	if r.SharesCount != nil {
		view.Shares = *r.SharesCount
	}

	if agg, ok := f.ratings[r.ID]; ok && agg.Count > 0 {
		view.Rating = agg.Avg
		view.RatingCount = agg.Count
	} else if r.Rating != nil {
		view.Rating = *r.Rating
	}
	return view
}

type ratingAgg struct {
	Avg   float64
	Count int64
}

// facets holds the per-post enrichment results keyed by text post id
type facets struct {
	images   map[string][]string
	videos   map[string][]string
	tags     map[string][]string
	likes    map[string]int64
	comments map[string]int64
	ratings  map[string]ratingAgg
}

// loadFacets runs the six enrichment queries concurrently. A failed query
// leaves its facet empty and is logged; it never fails the page.
func (a *Assembler) loadFacets(ctx context.Context, ids []string) *facets {
	f := &facets{
		images:   map[string][]string{},
		videos:   map[string][]string{},
		tags:     map[string][]string{},
		likes:    map[string]int64{},
		comments: map[string]int64{},
		ratings:  map[string]ratingAgg{},
	}

	loaders := map[string]func() error{
		"images":   func() (err error) { f.images, err = a.loadMedia(ctx, "post_images", "image_url", "image_data", "/images/", ids); return },
		"videos":   func() (err error) { f.videos, err = a.loadMedia(ctx, "post_videos", "video_url", "video_data", "/videos/", ids); return },
		"tags":     func() (err error) { f.tags, err = a.loadTags(ctx, ids); return },
		"likes":    func() (err error) { f.likes, err = a.loadCounts(ctx, "post_likes", false, ids); return },
		"comments": func() (err error) { f.comments, err = a.loadCounts(ctx, "comments", true, ids); return },
		"ratings":  func() (err error) { f.ratings, err = a.loadRatings(ctx, ids); return },
	}

	var wg sync.WaitGroup
	for name, load := range loaders {
		wg.Add(1)
		go func(name string, load func() error) {
			defer wg.Done()
			if err := load(); err != nil {
				metrics.Get().FeedFacetFailuresTotal.WithLabelValues(name).Inc()
				telemetry.FacetFailed(ctx, name, err)
				logger.WarnWithFields("feed facet query failed", err,
					zap.String("facet", name),
					zap.Int("posts", len(ids)),
				)
			}
		}(name, load)
	}
	wg.Wait()

	f.fillNil()
	return f
}

// fillNil restores empty maps for facets whose loader failed
func (f *facets) fillNil() {
	if f.images == nil {
		f.images = map[string][]string{}
	}
	if f.videos == nil {
		f.videos = map[string][]string{}
	}
	if f.tags == nil {
		f.tags = map[string][]string{}
	}
	if f.likes == nil {
		f.likes = map[string]int64{}
	}
	if f.comments == nil {
		f.comments = map[string]int64{}
	}
	if f.ratings == nil {
		f.ratings = map[string]ratingAgg{}
	}
}

type mediaRow struct {
	ID      string
	PostID  string
	URL     *string
	HasData int
}

// loadMedia returns the serve URL for each media row: the blob endpoint when
// bytes are stored in the row, the stored URL otherwise.
func (a *Assembler) loadMedia(ctx context.Context, table, urlCol, dataCol, servePrefix string, ids []string) (map[string][]string, error) {
	var rows []mediaRow
	err := a.db.WithContext(ctx).
		Table(table).
		Select(fmt.Sprintf(`id, CAST(post_id AS TEXT) AS post_id, %s AS url,
			CASE WHEN %s IS NOT NULL THEN 1 ELSE 0 END AS has_data`, urlCol, dataCol)).
		Where("CAST(post_id AS TEXT) IN ?", ids).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(ids))
	for _, r := range rows {
		switch {
		case r.HasData == 1:
			out[r.PostID] = append(out[r.PostID], servePrefix+r.ID)
		case r.URL != nil && *r.URL != "":
			out[r.PostID] = append(out[r.PostID], *r.URL)
		}
	}
	return out, nil
}

func (a *Assembler) loadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	var rows []struct {
		PostID string
		Tag    string
	}
	err := a.db.WithContext(ctx).
		Table("post_tags").
		Select("CAST(post_id AS TEXT) AS post_id, tag").
		Where("CAST(post_id AS TEXT) IN ?", ids).
		Order("tag ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(ids))
	for _, r := range rows {
		if r.Tag != "" {
			out[r.PostID] = append(out[r.PostID], r.Tag)
		}
	}
	return out, nil
}

func (a *Assembler) loadCounts(ctx context.Context, table string, activeOnly bool, ids []string) (map[string]int64, error) {
	var rows []struct {
		PostID string
		Count  int64
	}
	q := a.db.WithContext(ctx).
		Table(table).
		Select("CAST(post_id AS TEXT) AS post_id, COUNT(*) AS count").
		Where("CAST(post_id AS TEXT) IN ?", ids)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Group("CAST(post_id AS TEXT)").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.PostID] = r.Count
	}
	return out, nil
}

func (a *Assembler) loadRatings(ctx context.Context, ids []string) (map[string]ratingAgg, error) {
	var rows []struct {
		PostID string
		Avg    float64
		Count  int64
	}
	err := a.db.WithContext(ctx).
		Table("post_ratings").
		Select("CAST(post_id AS TEXT) AS post_id, AVG(rating) AS avg, COUNT(*) AS count").
		Where("CAST(post_id AS TEXT) IN ?", ids).
		Group("CAST(post_id AS TEXT)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]ratingAgg, len(rows))
	for _, r := range rows {
		out[r.PostID] = ratingAgg{Avg: r.Avg, Count: r.Count}
	}
	return out, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
