// Package notifications stores recipient-scoped event records and turns
// engagement, messaging and follow events into them.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/metrics"
	"github.com/zfogg/bizfeed/backend/internal/models"
	"github.com/zfogg/bizfeed/backend/internal/util"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = apierrors.NotFound("notification")

// TypeMessage is accepted on events but persisted as a mention with
// originalType "message" in the metadata.
const TypeMessage = "message"

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Event describes something a user should be told about. A nil
// RecipientUsername broadcasts to everyone.
type Event struct {
	RecipientUsername *string `json:"recipientUsername"`
	ActorID           string  `json:"actorId,omitempty"`
	ActorUsername     string  `json:"actorUsername"`
	Avatar            string  `json:"avatar,omitempty"`
	Message           string  `json:"message"`
	Type              string  `json:"type"`
	HasAction         bool    `json:"hasAction"`
	PostID            string  `json:"postId,omitempty"`
	RelatedID         string  `json:"relatedId,omitempty"`
}

// metadata is the JSON document stored alongside each notification
type metadata struct {
	Avatar          string `json:"avatar,omitempty"`
	HasAction       bool   `json:"hasAction,omitempty"`
	OriginalMessage string `json:"originalMessage,omitempty"`
	OriginalType    string `json:"originalType,omitempty"`
}

// View is the client shape of a notification
type View struct {
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	Username          string         `json:"username"`
	RecipientUsername *string        `json:"recipientUsername"`
	Message           string         `json:"message"`
	Avatar            *string        `json:"avatar"`
	HasAction         bool           `json:"hasAction"`
	Read              bool           `json:"read"`
	Timestamp         string         `json:"timestamp"`
	PostID            *string        `json:"postId"`
	RelatedID         *string        `json:"relatedId"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// Filter selects notifications. An empty RecipientUsername sees broadcasts only.
type Filter struct {
	RecipientUsername string
	Type              string
	Unread            bool
	Limit             int
	Offset            int
}

type ListResult struct {
	Items       []View `json:"items"`
	UnreadCount int64  `json:"unreadCount"`
}

// Service reads and writes notification rows
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Create persists an event as a notification row
func (s *Service) Create(ctx context.Context, ev Event) (*View, error) {
	if strings.TrimSpace(ev.Type) == "" {
		return nil, apierrors.ValidationError("type", "notification type is required")
	}

	storedType := ev.Type
	meta := metadata{
		Avatar:          ev.Avatar,
		HasAction:       ev.HasAction,
		OriginalMessage: ev.Message,
	}
	if ev.Type == TypeMessage {
		storedType = models.NotificationMention
		meta.OriginalType = TypeMessage
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode notification metadata: %w", err)
	}
	metaStr := string(raw)

	actorID := ev.ActorID
	if actorID == "" && ev.ActorUsername != "" {
		var ids []string
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("username = ?", ev.ActorUsername).Limit(1).Pluck("id", &ids).Error; err == nil && len(ids) > 0 {
			actorID = ids[0]
		}
	}

	n := &models.Notification{
		UserID:            actorID,
		ActorUsername:     ev.ActorUsername,
		RecipientUsername: ev.RecipientUsername,
		Type:              storedType,
		Content:           ev.Message,
		RelatedID:         optional(ev.RelatedID),
		PostID:            optional(ev.PostID),
		Metadata:          &metaStr,
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	metrics.Get().NotificationsCreatedTotal.WithLabelValues(storedType).Inc()
	view := s.toView(n)
	return &view, nil
}

// visibleTo scopes a query to rows addressed to recipient or broadcast
func visibleTo(q *gorm.DB, recipient string) *gorm.DB {
	if recipient == "" {
		return q.Where("recipient_username IS NULL")
	}
	return q.Where("(recipient_username = ? OR recipient_username IS NULL)", recipient)
}

// List returns notifications newest-first plus the caller's unread count
func (s *Service) List(ctx context.Context, f Filter) (*ListResult, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}

	q := visibleTo(s.db.WithContext(ctx).Model(&models.Notification{}), f.RecipientUsername)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Unread {
		q = q.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	var unread int64
	err := visibleTo(s.db.WithContext(ctx).Model(&models.Notification{}), f.RecipientUsername).
		Where("is_read = ?", false).
		Count(&unread).Error
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	items := make([]View, len(rows))
	for i := range rows {
		items[i] = s.toView(&rows[i])
	}
	return &ListResult{Items: items, UnreadCount: unread}, nil
}

// Get loads one notification visible to recipient
func (s *Service) Get(ctx context.Context, id, recipient string) (*View, error) {
	n, err := s.find(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	view := s.toView(n)
	return &view, nil
}

func (s *Service) find(ctx context.Context, id, recipient string) (*models.Notification, error) {
	var n models.Notification
	err := visibleTo(s.db.WithContext(ctx).Where("id = ?", id), recipient).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load notification: %w", err)
	}
	return &n, nil
}

// MarkRead flips one visible notification to read. Read state never reverts.
func (s *Service) MarkRead(ctx context.Context, id, recipient string) (*View, error) {
	n, err := s.find(ctx, id, recipient)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		if err := s.db.WithContext(ctx).Model(n).Update("is_read", true).Error; err != nil {
			return nil, fmt.Errorf("mark notification read: %w", err)
		}
		n.IsRead = true
	}
	view := s.toView(n)
	return &view, nil
}

// MarkAllRead marks every unread notification visible to recipient and
// returns how many rows changed.
func (s *Service) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	res := visibleTo(s.db.WithContext(ctx).Model(&models.Notification{}), recipient).
		Where("is_read = ?", false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one notification visible to recipient
func (s *Service) Delete(ctx context.Context, id, recipient string) error {
	n, err := s.find(ctx, id, recipient)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(n).Error
}

func (s *Service) toView(n *models.Notification) View {
	meta := parseMetadata(n.Metadata)

	view := View{
		ID:                n.ID,
		Type:              n.Type,
		Username:          n.ActorUsername,
		RecipientUsername: n.RecipientUsername,
		Message:           n.Content,
		Read:              n.IsRead,
		Timestamp:         util.RelativeTime(n.CreatedAt, s.now()),
		PostID:            n.PostID,
		RelatedID:         n.RelatedID,
		Metadata:          meta,
		CreatedAt:         n.CreatedAt,
	}
	if view.Username == "" {
		view.Username = "Unknown"
	}
	if avatar, ok := meta["avatar"].(string); ok && avatar != "" {
		view.Avatar = &avatar
	}
	if hasAction, ok := meta["hasAction"].(bool); ok {
		view.HasAction = hasAction
	}
	return view
}

// parseMetadata decodes the stored blob; anything that is not a JSON object
// yields nil.
func parseMetadata(raw *string) map[string]any {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return nil
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
